// Package interrupt turns SIGINT/SIGTERM into a graceful stop for long splits.
//
// The first signal cancels the returned context. Splitters check the
// context between chunks, so the chunk being written is finished before the
// run stops. A second signal within the abort window exits the process
// immediately.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// abortWindow is the time window for a second Ctrl+C to trigger abort.
const abortWindow = 2 * time.Second

const (
	stopMessage  = "\nStopping after the current chunk... (Ctrl+C again to abort)"
	abortMessage = "\nAborted."
)

// Handler cancels a context on the first interrupt and exits on a quick second one.
type Handler struct {
	mu             sync.Mutex
	firstInterrupt time.Time
	interrupted    bool
	stopped        bool
	cancelFunc     context.CancelFunc
	done           chan struct{} // Signals listen goroutine to exit

	// Injected dependencies (for testing)
	exitFunc func(int)
	nowFunc  func() time.Time
	stderr   io.Writer
	reset    func()
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	NowFunc  func() time.Time
	// Stderr must be safe for concurrent writes.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on first interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h, ctx := newHandler(parent, Options{SigCh: sigCh})
	h.reset = func() { signal.Stop(sigCh) }
	return h, ctx
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		nowFunc:    nowFunc,
		stderr:     stderr,
		reset:      func() {},
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen handles incoming signals until Stop or channel close.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}

			h.mu.Lock()
			if h.stopped {
				h.mu.Unlock()
				return
			}
			now := h.nowFunc()

			if !h.interrupted || now.Sub(h.firstInterrupt) > abortWindow {
				first := !h.interrupted
				h.interrupted = true
				h.firstInterrupt = now
				h.mu.Unlock()
				if first {
					h.cancelFunc()
				}
				fmt.Fprintln(h.stderr, stopMessage)
				continue
			}

			h.mu.Unlock()
			fmt.Fprintln(h.stderr, abortMessage)
			h.exitFunc(ExitInterrupt)
			return // exitFunc may return in tests
		}
	}
}

// WasInterrupted reports whether at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Stop releases the signal channel and the listener. Safe to call twice.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	h.reset()
	h.cancelFunc()
	close(h.done)
}
