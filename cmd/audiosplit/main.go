package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/cli"
	"github.com/alnah/audiosplit/internal/config"
	"github.com/alnah/audiosplit/internal/interrupt"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitValidation = 4
	ExitSplit      = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels the context, a second one exits immediately.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()

	err := newRootCmd(env).ExecuteContext(ctx)
	interrupted := handler.WasInterrupted()
	handler.Stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if interrupted {
			os.Exit(ExitInterrupt)
		}
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree.
func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "audiosplit",
		Short:   "Split audio files into fixed-duration chunks",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.ProbeCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): bad flags, arguments or setting names.
	if isCobraUsageError(err) ||
		errors.Is(err, cli.ErrInvalidDuration) || errors.Is(err, cli.ErrUnknownConfigKey) ||
		errors.Is(err, audio.ErrUnknownStrategy) || errors.Is(err, audio.ErrUnknownPolicy) ||
		errors.Is(err, audio.ErrInvalidChunkDuration) {
		return ExitUsage
	}

	// Validation errors (ExitValidation = 4): the input or a setting cannot be used.
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrUnsupportedFormat) ||
		errors.Is(err, audio.ErrFileNotFound) || errors.Is(err, audio.ErrOpen) ||
		errors.Is(err, audio.ErrNoAudioStream) || errors.Is(err, audio.ErrEmptySource) ||
		errors.Is(err, audio.ErrDecode) || errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrNotDirectory) || errors.Is(err, config.ErrNotWritable) {
		return ExitValidation
	}

	// Split errors (ExitSplit = 5): failure while reading or writing chunks.
	if errors.Is(err, audio.ErrDestination) || errors.Is(err, audio.ErrSeek) ||
		errors.Is(err, audio.ErrRead) {
		return ExitSplit
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
