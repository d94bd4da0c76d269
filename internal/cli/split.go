package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/config"
	"github.com/alnah/audiosplit/internal/media"
)

// chunkDirSuffix is appended to the input base name to form the default output directory.
const chunkDirSuffix = "_chunks"

// splitOptions holds the parsed options for the split command.
// Zero duration and empty policy mean "not given on the command line".
type splitOptions struct {
	duration  time.Duration
	output    string
	strategy  audio.Strategy
	policy    string
	parallel  int
	jobs      int
	streaming bool
}

// supportedFormats returns the input extensions the splitters can read.
func supportedFormats() []string {
	return slices.Sorted(slices.Values(append(media.Extensions(), ".wav")))
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := supportedFormats()
	for i, ext := range formats {
		formats[i] = strings.TrimPrefix(ext, ".")
	}
	return strings.Join(formats, ", ")
}

// clampMin returns n, or 1 when n is lower.
func clampMin(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// parseDuration parses a positive chunk duration flag value.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w (use format like 10m, 90s, 1h)", s, ErrInvalidDuration)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %w", ErrInvalidDuration)
	}
	return d, nil
}

// chunkDirName returns the default output directory name for an input.
// Example: "/rec/talk.m4a" -> "talk_chunks"
func chunkDirName(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + chunkDirSuffix
}

// outputDirs resolves the output directory of every input.
// With one input, output names the directory itself. With several, output
// (or the configured output-dir) is the parent of one directory per input.
// Inputs whose directory names collide get a numeric suffix in input order,
// e.g. "talk_chunks", "talk_chunks_2".
func outputDirs(inputs []string, output, configDir string) []string {
	configDir = config.ExpandPath(configDir)
	output = config.ExpandPath(output)

	dirs := make([]string, len(inputs))
	if len(inputs) == 1 {
		dirs[0] = config.ResolveOutputPath(output, configDir, chunkDirName(inputs[0]))
		return dirs
	}

	parent := config.ResolveOutputPath(output, configDir, ".")
	taken := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		base := chunkDirName(in)
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		dirs[i] = filepath.Join(parent, name)
	}
	return dirs
}

// SplitCmd creates the split command.
// The env parameter provides injectable dependencies for testing.
func SplitCmd(env *Env) *cobra.Command {
	var (
		durationStr string
		output      string
		strategyStr string
		policy      string
		parallel    int
		jobs        int
		streaming   bool
	)

	cmd := &cobra.Command{
		Use:   "split <audio-file>...",
		Short: "Split audio files into fixed-duration chunks",
		Long: `Split audio files into chunks of at most the given duration.

WAV files are decoded and sliced sample-exactly. Other containers are split
without re-encoding: packets are copied and their timestamps rebased so each
chunk starts at zero.

Chunks are written as chunk_001.<ext>, chunk_002.<ext>, ... into
<output-dir>/<input>_chunks. Files left by an earlier run are not removed.

Supported formats: ` + supportedFormatsList(),
		Example: `  audiosplit split lecture.m4a -d 10m
  audiosplit split voice.wav -d 30s -o /tmp/voice
  audiosplit split a.mp3 b.mp3 c.mp3 -j 3 -o chunks
  audiosplit split long.m4b -d 5m -p 4 --policy floor`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := splitOptions{
				output:    output,
				policy:    policy,
				parallel:  parallel,
				jobs:      jobs,
				streaming: streaming,
			}

			if cmd.Flags().Changed("duration") {
				d, err := parseDuration(durationStr)
				if err != nil {
					return err
				}
				opts.duration = d
			}

			strategy, err := audio.ParseStrategy(strategyStr)
			if err != nil {
				return err
			}
			opts.strategy = strategy

			return runSplit(cmd.Context(), env, args, opts)
		},
	}

	cmd.Flags().StringVarP(&durationStr, "duration", "d", "", "Maximum chunk duration, e.g. 10m, 90s (default: config or 10m)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: <output-dir>/<input>_chunks)")
	cmd.Flags().StringVar(&strategyStr, "strategy", "auto", "Split strategy: auto, copy, pcm")
	cmd.Flags().StringVar(&policy, "policy", "", "Chunk count policy: ceil keeps a short last chunk, floor drops it (default: config or ceil)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Chunks extracted concurrently per file (stream copy)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Input files processed concurrently")
	cmd.Flags().BoolVar(&streaming, "streaming", false, "Decode WAV chunk by chunk instead of loading the whole file")

	return cmd
}

// runSplit executes the split of every input.
// Validation order: files exist -> formats -> config -> duration -> policy
func runSplit(ctx context.Context, env *Env, inputs []string, opts splitOptions) error {
	// === VALIDATION (fail-fast) ===

	for _, in := range inputs {
		if err := validateInput(in, opts.strategy); err != nil {
			return err
		}
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	duration := opts.duration
	if duration == 0 {
		duration = cfg.ChunkDuration
	}

	policyName := opts.policy
	if policyName == "" {
		policyName = cfg.Policy
	}
	policy, err := audio.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	dirs := outputDirs(inputs, opts.output, cfg.OutputDir)
	jobs := clampMin(opts.jobs)

	// === SPLIT ===

	stderr := &lockedWriter{w: env.Stderr}
	splitters := make([]audio.Splitter, len(inputs))
	for i, in := range inputs {
		prefix := ""
		if len(inputs) > 1 {
			prefix = filepath.Base(in) + ": "
		}

		splitters[i], err = env.SplitterFactory.NewSplitter(opts.strategy, in, audio.Options{
			ChunkDuration: duration,
			Policy:        policy,
			Parallelism:   clampMin(opts.parallel),
			Streaming:     opts.streaming,
			Progress:      progressCallback(stderr, prefix),
		})
		if err != nil {
			return err
		}
	}

	results := make([][]audio.Chunk, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, in := range inputs {
		g.Go(func() error {
			fmt.Fprintf(stderr, "Splitting %s into %s...\n", in, dirs[i])
			chunks, err := splitters[i].Split(ctx, in, dirs[i])
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// === REPORT ===

	tty := env.IsTerminal(env.Stdout)
	total := 0
	for i, chunks := range results {
		if tty && len(inputs) > 1 {
			fmt.Fprintf(env.Stdout, "%s\n", inputs[i])
		}
		writeChunks(env.Stdout, tty, chunks)
		total += len(chunks)
	}

	fmt.Fprintf(env.Stderr, "Done: %d chunks from %d file(s)\n", total, len(inputs))
	return nil
}

// validateInput checks that path exists and has a format the strategy can read.
// A forced pcm strategy accepts any extension and lets the decoder decide.
func validateInput(path string, strategy audio.Strategy) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	if strategy == audio.StrategyPCM {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(supportedFormats(), ext) {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}
	return nil
}
