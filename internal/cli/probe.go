package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/format"
)

// ProbeCmd creates the probe command.
// The env parameter provides injectable dependencies for testing.
func ProbeCmd(env *Env) *cobra.Command {
	var (
		durationStr string
		policy      string
	)

	cmd := &cobra.Command{
		Use:   "probe <audio-file>",
		Short: "Describe the audio stream of a file",
		Long: `Describe the audio stream that split would use: container format, codec,
stream index, sample rate, channels, time base and duration.

The number of chunks a split would produce is also shown, using the same
duration and policy resolution as the split command.`,
		Example: `  audiosplit probe lecture.m4a
  audiosplit probe voice.wav -d 30s --policy floor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := splitOptions{policy: policy}
			if cmd.Flags().Changed("duration") {
				d, err := parseDuration(durationStr)
				if err != nil {
					return err
				}
				opts.duration = d
			}
			return runProbe(env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&durationStr, "duration", "d", "", "Chunk duration used for the chunk count (default: config or 10m)")
	cmd.Flags().StringVar(&policy, "policy", "", "Chunk count policy: ceil, floor (default: config or ceil)")

	return cmd
}

// runProbe prints the description of path.
func runProbe(env *Env, path string, opts splitOptions) error {
	if err := validateInput(path, audio.StrategyAuto); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	duration := opts.duration
	if duration == 0 {
		duration = cfg.ChunkDuration
	}
	if duration == 0 {
		duration = audio.DefaultChunkDuration
	}

	policyName := opts.policy
	if policyName == "" {
		policyName = cfg.Policy
	}
	policy, err := audio.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	src, err := env.Prober.Probe(path)
	if err != nil {
		return err
	}

	chunks, err := audio.Plan(src.Duration, duration, policy)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"path", src.Path},
		{"format", src.Format},
		{"codec", src.Codec},
		{"stream", strconv.Itoa(src.StreamIndex)},
		{"sample rate", strconv.Itoa(src.Stream.SampleRate)},
		{"channels", strconv.Itoa(src.Stream.Channels)},
		{"time base", fmt.Sprintf("%d/%d", src.TimeBase.Num, src.TimeBase.Den)},
		{"duration", format.Timestamp(src.Duration)},
		{"chunks", fmt.Sprintf("%d x %s (%s)", len(chunks), format.DurationHuman(duration), policy)},
	}
	writeRows(env.Stdout, env.IsTerminal(env.Stdout), []string{"Field", "Value"}, rows, nil)
	return nil
}
