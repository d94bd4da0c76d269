package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/config"
)

// validConfigKeys lists all supported configuration keys.
var validConfigKeys = config.Keys()

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/audiosplit/config.
Settings can also be provided via environment variables.

Supported settings:
  output-dir      Default parent directory for chunk directories (env: AUDIOSPLIT_OUTPUT_DIR)
  chunk-duration  Default maximum chunk duration, e.g. 10m (env: AUDIOSPLIT_CHUNK_DURATION)
  policy          Default chunk count policy, ceil or floor (env: AUDIOSPLIT_POLICY)`,
		Example: `  audiosplit config set output-dir ~/audio/chunks
  audiosplit config set chunk-duration 5m
  audiosplit config get policy
  audiosplit config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Supported keys:
  output-dir      The directory will be created if it doesn't exist.
  chunk-duration  A positive duration such as 90s, 10m or 1h.
  policy          ceil or floor.`,
		Example: `  audiosplit config set output-dir ~/audio/chunks
  audiosplit config set policy floor`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return runConfigSet(env, key, value)
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  audiosplit config get chunk-duration`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  audiosplit config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w %q (valid keys: %v)", ErrUnknownConfigKey, key, validConfigKeys)
	}

	// Key-specific validation and normalization.
	switch key {
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
		value = expanded
	case config.KeyChunkDuration:
		d, err := config.ParseChunkDuration(value)
		if err != nil {
			return err
		}
		value = d.String()
	case config.KeyPolicy:
		p, err := audio.ParsePolicy(value)
		if err != nil {
			return err
		}
		value = p.String()
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w %q (valid keys: %v)", ErrUnknownConfigKey, key, validConfigKeys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Check environment variable fallback.
	if value == "" {
		value = env.Getenv(config.EnvVar(key))
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	// Add environment variable values for completeness.
	for _, key := range validConfigKeys {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(config.EnvVar(key)); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range validConfigKeys {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(env.Stdout, "%s=%s\n", key, data[key])
	}

	return nil
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(validConfigKeys, key)
}
