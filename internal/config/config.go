package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config keys.
const (
	KeyOutputDir     = "output-dir"
	KeyChunkDuration = "chunk-duration"
	KeyPolicy        = "policy"
)

// Environment variable fallbacks.
const (
	EnvOutputDir     = "AUDIOSPLIT_OUTPUT_DIR"
	EnvChunkDuration = "AUDIOSPLIT_CHUNK_DURATION"
	EnvPolicy        = "AUDIOSPLIT_POLICY"
)

// appName names the configuration directory.
const appName = "audiosplit"

// Sentinel errors.
var (
	// ErrInvalidKey indicates a key cannot be stored in the config file.
	ErrInvalidKey = errors.New("invalid config key")

	// ErrInvalidSyntax indicates a config file line is not key=value.
	ErrInvalidSyntax = errors.New("invalid config syntax")

	// ErrInvalidValue indicates a configuration value cannot be parsed.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrNotDirectory indicates an output-dir path exists but is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrNotWritable indicates an output-dir cannot be written to.
	ErrNotWritable = errors.New("directory is not writable")
)

// envByKey maps each key to its environment variable fallback.
var envByKey = map[string]string{
	KeyOutputDir:     EnvOutputDir,
	KeyChunkDuration: EnvChunkDuration,
	KeyPolicy:        EnvPolicy,
}

// envSettings holds the environment variable fallbacks.
type envSettings struct {
	OutputDir     string `env:"AUDIOSPLIT_OUTPUT_DIR"`
	ChunkDuration string `env:"AUDIOSPLIT_CHUNK_DURATION"`
	Policy        string `env:"AUDIOSPLIT_POLICY"`
}

// loadEnv reads the environment variable fallbacks, keyed like the config file.
func loadEnv() (map[string]string, error) {
	var env envSettings
	if err := envconfig.Process(context.Background(), &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return map[string]string{
		KeyOutputDir:     env.OutputDir,
		KeyChunkDuration: env.ChunkDuration,
		KeyPolicy:        env.Policy,
	}, nil
}

// Config holds user configuration loaded from ~/.config/audiosplit/config.
// Zero values mean "not set".
type Config struct {
	OutputDir     string
	ChunkDuration time.Duration
	Policy        string
}

// Keys returns the supported configuration keys, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(envByKey))
}

// EnvVar returns the environment variable that backs key, or "" if key is unknown.
func EnvVar(key string) string {
	return envByKey[key]
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/audiosplit.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	env, err := loadEnv()
	if err != nil {
		return cfg, err
	}

	// Environment variable fallback (only if not set in config).
	value := func(key string) string {
		if v := data[key]; v != "" {
			return v
		}
		return env[key]
	}

	cfg.OutputDir = value(KeyOutputDir)
	cfg.Policy = value(KeyPolicy)
	if raw := value(KeyChunkDuration); raw != "" {
		d, err := ParseChunkDuration(raw)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkDuration = d
	}

	return cfg, nil
}

// ParseChunkDuration parses a positive Go duration such as "10m" or "90s".
func ParseChunkDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, KeyChunkDuration, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q must be positive", ErrInvalidValue, KeyChunkDuration, s)
	}
	return d, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w at line %d: %q", ErrInvalidSyntax, lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\r\n#") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s value spans lines", ErrInvalidValue, key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	// Ensure config directory exists.
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// outputDir can come from config or flag.
// All paths are cleaned using filepath.Clean to normalize separators and remove redundant elements.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d can be used as output-dir, creating it if
// missing. A leading ~/ is expanded.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output-dir cannot be empty", ErrInvalidValue)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access directory: %w", err)
		}
		if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
			return fmt.Errorf("cannot create directory: %w", err)
		}
		return nil
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Check if writable by attempting to create a temp file.
	testFile := filepath.Join(d, ".audiosplit-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	_ = os.Remove(testFile) // Best effort cleanup, ignore error

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
