package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Load resolves the configuration: defaults, then the first config file
// found, then command-line flags. The result is validated.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting the viewer cannot run with.
func (c *Config) Validate() error {
	var err error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Window.Samples < 0 || c.Window.Samples > 16 {
		err = multierr.Append(err, fmt.Errorf("samples %d outside 0..16", c.Window.Samples))
	}
	if c.Viewer.AnimationSpeed < 0 {
		err = multierr.Append(err, fmt.Errorf("negative animation speed %v", c.Viewer.AnimationSpeed))
	}
	for i, v := range c.Viewer.Background {
		if v < 0 || v > 1 {
			err = multierr.Append(err, fmt.Errorf("background[%d] = %v outside 0..1", i, v))
		}
	}
	if c.Simulation.MaxStep <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_step must be positive, got %v", c.Simulation.MaxStep))
	}
	if c.Simulation.MaxQuads <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_quads must be positive, got %d", c.Simulation.MaxQuads))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return err
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./m2view.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "M2View")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "M2View")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "m2view")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "m2view")
	}
}

// loadFromFile merges a YAML file over cfg. Unknown keys are an error; an
// empty file is not.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
