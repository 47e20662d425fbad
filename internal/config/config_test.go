package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	if cfg.Viewer.AnimationSpeed != 1 {
		t.Errorf("expected animation speed 1, got %f", cfg.Viewer.AnimationSpeed)
	}
	if cfg.Viewer.Model != "" {
		t.Errorf("expected no model, got %s", cfg.Viewer.Model)
	}
	if cfg.Viewer.LightElevation != 50 || cfg.Viewer.ScreenshotDir != "screenshots" {
		t.Errorf("unexpected light/screenshot defaults: %+v", cfg.Viewer)
	}

	if cfg.Simulation.MaxStep != 100*time.Millisecond {
		t.Errorf("expected max step 100ms, got %v", cfg.Simulation.MaxStep)
	}
	if cfg.Simulation.MaxQuads != 1000 {
		t.Errorf("expected max quads 1000, got %d", cfg.Simulation.MaxQuads)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

viewer:
  model: "creature/wolf.yaml"
  animation: 4
  animation_speed: 0.5
  background: [0, 0, 0]

simulation:
  seed: 99
  max_step: 50ms
  max_quads: 200
  ground_z: -1.5

logging:
  level: "debug"
  log_file: "m2view.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen || cfg.Window.VSync {
		t.Errorf("window = %+v", cfg.Window)
	}

	if cfg.Viewer.Model != "creature/wolf.yaml" {
		t.Errorf("expected model creature/wolf.yaml, got %s", cfg.Viewer.Model)
	}
	if cfg.Viewer.Animation != 4 || cfg.Viewer.AnimationSpeed != 0.5 {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}
	if cfg.Viewer.Background != [3]float32{} {
		t.Errorf("expected black background, got %v", cfg.Viewer.Background)
	}
	// Untouched keys keep their defaults.
	if cfg.Viewer.CameraDistance != 10 {
		t.Errorf("expected default camera distance 10, got %f", cfg.Viewer.CameraDistance)
	}

	if cfg.Simulation.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Simulation.Seed)
	}
	if cfg.Simulation.MaxStep != 50*time.Millisecond {
		t.Errorf("expected max step 50ms, got %v", cfg.Simulation.MaxStep)
	}
	if cfg.Simulation.MaxQuads != 200 || cfg.Simulation.GroundZ != -1.5 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "m2view.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"negative height", func(c *Config) { c.Window.Height = -1 }},
		{"negative speed", func(c *Config) { c.Viewer.AnimationSpeed = -1 }},
		{"zero max step", func(c *Config) { c.Simulation.MaxStep = 0 }},
		{"zero max quads", func(c *Config) { c.Simulation.MaxQuads = 0 }},
		{"too many samples", func(c *Config) { c.Window.Samples = 32 }},
		{"background out of range", func(c *Config) { c.Viewer.Background[1] = 2 }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Simulation.MaxQuads = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 3 {
		t.Errorf("expected 3 errors, got %d: %v", got, err)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("viewer:\n  modle: wolf.yaml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Errorf("empty file: %v", err)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("defaults lost: width %d", cfg.Window.Width)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Fatal("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("m2view.yaml", []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find m2view.yaml in current directory")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Viewer.Model = "spell/fire.yaml"
	cfg.Simulation.MaxStep = 25 * time.Millisecond
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if loaded.Viewer.Model != cfg.Viewer.Model || loaded.Simulation.MaxStep != cfg.Simulation.MaxStep {
		t.Errorf("round trip: got viewer %+v simulation %+v", loaded.Viewer, loaded.Simulation)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "model flag",
			setup: func() { *flagModel = "char/orc.yaml" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.Model != "char/orc.yaml" {
					t.Errorf("expected model char/orc.yaml, got %s", cfg.Viewer.Model)
				}
			},
			teardown: func() { *flagModel = "" },
		},
		{
			name:  "anim flag",
			setup: func() { *flagAnim = 5 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.Animation != 5 {
					t.Errorf("expected animation 5, got %d", cfg.Viewer.Animation)
				}
			},
			teardown: func() { *flagAnim = -1 },
		},
		{
			name:  "seed flag",
			setup: func() { *flagSeed = 1234 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Simulation.Seed != 1234 {
					t.Errorf("expected seed 1234, got %d", cfg.Simulation.Seed)
				}
			},
			teardown: func() { *flagSeed = 0 },
		},
		{
			name:  "windowed flag",
			setup: func() { *flagWindowed = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() { *flagWindowed = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from the flag, height from the file.
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("simulation:\n  max_quads: -4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject negative max_quads")
	}
}
