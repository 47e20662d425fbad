// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	Samples    int  `yaml:"samples"` // MSAA, 0 = off
}

// ViewerConfig holds what is shown on startup and how.
type ViewerConfig struct {
	Model          string     `yaml:"model"`       // path to a model description
	TextureDir     string     `yaml:"texture_dir"` // defaults to the model's directory
	Animation      uint16     `yaml:"animation"`
	AnimationSpeed float32    `yaml:"animation_speed"`
	CameraDistance float32    `yaml:"camera_distance"`
	Background     [3]float32 `yaml:"background"`
	LightAzimuth   float32    `yaml:"light_azimuth"`   // degrees around Z
	LightElevation float32    `yaml:"light_elevation"` // degrees above the ground
	ScreenshotDir  string     `yaml:"screenshot_dir"`
}

// SimulationConfig holds simulation bounds.
type SimulationConfig struct {
	Seed     uint64        `yaml:"seed"`
	MaxStep  time.Duration `yaml:"max_step"`  // longest particle sub-step
	MaxQuads int           `yaml:"max_quads"` // per emitter per frame
	GroundZ  float32       `yaml:"ground_z"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:   1280,
			Height:  720,
			VSync:   true,
			Samples: 4,
		},
		Viewer: ViewerConfig{
			AnimationSpeed: 1,
			CameraDistance: 10,
			Background:     [3]float32{0.2, 0.2, 0.25},
			LightAzimuth:   -60,
			LightElevation: 50,
			ScreenshotDir:  "screenshots",
		},
		Simulation: SimulationConfig{
			Seed:     1,
			MaxStep:  100 * time.Millisecond,
			MaxQuads: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
