package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the scan engine and the surrounding app.
// Fields may be loaded from a JSON or YAML file, then overridden by environment
// variables and command-line flags.
type Config struct {
	Debug   bool   `json:"debug" yaml:"debug"`
	LogFile string `json:"log_file" yaml:"log_file"`

	// Sampling
	IntervalMs     int `json:"interval_ms" yaml:"interval_ms"`
	AnalysisWidth  int `json:"analysis_width" yaml:"analysis_width"`
	AnalysisHeight int `json:"analysis_height" yaml:"analysis_height"`

	// Content detection
	MinVariance  float64 `json:"min_variance" yaml:"min_variance"`
	MinContrast  float64 `json:"min_contrast" yaml:"min_contrast"`
	DetectStride int     `json:"detect_stride" yaml:"detect_stride"`

	// Stability
	StabilityThreshold float64 `json:"stability_threshold" yaml:"stability_threshold"`
	StabilityFrames    int     `json:"stability_frames" yaml:"stability_frames"`
	PixelDiffThreshold int     `json:"pixel_diff_threshold" yaml:"pixel_diff_threshold"`
	StabilityStride    int     `json:"stability_stride" yaml:"stability_stride"`

	// Guide rectangle (display pixels, always centered)
	GuideWidth  int `json:"guide_width" yaml:"guide_width"`
	GuideHeight int `json:"guide_height" yaml:"guide_height"`

	// Display surface the guide is drawn on
	DisplayWidth  int `json:"display_width" yaml:"display_width"`
	DisplayHeight int `json:"display_height" yaml:"display_height"`

	// Captured still
	OutputScale float64 `json:"output_scale" yaml:"output_scale"`
	JPEGQuality int     `json:"jpeg_quality" yaml:"jpeg_quality"`

	// Screen region used as the live frame source; zero size means full screen.
	SourceX int `json:"source_x" yaml:"source_x"`
	SourceY int `json:"source_y" yaml:"source_y"`
	SourceW int `json:"source_w" yaml:"source_w"`
	SourceH int `json:"source_h" yaml:"source_h"`

	// Session
	Side     string `json:"side" yaml:"side"`
	AutoMode bool   `json:"auto_mode" yaml:"auto_mode"`
	CardID   string `json:"card_id" yaml:"card_id"`

	// Persistence
	DBPath         string `json:"db_path" yaml:"db_path"`
	DedupeDistance int    `json:"dedupe_distance" yaml:"dedupe_distance"`

	// HTTP / WebSocket surface; empty address disables it.
	HTTPAddr    string  `json:"http_addr" yaml:"http_addr"`
	StateRateHz float64 `json:"state_rate_hz" yaml:"state_rate_hz"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:              false,
		IntervalMs:         120,
		AnalysisWidth:      120,
		AnalysisHeight:     75,
		MinVariance:        800,
		MinContrast:        50,
		DetectStride:       8,
		StabilityThreshold: 0.75,
		StabilityFrames:    20,
		PixelDiffThreshold: 40,
		StabilityStride:    32,
		GuideWidth:         350,
		GuideHeight:        220,
		DisplayWidth:       1280,
		DisplayHeight:      720,
		OutputScale:        2.0,
		JPEGQuality:        90,
		Side:               "front",
		AutoMode:           true,
		DBPath:             "cardscan.db",
		DedupeDistance:     6,
		StateRateHz:        10,
	}
}

// Interval returns the sampling period as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.IntervalMs <= 0 {
		c.IntervalMs = 120
	}
	if c.AnalysisWidth <= 0 {
		c.AnalysisWidth = 120
	}
	if c.AnalysisHeight <= 0 {
		c.AnalysisHeight = 75
	}
	if c.MinVariance < 0 {
		c.MinVariance = 800
	}
	if c.MinContrast < 0 || c.MinContrast > 255 {
		c.MinContrast = 50
	}
	if c.DetectStride <= 0 {
		c.DetectStride = 8
	}
	if c.StabilityThreshold <= 0 || c.StabilityThreshold > 1 {
		c.StabilityThreshold = 0.75
	}
	if c.StabilityFrames <= 0 {
		c.StabilityFrames = 20
	}
	if c.PixelDiffThreshold <= 0 {
		c.PixelDiffThreshold = 40
	}
	if c.StabilityStride <= 0 {
		c.StabilityStride = 32
	}
	if c.DisplayWidth <= 0 {
		c.DisplayWidth = 1280
	}
	if c.DisplayHeight <= 0 {
		c.DisplayHeight = 720
	}
	if c.GuideWidth <= 0 {
		c.GuideWidth = 350
	}
	if c.GuideHeight <= 0 {
		c.GuideHeight = 220
	}
	if c.OutputScale < 0 {
		c.OutputScale = 0
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 90
	}
	if c.SourceW < 0 || c.SourceH < 0 {
		c.SourceW, c.SourceH = 0, 0
	}
	if c.DedupeDistance < 0 {
		c.DedupeDistance = 0
	}
	if c.StateRateHz <= 0 {
		c.StateRateHz = 10
	}
	switch strings.ToLower(strings.TrimSpace(c.Side)) {
	case "front", "":
		c.Side = "front"
	case "back":
		c.Side = "back"
	default:
		return fmt.Errorf("config: unknown side %q", c.Side)
	}
	return nil
}

// Load attempts to read configuration from the given JSON or YAML file path. If the
// file does not exist it returns DefaultConfig(). On decode error it returns defaults
// with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path, picking the format from the extension.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
