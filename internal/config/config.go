package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"agentscope/internal/canvas"
	"agentscope/internal/highlight"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/viewport"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Layout    LayoutConfig    `toml:"layout"`
	Viewport  ViewportConfig  `toml:"viewport"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Highlight HighlightConfig `toml:"highlight"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Raw       map[string]any  `toml:"-"`
	Path      string          `toml:"-"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	DBPath    string `toml:"db_path"`
	ExportDir string `toml:"export_dir"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type LayoutConfig struct {
	BaseX               float64 `toml:"base_x"`
	RowY0               float64 `toml:"row_y0"`
	ColSpacing          float64 `toml:"col_spacing"`
	RowSpacing          float64 `toml:"row_spacing"`
	ToolPitch           float64 `toml:"tool_pitch"`
	ToolOffsetX         float64 `toml:"tool_offset_x"`
	TestStrategy        string  `toml:"test_strategy"`
	RadialRadius        float64 `toml:"radial_radius"`
	RadialStep          float64 `toml:"radial_step"`
	CollisionPadding    float64 `toml:"collision_padding"`
	MaxPlacementRetries int     `toml:"max_placement_retries"`
}

type ViewportConfig struct {
	MinScale         float64 `toml:"min_scale"`
	MaxScale         float64 `toml:"max_scale"`
	FitPadding       float64 `toml:"fit_padding"`
	FocusMaxScale    float64 `toml:"focus_max_scale"`
	FocusPadding     float64 `toml:"focus_padding"`
	FocusDebounceMS  int     `toml:"focus_debounce_ms"`
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
}

type MetricsConfig struct {
	BaselineCallsPerDay float64                  `toml:"baseline_calls_per_day"`
	DefaultModel        string                   `toml:"default_model"`
	Prices              map[string]metrics.Price `toml:"prices"`
}

type HighlightConfig struct {
	FlashMS int `toml:"flash_ms"`
}

type MonitorConfig struct {
	Addr           string `toml:"addr"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	AnalysisID     string `toml:"analysis_id"`
}

// Load reads the TOML file at path. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	resolved := path
	if !explicit {
		resolved = defaultConfigPath()
	}
	resolved, err := expandHome(resolved)
	if err != nil {
		return Config{}, err
	}

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg := Config{}.withDefaults()
			cfg.Path = resolved
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	var raw map[string]any
	if _, err := toml.Decode(string(bytes), &raw); err != nil {
		return Config{}, fmt.Errorf("decode raw config: %w", err)
	}
	cfg = cfg.withDefaults()
	cfg.Raw = raw
	cfg.Path = resolved
	return cfg, nil
}

func expandHome(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(p, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		p = filepath.Join(home, trimmed)
	}
	return filepath.Clean(p), nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentscope/config.toml"
	}
	return filepath.Join(home, ".agentscope", "config.toml")
}

func (c Config) withDefaults() Config {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8787"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "agentscope.db"
	}
	if c.Server.ExportDir == "" {
		c.Server.ExportDir = "exports"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	l := layout.DefaultOptions()
	if c.Layout.BaseX == 0 {
		c.Layout.BaseX = l.BaseX
	}
	if c.Layout.RowY0 == 0 {
		c.Layout.RowY0 = l.RowY0
	}
	if c.Layout.ColSpacing <= 0 {
		c.Layout.ColSpacing = l.ColSpacing
	}
	if c.Layout.RowSpacing <= 0 {
		c.Layout.RowSpacing = l.RowSpacing
	}
	if c.Layout.ToolPitch <= 0 {
		c.Layout.ToolPitch = l.ToolPitch
	}
	if c.Layout.ToolOffsetX <= 0 {
		c.Layout.ToolOffsetX = l.ToolOffsetX
	}
	if c.Layout.TestStrategy == "" {
		c.Layout.TestStrategy = string(l.TestStrategy)
	}
	if c.Layout.RadialRadius <= 0 {
		c.Layout.RadialRadius = l.RadialRadius
	}
	if c.Layout.RadialStep <= 0 {
		c.Layout.RadialStep = l.RadialStep
	}
	if c.Layout.CollisionPadding <= 0 {
		c.Layout.CollisionPadding = l.CollisionPadding
	}
	if c.Layout.MaxPlacementRetries <= 0 {
		c.Layout.MaxPlacementRetries = l.MaxPlacementRetries
	}

	v := viewport.DefaultOptions()
	if c.Viewport.MinScale <= 0 {
		c.Viewport.MinScale = v.MinScale
	}
	if c.Viewport.MaxScale <= 0 {
		c.Viewport.MaxScale = v.MaxScale
	}
	if c.Viewport.FitPadding <= 0 {
		c.Viewport.FitPadding = v.FitPadding
	}
	if c.Viewport.FocusMaxScale <= 0 {
		c.Viewport.FocusMaxScale = v.FocusMaxScale
	}
	if c.Viewport.FocusPadding <= 0 {
		c.Viewport.FocusPadding = v.FocusPadding
	}
	if c.Viewport.FocusDebounceMS <= 0 {
		c.Viewport.FocusDebounceMS = 250
	}
	if c.Viewport.WheelSensitivity <= 0 {
		c.Viewport.WheelSensitivity = v.WheelSensitivity
	}

	if c.Metrics.BaselineCallsPerDay <= 0 {
		c.Metrics.BaselineCallsPerDay = metrics.DefaultBaselineCallsPerDay
	}
	if c.Metrics.DefaultModel == "" {
		c.Metrics.DefaultModel = metrics.DefaultModel
	}
	if c.Highlight.FlashMS <= 0 {
		c.Highlight.FlashMS = int(3 * time.Second / time.Millisecond)
	}

	if c.Monitor.Addr == "" {
		c.Monitor.Addr = c.Server.Addr
	}
	if c.Monitor.PollIntervalMS <= 0 {
		c.Monitor.PollIntervalMS = 1000
	}
	return c
}

func (c Config) LayoutOptions() layout.Options {
	o := layout.DefaultOptions()
	o.BaseX = c.Layout.BaseX
	o.RowY0 = c.Layout.RowY0
	o.ColSpacing = c.Layout.ColSpacing
	o.RowSpacing = c.Layout.RowSpacing
	o.ToolPitch = c.Layout.ToolPitch
	o.ToolOffsetX = c.Layout.ToolOffsetX
	o.TestStrategy = layout.ParseStrategy(c.Layout.TestStrategy)
	o.RadialRadius = c.Layout.RadialRadius
	o.RadialStep = c.Layout.RadialStep
	o.CollisionPadding = c.Layout.CollisionPadding
	o.MaxPlacementRetries = c.Layout.MaxPlacementRetries
	return o
}

func (c Config) ViewportOptions() viewport.Options {
	return viewport.Options{
		MinScale:         c.Viewport.MinScale,
		MaxScale:         c.Viewport.MaxScale,
		FitPadding:       c.Viewport.FitPadding,
		FocusMaxScale:    c.Viewport.FocusMaxScale,
		FocusPadding:     c.Viewport.FocusPadding,
		WheelSensitivity: c.Viewport.WheelSensitivity,
	}
}

// PriceTable is the built-in table with configured overrides applied.
func (c Config) PriceTable() metrics.PriceTable {
	return metrics.DefaultPrices().Merge(c.Metrics.Prices)
}

func (c Config) Calculator() *metrics.Calculator {
	return metrics.NewCalculator(c.PriceTable(), c.Metrics.DefaultModel, c.Metrics.BaselineCallsPerDay)
}

// Canvas builds the engine configuration for a viewport of the given size.
func (c Config) Canvas(width, height float64) canvas.Config {
	return canvas.Config{
		Layout:              c.LayoutOptions(),
		Viewport:            c.ViewportOptions(),
		Prices:              c.PriceTable(),
		DefaultModel:        c.Metrics.DefaultModel,
		BaselineCallsPerDay: c.Metrics.BaselineCallsPerDay,
		Flash:               durationMS(c.Highlight.FlashMS),
		FocusDebounce:       durationMS(c.Viewport.FocusDebounceMS),
		ImpactPadding:       highlight.DefaultImpactPadding,
		Width:               width,
		Height:              height,
	}
}

func (c Config) PollInterval() time.Duration { return durationMS(c.Monitor.PollIntervalMS) }

func durationMS(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
