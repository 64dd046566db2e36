package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/layout"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
	assert.Equal(t, cfg.Server.Addr, cfg.Monitor.Addr)
	assert.Equal(t, 1000.0, cfg.Metrics.BaselineCallsPerDay)
	assert.Equal(t, "gpt-4o-mini", cfg.Metrics.DefaultModel)
	assert.Equal(t, 3*time.Second, cfg.Canvas(800, 600).Flash)
	assert.Equal(t, 250*time.Millisecond, cfg.Canvas(800, 600).FocusDebounce)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, layout.DefaultOptions(), cfg.LayoutOptions())
}

func TestLoadReadsSections(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"
export_dir = "/tmp/out"

[log]
level = "debug"

[layout]
col_spacing = 500
test_strategy = "zigzag"

[viewport]
max_scale = 3.0

[metrics]
baseline_calls_per_day = 250
default_model = "claude-3-haiku"

[metrics.prices.custom-model]
input_per_million = 1.5
output_per_million = 6

[highlight]
flash_ms = 1500

[monitor]
analysis_id = "an-7"
poll_interval_ms = 200
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, ":9000", cfg.Monitor.Addr)
	assert.Equal(t, "/tmp/out", cfg.Server.ExportDir)
	assert.Equal(t, "an-7", cfg.Monitor.AnalysisID)
	assert.Equal(t, 200*time.Millisecond, cfg.PollInterval())

	lo := cfg.LayoutOptions()
	assert.Equal(t, 500.0, lo.ColSpacing)
	assert.Equal(t, layout.StrategyZigzag, lo.TestStrategy)
	assert.Equal(t, 300.0, lo.RowSpacing)

	assert.Equal(t, 3.0, cfg.ViewportOptions().MaxScale)
	assert.Equal(t, 0.1, cfg.ViewportOptions().MinScale)

	cc := cfg.Canvas(1024, 768)
	assert.Equal(t, 1500*time.Millisecond, cc.Flash)
	assert.Equal(t, 250.0, cc.BaselineCallsPerDay)
	assert.Equal(t, 1.5, cc.Prices.Lookup("CUSTOM-MODEL", "").InputPerMillion)
	assert.Equal(t, 1024.0, cc.Width)

	server, ok := cfg.Raw["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ":9000", server["addr"])
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadDefaultMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cfg.Path, filepath.Join(".agentscope", "config.toml")))
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[server\naddr="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config file")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		" error ": "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in).String(), in)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var console, file bytes.Buffer
	logger := SetupLoggerWithWriters(&console, &file, ParseLevel("info"))

	logger.Debug("hidden")
	logger.Info("layout ready", "nodes", 6)

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "layout ready")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec))
	assert.Equal(t, "layout ready", rec["msg"])
	assert.Equal(t, 6.0, rec["nodes"])
}

func TestSetupLoggerFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	logger, cleanup := SetupLogger(LogConfig{File: path, Level: "debug"}, nil)
	logger.Debug("frame drawn")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"frame drawn"`)
}
