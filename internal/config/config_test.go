package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/newhook/harvest/internal/issue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedConfigIsValidTOML(t *testing.T) {
	cfg := &Config{
		Project: ProjectConfig{
			Name:      "test-project",
			CreatedAt: time.Date(2026, 1, 26, 10, 30, 0, 0, time.UTC),
		},
	}
	content := cfg.GenerateDocumentedConfig()

	var parsed map[string]any
	_, err := toml.Decode(content, &parsed)
	require.NoError(t, err, "Generated config is not valid TOML:\n%s", content)

	project := parsed["project"].(map[string]any)
	require.Equal(t, "test-project", project["name"])
	require.Contains(t, content, "gotest")
	require.Contains(t, content, "[[parser]]")
}

func TestGeneratedConfigRoundTrip(t *testing.T) {
	original := &Config{
		Project: ProjectConfig{
			Name:      "test-project-with\"quotes\\and\ttabs",
			CreatedAt: time.Date(2026, 1, 26, 10, 30, 0, 0, time.UTC),
		},
	}

	var loaded Config
	_, err := toml.Decode(original.GenerateDocumentedConfig(), &loaded)
	require.NoError(t, err)

	require.Equal(t, original.Project.Name, loaded.Project.Name)
	require.True(t, loaded.Project.CreatedAt.Equal(original.Project.CreatedAt))
	assert.Empty(t, loaded.Parsers, "examples are commented out")
	assert.Nil(t, loaded.Scan.Concurrency)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	assert.Equal(t, issue.SeverityLow, cfg.Scan.GetMinSeverity())
	failOn, enabled := cfg.Scan.GetFailOn()
	assert.True(t, enabled)
	assert.Equal(t, issue.SeverityError, failOn)
	assert.Equal(t, runtime.NumCPU(), cfg.Scan.GetConcurrency())
	assert.False(t, cfg.Scan.ShouldClean())

	assert.True(t, cfg.Cache.IsEnabled())
	assert.Equal(t, ".harvest/cache", cfg.Cache.GetDir())
	assert.Equal(t, time.Hour, cfg.Cache.GetTTL())

	assert.True(t, cfg.History.IsEnabled())
	assert.Equal(t, "history.db", cfg.History.GetDB())

	assert.Equal(t, "text", cfg.Output.GetFormat())
	assert.Equal(t, "auto", cfg.Output.GetColor())
	assert.Equal(t, 100, cfg.Output.GetWrap())
}

func TestLoadConfig(t *testing.T) {
	content := `
[scan]
tools = ["gcc", "lint-todo"]
min_severity = "warning_high"
fail_on = "none"
concurrency = 2
clean = true

[cache]
enabled = false
dir = "/tmp/harvest-cache"
ttl_minutes = 5

[history]
enabled = false
db = "runs.db"

[output]
format = "sarif"
color = "rainbow"
wrap = 0

[[parser]]
id = "lint-todo"
pattern = '^(\S+):(\d+): TODO (.+)$'
file = "1"
line = "2"
message = "3"
default_severity = "low"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gcc", "lint-todo"}, cfg.Scan.Tools)
	assert.Equal(t, issue.SeverityHigh, cfg.Scan.GetMinSeverity())
	_, enabled := cfg.Scan.GetFailOn()
	assert.False(t, enabled)
	assert.Equal(t, 2, cfg.Scan.GetConcurrency())
	assert.True(t, cfg.Scan.ShouldClean())

	assert.False(t, cfg.Cache.IsEnabled())
	assert.Equal(t, "/tmp/harvest-cache", cfg.Cache.GetDir())
	assert.Equal(t, 5*time.Minute, cfg.Cache.GetTTL())

	assert.False(t, cfg.History.IsEnabled())
	assert.Equal(t, "runs.db", cfg.History.GetDB())

	assert.Equal(t, "sarif", cfg.Output.GetFormat())
	assert.Equal(t, "auto", cfg.Output.GetColor(), "unknown color modes fall back to auto")
	assert.Equal(t, 0, cfg.Output.GetWrap())

	require.Len(t, cfg.Parsers, 1)
	assert.Equal(t, `^(\S+):(\d+): TODO (.+)$`, cfg.Parsers[0].Pattern)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	_, ok := reg.Lookup("lint-todo")
	assert.True(t, ok)
	_, ok = reg.Lookup("gcc")
	assert.True(t, ok)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[scan\n"), 0600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestRegistry_InvalidCustomParser(t *testing.T) {
	var cfg Config
	_, err := toml.Decode(`
[[parser]]
id = "broken"
pattern = "("
message = "1"
`, &cfg)
	require.NoError(t, err)

	_, err = cfg.Registry()
	assert.Error(t, err)
}

func TestGetFailOn(t *testing.T) {
	tests := []struct {
		value   string
		want    issue.Severity
		enabled bool
	}{
		{"", issue.SeverityError, true},
		{"high", issue.SeverityHigh, true},
		{"NORMAL", issue.SeverityNormal, true},
		{"never", 0, false},
		{"bogus", issue.SeverityError, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := ScanConfig{FailOn: tt.value}
			got, enabled := s.GetFailOn()
			assert.Equal(t, tt.enabled, enabled)
			if enabled {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	concurrency := 3
	cfg := &Config{Scan: ScanConfig{Tools: []string{"go"}, Concurrency: &concurrency}}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, loaded.Scan.Tools)
	assert.Equal(t, 3, loaded.Scan.GetConcurrency())
}
