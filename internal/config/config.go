package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/tools"
)

//go:embed templates/config.tmpl
var configTemplateText string

// Config represents the project configuration stored in .harvest/config.toml.
type Config struct {
	Project ProjectConfig      `toml:"project"`
	Scan    ScanConfig         `toml:"scan"`
	Cache   CacheConfig        `toml:"cache"`
	History HistoryConfig      `toml:"history"`
	Output  OutputConfig       `toml:"output"`
	Parsers []tools.Definition `toml:"parser"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
}

// ScanConfig controls which tools run and how results are judged.
type ScanConfig struct {
	// Tools lists the tool ids to run. When empty, tools are detected from
	// the input.
	Tools []string `toml:"tools"`

	// MinSeverity drops issues below this severity.
	// Defaults to LOW (keep everything).
	MinSeverity string `toml:"min_severity"`

	// FailOn makes `harvest scan` exit non-zero when an issue at or above
	// this severity is found. "none" disables it. Defaults to ERROR.
	FailOn string `toml:"fail_on"`

	// Concurrency bounds the number of parses running at once.
	// Defaults to the number of CPUs.
	Concurrency *int `toml:"concurrency"`

	// Clean strips CI decorations (job prefixes, timestamps, ANSI codes)
	// from every input line, for all tools. Defaults to false.
	Clean *bool `toml:"clean"`
}

// GetMinSeverity returns the configured minimum severity.
// Defaults to LOW when not specified or invalid.
func (s *ScanConfig) GetMinSeverity() issue.Severity {
	sev, err := issue.ParseSeverity(s.MinSeverity)
	if err != nil {
		return issue.SeverityLow
	}
	return sev
}

// GetFailOn returns the severity that fails a scan and whether failing is
// enabled at all.
func (s *ScanConfig) GetFailOn() (issue.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s.FailOn)) {
	case "":
		return issue.SeverityError, true
	case "none", "never":
		return 0, false
	}
	sev, err := issue.ParseSeverity(s.FailOn)
	if err != nil {
		return issue.SeverityError, true
	}
	return sev, true
}

// GetConcurrency returns the parse concurrency.
// Defaults to the number of CPUs when not specified.
func (s *ScanConfig) GetConcurrency() int {
	if s.Concurrency != nil && *s.Concurrency > 0 {
		return *s.Concurrency
	}
	return runtime.NumCPU()
}

// ShouldClean returns true if all inputs should be cleaned before parsing.
func (s *ScanConfig) ShouldClean() bool {
	return s.Clean != nil && *s.Clean
}

// CacheConfig contains report cache configuration.
type CacheConfig struct {
	// Enabled controls whether parse results are cached by content.
	// Defaults to true when not specified.
	Enabled *bool `toml:"enabled"`

	// Dir is the on-disk cache directory, relative to the project root.
	// Defaults to ".harvest/cache".
	Dir string `toml:"dir"`

	// TTLMinutes is how long cached reports stay in memory.
	// Defaults to 60 minutes.
	TTLMinutes *int `toml:"ttl_minutes"`
}

// IsEnabled returns true if the report cache should be used.
func (c *CacheConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetDir returns the cache directory relative to the project root.
func (c *CacheConfig) GetDir() string {
	if c.Dir == "" {
		return ConfigDir + "/cache"
	}
	return c.Dir
}

// GetTTL returns the in-memory cache expiration.
func (c *CacheConfig) GetTTL() time.Duration {
	if c.TTLMinutes != nil && *c.TTLMinutes > 0 {
		return time.Duration(*c.TTLMinutes) * time.Minute
	}
	return 60 * time.Minute
}

// HistoryConfig contains run history configuration.
type HistoryConfig struct {
	// Enabled controls whether scans are recorded in the history database.
	// Defaults to true when not specified.
	Enabled *bool `toml:"enabled"`

	// DB is the database file name inside .harvest/.
	// Defaults to "history.db".
	DB string `toml:"db"`
}

// IsEnabled returns true if scans should be recorded.
func (h *HistoryConfig) IsEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}

// GetDB returns the history database file name.
func (h *HistoryConfig) GetDB() string {
	if h.DB == "" {
		return HistoryDB
	}
	return h.DB
}

// OutputConfig contains output rendering configuration.
type OutputConfig struct {
	// Format is one of "text", "json", "sarif". Defaults to "text".
	Format string `toml:"format"`

	// Color is one of "auto", "always", "never". Defaults to "auto".
	Color string `toml:"color"`

	// Wrap is the column at which descriptions are wrapped in text output.
	// 0 disables wrapping. Defaults to 100.
	Wrap *int `toml:"wrap"`
}

// GetFormat returns the output format name.
func (o *OutputConfig) GetFormat() string {
	if o.Format == "" {
		return "text"
	}
	return o.Format
}

// GetColor returns the color mode, defaulting to "auto" for unknown values.
func (o *OutputConfig) GetColor() string {
	switch o.Color {
	case "always", "never":
		return o.Color
	}
	return "auto"
}

// GetWrap returns the wrap column.
func (o *OutputConfig) GetWrap() int {
	if o.Wrap == nil || *o.Wrap < 0 {
		return 100
	}
	return *o.Wrap
}

// Registry returns the built-in tools plus the user-defined [[parser]]
// tools of this configuration.
func (c *Config) Registry() (*tools.Registry, error) {
	reg := tools.Default()
	if err := reg.RegisterDefinitions(c.Parsers); err != nil {
		return nil, fmt.Errorf("failed to load custom parsers: %w", err)
	}
	return reg, nil
}

// LoadConfig reads and parses a config.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the config to the specified path.
func (c *Config) SaveConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveDocumentedConfig writes a fully documented config to the specified path.
func (c *Config) SaveDocumentedConfig(path string) error {
	content := c.GenerateDocumentedConfig()
	return os.WriteFile(path, []byte(content), 0600)
}

// configTemplateData holds the data used to render the config template.
type configTemplateData struct {
	ProjectName string
	CreatedAt   string
	Tools       []string
}

// tomlString formats a string for TOML output with proper escaping.
func tomlString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

// configTemplate is the parsed template for generating documented config files.
var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"tomlString": tomlString,
	"join":       strings.Join,
}).Parse(configTemplateText))

// GenerateDocumentedConfig generates a documented config.toml string with
// comments. Optional sections are emitted commented out with their defaults.
func (c *Config) GenerateDocumentedConfig() string {
	data := configTemplateData{
		ProjectName: c.Project.Name,
		CreatedAt:   c.Project.CreatedAt.Format(time.RFC3339),
		Tools:       tools.Default().SortedIDs(),
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		// Fall back to a minimal valid TOML if template execution fails
		return fmt.Sprintf("[project]\nname = %q\ncreated_at = %s\n", c.Project.Name, data.CreatedAt)
	}
	return buf.String()
}
