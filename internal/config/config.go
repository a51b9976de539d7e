// Package config loads fruit's optional YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-directory config file looked up in the walk root.
const FileName = ".fruit.yaml"

// Config holds every setting that can come from the config file. CLI flags
// are merged on top by the caller.
type Config struct {
	// Filter is the visibility mode: tracked, gitignore or all.
	Filter string `yaml:"filter"`

	// Level limits descent depth (0 = unlimited).
	Level int `yaml:"level"`

	DirsOnly bool     `yaml:"dirs_only"`
	Ignore   []string `yaml:"ignore"`

	// Newer and Older are durations (2h, 3d, 1w) or dates (2006-01-02).
	Newer string `yaml:"newer"`
	Older string `yaml:"older"`

	// Extractors.
	Comments    bool `yaml:"comments"`
	FullComment bool `yaml:"full_comment"`
	Types       bool `yaml:"types"`
	Todos       bool `yaml:"todos"`
	TodosOnly   bool `yaml:"todos_only"`
	Imports     bool `yaml:"imports"`

	// Where is a Risor predicate (or @script) applied to files.
	Where string `yaml:"where"`

	MaxFileSize int64 `yaml:"max_file_size"`
	Jobs        int   `yaml:"jobs"`

	// Output.
	Format string `yaml:"format"`
	Size   bool   `yaml:"size"`
	Color  string `yaml:"color"`
	Wrap   int    `yaml:"wrap"`

	// Cache enables the extraction cache; CachePath overrides its location.
	Cache     bool   `yaml:"cache"`
	CachePath string `yaml:"cache_path"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Filter:      "tracked",
		Comments:    true,
		MaxFileSize: 1 << 20,
		Format:      "tree",
		Color:       "auto",
		LogLevel:    "warn",
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
// Keys present in the file override defaults, including explicit false.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromDir loads FileName from dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, FileName))
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	switch c.Filter {
	case "tracked", "git", "gitignore", "all":
	default:
		return fmt.Errorf("invalid filter %q, must be one of: tracked, gitignore, all", c.Filter)
	}
	if c.Level < 0 {
		return fmt.Errorf("level must be >= 0, got %d", c.Level)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0, got %d", c.MaxFileSize)
	}
	switch c.Format {
	case "tree", "json", "markdown", "md", "html":
	default:
		return fmt.Errorf("invalid format %q, must be one of: tree, json, markdown, html", c.Format)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color %q, must be one of: auto, always, never", c.Color)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error, off", c.LogLevel)
	}

	now := time.Now()
	if _, err := ParseTimeSpec(c.Newer, now); err != nil {
		return fmt.Errorf("newer: %w", err)
	}
	if _, err := ParseTimeSpec(c.Older, now); err != nil {
		return fmt.Errorf("older: %w", err)
	}
	return nil
}

// dateLayouts are the absolute forms ParseTimeSpec accepts.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimeSpec converts a relative age or absolute date into an instant.
// Relative ages count back from now and accept Go durations plus d (days)
// and w (weeks) units, e.g. 90m, 2h, 3d, 1w. An empty spec yields the
// zero time.
func ParseTimeSpec(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, spec, time.Local); err == nil {
			return t, nil
		}
	}
	d, err := parseAge(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want a duration like 2h, 3d, 1w or a date like 2006-01-02", spec)
	}
	return now.Add(-d), nil
}

func parseAge(s string) (time.Duration, error) {
	unit := s[len(s)-1]
	var mult time.Duration
	switch unit {
	case 'd':
		mult = 24 * time.Hour
	case 'w':
		mult = 7 * 24 * time.Hour
	default:
		return time.ParseDuration(s)
	}
	n, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return time.Duration(n * float64(mult)), nil
}
