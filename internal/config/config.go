// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"itercheck/internal/exhaust"
	"itercheck/internal/models"
)

// Config represents the configuration for itercheck
type Config struct {
	// General settings
	Version     string `yaml:"version" json:"version"`
	ProjectName string `yaml:"project_name,omitempty" json:"project_name,omitempty"`

	// Analysis settings
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Rule-specific configurations
	Rules RulesConfig `yaml:"rules" json:"rules"`

	// File patterns
	Files FilesConfig `yaml:"files" json:"files"`
}

type AnalysisConfig struct {
	// Quality score thresholds
	ScoreThresholds ScoreThresholds `yaml:"score_thresholds" json:"score_thresholds"`

	// Parallel analysis
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	// Exit with status 1 when any issue is reported
	FailOnIssues bool `yaml:"fail_on_issues" json:"fail_on_issues"`
}

type ScoreThresholds struct {
	Excellent int `yaml:"excellent" json:"excellent"` // >= 90
	Good      int `yaml:"good" json:"good"`           // >= 75
	Fair      int `yaml:"fair" json:"fair"`           // >= 50
	Poor      int `yaml:"poor" json:"poor"`           // < 50
}

type OutputConfig struct {
	// Default output format
	Format string `yaml:"format" json:"format"`

	// Colorized output
	Colors bool `yaml:"colors" json:"colors"`

	// Verbosity level
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Show suggestions
	ShowSuggestions bool `yaml:"show_suggestions" json:"show_suggestions"`

	// Output file path (optional)
	OutputFile string `yaml:"output_file,omitempty" json:"output_file,omitempty"`
}

type RulesConfig struct {
	ReusedIterator ReusedIteratorConfig `yaml:"reused_iterator" json:"reused_iterator"`

	// Report suppression comments that silenced nothing
	UselessSuppression UselessSuppressionConfig `yaml:"useless_suppression" json:"useless_suppression"`
}

type ReusedIteratorConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Severity string `yaml:"severity" json:"severity"`

	// Canonical callee names, e.g. "map" or "itertools.chain"
	Producers []string `yaml:"producers" json:"producers"`
	Consumers []string `yaml:"consumers" json:"consumers"`

	// Treat arguments of consumer calls such as list(it) as use sites
	CheckConsumerCalls bool `yaml:"check_consumer_calls" json:"check_consumer_calls"`

	// Treat comprehension iterables as use sites
	CheckComprehensions bool `yaml:"check_comprehensions" json:"check_comprehensions"`

	RespectIgnoreComments bool `yaml:"respect_ignore_comments" json:"respect_ignore_comments"`
}

type UselessSuppressionConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type FilesConfig struct {
	// Include patterns
	Include []string `yaml:"include" json:"include"`

	// Exclude patterns
	Exclude []string `yaml:"exclude" json:"exclude"`

	// Whether to follow symlinks
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`

	// Max file size (in KB)
	MaxFileSize int `yaml:"max_file_size" json:"max_file_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Analysis: AnalysisConfig{
			ScoreThresholds: ScoreThresholds{
				Excellent: 90,
				Good:      75,
				Fair:      50,
				Poor:      0,
			},
			MaxWorkers:   4,
			FailOnIssues: true,
		},
		Output: OutputConfig{
			Format:          "console",
			Colors:          true,
			Verbose:         false,
			ShowSuggestions: false,
		},
		Rules: RulesConfig{
			ReusedIterator: ReusedIteratorConfig{
				Enabled:               true,
				Severity:              "medium",
				Producers:             slices.Clone(exhaust.DefaultProducers),
				Consumers:             slices.Clone(exhaust.DefaultConsumers),
				CheckConsumerCalls:    true,
				CheckComprehensions:   true,
				RespectIgnoreComments: true,
			},
			UselessSuppression: UselessSuppressionConfig{
				Enabled: false,
			},
		},
		Files: FilesConfig{
			Include:        []string{"**/*.py"},
			Exclude:        []string{"**/.git/**", "**/.venv/**", "**/venv/**", "**/__pycache__/**", "**/node_modules/**"},
			FollowSymlinks: false,
			MaxFileSize:    1024, // 1MB
		},
	}
}

// LoadConfig loads configuration from file or returns default
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return Parse(data, configPath)
}

// Parse decodes YAML over the defaults and validates the result. source
// names the data in error messages.
func Parse(data []byte, source string) (*Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", source, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile looks for config files in common locations
func findConfigFile() string {
	possiblePaths := []string{
		".itercheck.yml",
		".itercheck.yaml",
		"itercheck.yml",
		"itercheck.yaml",
		".config/itercheck.yml",
		".config/itercheck.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	st := c.Analysis.ScoreThresholds
	if st.Excellent < st.Good || st.Good < st.Fair || st.Fair < st.Poor {
		return fmt.Errorf("score thresholds must be in descending order")
	}

	validFormats := []string{"console", "json"}
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.Output.Format, validFormats)
	}

	if c.Analysis.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}

	ri := c.Rules.ReusedIterator
	if _, ok := models.ParseSeverity(ri.Severity); !ok {
		return fmt.Errorf("invalid reused_iterator severity: %q", ri.Severity)
	}
	if ri.Enabled && len(ri.Producers) == 0 {
		return fmt.Errorf("reused_iterator needs at least one producer")
	}

	if c.Files.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be at least 1 KB")
	}

	return nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateConfig creates a sample configuration file
func GenerateConfig(configPath string) error {
	config := DefaultConfig()
	return config.SaveConfig(configPath)
}

// IsRuleEnabled checks if a specific rule is enabled
func (c *Config) IsRuleEnabled(ruleType string) bool {
	switch ruleType {
	case "reused_iterator", "reused-iterator", exhaust.MessageID:
		return c.Rules.ReusedIterator.Enabled
	case "useless_suppression", "useless-suppression":
		return c.Rules.UselessSuppression.Enabled && c.Rules.ReusedIterator.RespectIgnoreComments
	default:
		return false
	}
}

// Severity returns the configured severity of reused-iterator findings.
func (c *Config) Severity() models.Severity {
	s, _ := models.ParseSeverity(c.Rules.ReusedIterator.Severity)
	return s
}

// CheckerConfig translates the rule settings for the analysis core.
func (c *Config) CheckerConfig() exhaust.Config {
	ri := c.Rules.ReusedIterator
	return exhaust.Config{
		Producers:           ri.Producers,
		Consumers:           ri.Consumers,
		CheckConsumerCalls:  ri.CheckConsumerCalls,
		CheckComprehensions: ri.CheckComprehensions,
	}
}

// MaxFileBytes returns files.max_file_size in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Files.MaxFileSize) * 1024
}
