// Package config handles pjplan configuration parsing and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/swamp-dev/pjplan/internal/schedule"
)

// FileName is the configuration file looked up by FindConfigFile.
const FileName = "pjplan.yaml"

// Config represents the pjplan.yaml configuration file.
type Config struct {
	Version  string         `yaml:"version" validate:"required"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
}

// ScheduleConfig holds the scheduler defaults. Start and Deadline are dates
// or RFC 3339 timestamps and are overridden by the project file.
type ScheduleConfig struct {
	Direction        string  `yaml:"direction" validate:"oneof=forward backward"`
	DefaultEstimate  float64 `yaml:"default_estimate" validate:"gte=0"`
	BalanceResources bool    `yaml:"balance_resources"`
	SpentRollup      string  `yaml:"spent_rollup" validate:"oneof=pessimistic raw"`
	MaxSearchDays    int     `yaml:"max_search_days" validate:"gte=1"`
	MaxWorkDays      int     `yaml:"max_work_days" validate:"gte=1"`
	Start            string  `yaml:"start,omitempty"`
	Deadline         string  `yaml:"deadline,omitempty"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `yaml:"format" validate:"oneof=text json yaml"` // text, json, yaml
}

var validate = validator.New()

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Schedule: ScheduleConfig{
			Direction:        "forward",
			BalanceResources: true,
			SpentRollup:      "pessimistic",
			MaxSearchDays:    100,
			MaxWorkDays:      schedule.DefaultMaxWorkDays,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load reads and parses the pjplan.yaml config file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := parseTime(c.Schedule.Start); err != nil {
		return fmt.Errorf("invalid schedule.start: %w", err)
	}
	if _, err := parseTime(c.Schedule.Deadline); err != nil {
		return fmt.Errorf("invalid schedule.deadline: %w", err)
	}

	return nil
}

// Options converts the schedule section into scheduler options.
func (c *Config) Options() (schedule.Options, error) {
	s := c.Schedule
	rollup, err := schedule.ParseRollup(s.SpentRollup)
	if err != nil {
		return schedule.Options{}, err
	}
	start, err := parseTime(s.Start)
	if err != nil {
		return schedule.Options{}, fmt.Errorf("invalid schedule.start: %w", err)
	}
	deadline, err := parseTime(s.Deadline)
	if err != nil {
		return schedule.Options{}, fmt.Errorf("invalid schedule.deadline: %w", err)
	}
	return schedule.Options{
		Start:           start,
		Deadline:        deadline,
		DefaultEstimate: s.DefaultEstimate,
		PerTaskCapacity: !s.BalanceResources,
		SpentRollup:     rollup,
		MaxSearchDays:   s.MaxSearchDays,
		MaxWorkDays:     s.MaxWorkDays,
	}, nil
}

// parseTime accepts an empty string, a date or an RFC 3339 timestamp.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// FindConfigFile searches for pjplan.yaml in current and parent directories.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("%s not found in %s or parent directories", FileName, cwd)
}
