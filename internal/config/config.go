package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv overrides databaseURL from the config file when set
const DatabaseURLEnv = "FOOD_ROBOT_DATABASE_URL"

// Reminders holds the thresholds used by the reminder engine
type Reminders struct {
	PastDueDays   int `yaml:"pastDueDays" validate:"min=0"`
	EscalateAfter int `yaml:"escalateAfter" validate:"omitempty,min=1"`
}

// Schedule holds the cron specs used by the schedule command
type Schedule struct {
	Daily  string `yaml:"daily,omitempty"`
	Weekly string `yaml:"weekly,omitempty"`
}

// Closure marks recurring days on which no pickups are generated
type Closure struct {
	RRule  string `yaml:"rrule" validate:"required"`
	Reason string `yaml:"reason,omitempty"`
}

// Config represents the application configuration
type Config struct {
	TimeZone    string    `yaml:"timeZone" validate:"required"`
	DatabaseURL string    `yaml:"databaseURL" validate:"required"`
	GmailUserID string    `yaml:"gmailUserID" validate:"required"`
	GmailSender string    `yaml:"gmailSender,omitempty"`
	AdminEmail  string    `yaml:"adminEmail" validate:"required,email"`
	BaseURL     string    `yaml:"baseURL" validate:"required,url"`
	DryRun      bool      `yaml:"dryRun,omitempty"`
	Reminders   Reminders `yaml:"reminders"`
	Schedule    Schedule  `yaml:"schedule,omitempty"`
	Closures    []Closure `yaml:"closures,omitempty" validate:"dive"`

	location *time.Location
	closures []closureRule
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates food_robot_config.<env>.yaml, looking in the
// current directory first and then the user's home directory
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Secrets may live in a .env file next to the binary; a missing file is fine
	_ = godotenv.Load()

	cfg := Config{
		Reminders: Reminders{PastDueDays: 2, EscalateAfter: 3},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv(DatabaseURLEnv); url != "" {
		cfg.DatabaseURL = url
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the time zone, cron specs and
// closure rrules. It also prepares the parsed forms used at runtime.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid timeZone %q: %w", cfg.TimeZone, err)
	}
	cfg.location = loc

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"daily": cfg.Schedule.Daily, "weekly": cfg.Schedule.Weekly} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid cron spec in schedule.%s: %w", name, err)
		}
	}

	rules, err := parseClosures(cfg.Closures)
	if err != nil {
		return err
	}
	cfg.closures = rules

	return nil
}

// Location returns the configured time zone, UTC if the config was never validated
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

// findConfigFile returns the path of the env's config file
func findConfigFile(env string) (string, error) {
	name := "food_robot_config.yaml"
	if env != "" {
		name = "food_robot_config." + env + ".yaml"
	}
	return findFile(name)
}

// findFile looks for name in the current directory and then the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}

// ReminderThresholds returns the past-due and escalation thresholds, falling
// back to 2 days and 3 reminders when unset
func (c *Config) ReminderThresholds() (pastDueDays, escalateAfter int) {
	pastDueDays, escalateAfter = 2, 3
	if c == nil {
		return pastDueDays, escalateAfter
	}
	if c.Reminders.PastDueDays > 0 {
		pastDueDays = c.Reminders.PastDueDays
	}
	if c.Reminders.EscalateAfter > 0 {
		escalateAfter = c.Reminders.EscalateAfter
	}
	return pastDueDays, escalateAfter
}

// Today returns the current calendar day in the configured time zone
func (c *Config) Today(now time.Time) time.Time {
	t := now.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
