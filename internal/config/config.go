// Package config assembles the run configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lrpsolve/internal/lrp"
)

const DefaultOutputDir = "output"

type Config struct {
	Run lrp.RunConfig

	// Output
	OutputDir string

	// Persistence and progress (optional)
	DatabaseURL string
	Migrate     bool
	RedisURL    string
	ListenAddr  string
	EventRate   float64 // config.evaluated events per second, 0 = unthrottled

	// Run outcome webhook (optional)
	WebhookURL         string
	WebhookSecret      string
	WebhookMaxAttempts int

	// Logging
	LogLevel  string
	LogFormat string
}

func Default() *Config {
	return &Config{
		Run:       lrp.DefaultRunConfig(),
		OutputDir: DefaultOutputDir,
		Migrate:   true,
		EventRate: 20,
		LogLevel:  "info",
		LogFormat: "text",

		WebhookMaxAttempts: 5,
	}
}

// File is the YAML layout of a run configuration file. Absent keys keep
// their defaults.
type File struct {
	Stages          []int    `yaml:"stages"`
	RuntimeBudget   *int     `yaml:"runtimeBudget"`
	FinalIterations *int     `yaml:"finalIterations"`
	TimeLimit       *float64 `yaml:"timeLimit"`
	MinCapacity     *int     `yaml:"minCapacity"`
	CapacityOrder   string   `yaml:"capacityOrder"`
	Seed            *int64   `yaml:"seed"`
	OutputDir       string   `yaml:"outputDir"`
	DatabaseURL     string   `yaml:"databaseURL"`
	Migrate         *bool    `yaml:"migrate"`
	RedisURL        string   `yaml:"redisURL"`
	Listen          string   `yaml:"listen"`
	EventRate       *float64 `yaml:"eventRate"`
	Webhook         struct {
		URL         string `yaml:"url"`
		Secret      string `yaml:"secret"`
		MaxAttempts *int   `yaml:"maxAttempts"`
	} `yaml:"webhook"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadDotEnv reads .env style files into the environment. Missing files are
// ignored and variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load applies defaults, then the YAML file at path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.ApplyYAML(b); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyYAML(b []byte) error {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if f.Stages != nil {
		c.Run.Stages = append([]int(nil), f.Stages...)
	}
	if f.RuntimeBudget != nil {
		c.Run.RuntimeBudget = *f.RuntimeBudget
	}
	if f.FinalIterations != nil {
		c.Run.FinalIterations = *f.FinalIterations
	}
	if f.TimeLimit != nil {
		c.Run.PerIterationTimeLimit = *f.TimeLimit
	}
	if f.MinCapacity != nil {
		v := *f.MinCapacity
		c.Run.MinCapacityOverride = &v
	}
	if f.CapacityOrder != "" {
		o, err := lrp.ParseSortOrder(f.CapacityOrder)
		if err != nil {
			return err
		}
		c.Run.CapacityOrder = o
	}
	if f.Seed != nil {
		c.Run.Seed = *f.Seed
	}
	if f.Migrate != nil {
		c.Migrate = *f.Migrate
	}
	if f.EventRate != nil {
		c.EventRate = *f.EventRate
	}
	if f.Webhook.MaxAttempts != nil {
		c.WebhookMaxAttempts = *f.Webhook.MaxAttempts
	}
	setString(&c.WebhookURL, f.Webhook.URL)
	setString(&c.WebhookSecret, f.Webhook.Secret)
	setString(&c.OutputDir, f.OutputDir)
	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.RedisURL, f.RedisURL)
	setString(&c.ListenAddr, f.Listen)
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)
	return nil
}

// ApplyEnv overlays LRP_* and service variables. Unparseable values are
// reported together.
func (c *Config) ApplyEnv() error {
	var errs []error
	if v, ok, err := getEnvFloat("LRP_TIME_LIMIT"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.PerIterationTimeLimit = v
	}
	if v, ok, err := getEnvInt("LRP_MIN_CAPACITY"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.MinCapacityOverride = &v
	}
	if v, ok, err := getEnvIntList("LRP_STAGES"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.Stages = v
	}
	if v, ok, err := getEnvInt("LRP_RUNTIME_BUDGET"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.RuntimeBudget = v
	}
	if v, ok, err := getEnvInt("LRP_FINAL_ITERATIONS"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.FinalIterations = v
	}
	if v, ok, err := getEnvInt("LRP_SEED"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Run.Seed = int64(v)
	}
	if v := os.Getenv("LRP_CAPACITY_ORDER"); v != "" {
		o, err := lrp.ParseSortOrder(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LRP_CAPACITY_ORDER: %w", err))
		} else {
			c.Run.CapacityOrder = o
		}
	}
	if v, ok, err := getEnvFloat("LRP_EVENT_RATE"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.EventRate = v
	}
	if v, ok, err := getEnvInt("WEBHOOK_MAX_ATTEMPTS"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.WebhookMaxAttempts = v
	}
	c.WebhookURL = getEnv("LRP_WEBHOOK_URL", c.WebhookURL)
	c.WebhookSecret = getEnv("LRP_WEBHOOK_SECRET", c.WebhookSecret)
	c.Migrate = getEnvBool("LRP_MIGRATE", c.Migrate)
	c.OutputDir = getEnv("LRP_OUTPUT_DIR", c.OutputDir)
	c.ListenAddr = getEnv("LRP_LISTEN", c.ListenAddr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.EventRate < 0 {
		return fmt.Errorf("event rate must be >= 0, got %f", c.EventRate)
	}
	if c.WebhookURL != "" && c.WebhookMaxAttempts <= 0 {
		return fmt.Errorf("webhook max attempts must be > 0, got %d", c.WebhookMaxAttempts)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string) (int, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

func getEnvFloat(key string) (float64, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma separated list such as "100,10,3,1".
func getEnvIntList(key string) ([]int, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, false, nil
	}
	v, err := ParseIntList(value)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

func ParseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad list element %q: %w", p, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list %q", s)
	}
	return out, nil
}
