package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"lrpsolve/internal/lrp"
)

var envKeys = []string{
	"LRP_TIME_LIMIT", "LRP_MIN_CAPACITY", "LRP_STAGES", "LRP_RUNTIME_BUDGET",
	"LRP_FINAL_ITERATIONS", "LRP_SEED", "LRP_CAPACITY_ORDER", "LRP_EVENT_RATE",
	"LRP_MIGRATE", "LRP_OUTPUT_DIR", "LRP_LISTEN", "DATABASE_URL", "REDIS_URL",
	"LRP_WEBHOOK_URL", "LRP_WEBHOOK_SECRET", "WEBHOOK_MAX_ATTEMPTS", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Run.Stages, []int{100, 10, 3, 1}) {
		t.Fatalf("stages = %v", cfg.Run.Stages)
	}
	if cfg.Run.RuntimeBudget != 60000 || cfg.Run.FinalIterations != 3000 || cfg.Run.PerIterationTimeLimit != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg.Run)
	}
	if cfg.Run.CapacityOrder != lrp.Descending || cfg.Run.MinCapacityOverride != nil {
		t.Fatalf("unexpected defaults: %+v", cfg.Run)
	}
	if cfg.OutputDir != DefaultOutputDir || cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lrp.yaml")
	body := `stages: [20, 5, 1]
runtimeBudget: 1000
timeLimit: 12.5
minCapacity: 90
capacityOrder: ascending
seed: 7
outputDir: results
webhook:
  url: http://hooks.local/lrp
  maxAttempts: 3
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LRP_SEED", "42")
	t.Setenv("LRP_STAGES", "8, 2, 1")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Run.Stages, []int{8, 2, 1}) {
		t.Fatalf("env should win for stages, got %v", cfg.Run.Stages)
	}
	if cfg.Run.Seed != 42 || cfg.Run.RuntimeBudget != 1000 || cfg.Run.PerIterationTimeLimit != 12.5 {
		t.Fatalf("unexpected run config: %+v", cfg.Run)
	}
	if v, ok := cfg.Run.DemandOverride(); !ok || v != 90 {
		t.Fatalf("override = %d, %v", v, ok)
	}
	if cfg.Run.CapacityOrder != lrp.Ascending {
		t.Fatalf("order = %v", cfg.Run.CapacityOrder)
	}
	if cfg.WebhookURL != "http://hooks.local/lrp" || cfg.WebhookMaxAttempts != 3 {
		t.Fatalf("unexpected webhook config: %+v", cfg)
	}
	if cfg.OutputDir != "results" || cfg.LogLevel != "debug" || cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected service config: %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "unknown key", yaml: "stagez: [1]\n", want: "stagez"},
		{name: "last stage", yaml: "stages: [10, 3]\n", want: "last stage"},
		{name: "increasing", yaml: "stages: [3, 10, 1]\n", want: "exceeds"},
		{name: "bad order", yaml: "capacityOrder: sideways\n", want: "sort order"},
		{name: "bad env int", env: map[string]string{"LRP_RUNTIME_BUDGET": "lots"}, want: "LRP_RUNTIME_BUDGET"},
		{name: "bad env list", env: map[string]string{"LRP_STAGES": "10,x,1"}, want: "LRP_STAGES"},
		{name: "zero time limit", env: map[string]string{"LRP_TIME_LIMIT": "0"}, want: "time limit"},
		{name: "webhook attempts", env: map[string]string{"LRP_WEBHOOK_URL": "http://x", "WEBHOOK_MAX_ATTEMPTS": "0"}, want: "webhook max attempts"},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}, want: "log format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.yaml != "" {
				path = filepath.Join(t.TempDir(), "lrp.yaml")
				if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("LRP_OUTPUT_DIR=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LRP_OUTPUT_DIR") })
	os.Unsetenv("LRP_OUTPUT_DIR")
	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("dotenv: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputDir != "from-dotenv" {
		t.Fatalf("output dir = %q", cfg.OutputDir)
	}
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList(" 100, 10,3 ,1,")
	if err != nil || !reflect.DeepEqual(got, []int{100, 10, 3, 1}) {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := ParseIntList(" , "); err == nil {
		t.Fatal("want error for empty list")
	}
}
