package lrp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageBudget(t *testing.T) {
	tests := []struct {
		cap, want int
	}{
		{100, 20},
		{10, 200},
		{3, 660},
		{1, DefaultFinalIterations},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageBudget(DefaultRuntimeBudget, 4, tt.cap, DefaultFinalIterations), "cap %d", tt.cap)
	}
	assert.Equal(t, 1, StageBudget(10, 4, 100, 3000), "clamped to one iteration")
	assert.Equal(t, 30, StageBudget(600, 1, 2, 3000), "divisor never drops below one")
}

func TestDefaultRunConfigIsValid(t *testing.T) {
	cfg := DefaultRunConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int{100, 10, 3, 1}, cfg.StageCaps())
	assert.Equal(t, 30*time.Millisecond, cfg.IterationTimeLimit())
	_, ok := cfg.DemandOverride()
	assert.False(t, ok)
}

func TestRunConfigValidate(t *testing.T) {
	zero := 0
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"empty stages", func(c *RunConfig) { c.Stages = nil }},
		{"non-positive cap", func(c *RunConfig) { c.Stages = []int{5, 0, 1} }},
		{"increasing caps", func(c *RunConfig) { c.Stages = []int{3, 10, 1} }},
		{"last cap not one", func(c *RunConfig) { c.Stages = []int{10, 3} }},
		{"zero time limit", func(c *RunConfig) { c.PerIterationTimeLimit = 0 }},
		{"zero override", func(c *RunConfig) { c.MinCapacityOverride = &zero }},
		{"zero runtime", func(c *RunConfig) { c.RuntimeBudget = 0 }},
		{"zero final iterations", func(c *RunConfig) { c.FinalIterations = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidationModeIgnoresStages(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.ValidationMode = true
	cfg.Stages = nil
	assert.NoError(t, cfg.Validate())
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{"": Descending, "desc": Descending, "Ascending": Ascending, " asc ": Ascending} {
		got, err := ParseSortOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSortOrder("sideways")
	assert.Error(t, err)
}
