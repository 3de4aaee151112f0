package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFRESH_ORGS", " org-1, ,org-2 ")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "60")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"org-1", "org-2"}, cfg.RefreshOrgs)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "abc")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "")

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
}

func TestLoadBrainDefaults(t *testing.T) {
	t.Setenv("LTV_MULTIPLIER", "")

	b, err := LoadBrain("")
	require.NoError(t, err)

	assert.Equal(t, 1.0, b.LTVMultiplier)
	assert.Equal(t, 2.5, b.Attribution.WinnerROAS)
	assert.Equal(t, 1.8, b.Attribution.LoserROAS)
	assert.Equal(t, 7, b.Risk.Fatigue.RecentDays)
	assert.Equal(t, 14, b.Risk.Fatigue.BaselineDays)
	assert.Equal(t, 20.0, b.Risk.Fatigue.CVRDropPct)
	assert.Equal(t, 3.5, b.Risk.Fatigue.Frequency)
	assert.Equal(t, 25.0, b.Risk.Decay.HighPct)
	assert.Equal(t, 10.0, b.Risk.Decay.MediumPct)
	assert.Equal(t, DriftBaselineOffset, b.Risk.Drift.BaselineMode)
	assert.Equal(t, 3, b.Ranker.TopN)
	assert.Equal(t, 10*time.Second, b.FetchTimeout())
	assert.Equal(t, 15*time.Minute, b.CacheMaxAge())
}

func TestLoadBrainFile(t *testing.T) {
	t.Setenv("LTV_MULTIPLIER", "")
	path := filepath.Join(t.TempDir(), "brain.yaml")
	content := `
ltv_multiplier: 1.4
window_days: 30
cache_max_age_seconds: 60
attribution:
  winner_roas: 3
risk:
  fatigue:
    frequency: 4
  drift:
    baseline_mode: average
ranker:
  top_n: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	b, err := LoadBrain(path)
	require.NoError(t, err)

	assert.Equal(t, 1.4, b.LTVMultiplier)
	assert.Equal(t, 30, b.WindowDays)
	assert.Equal(t, time.Minute, b.CacheMaxAge())
	assert.Equal(t, 3.0, b.Attribution.WinnerROAS)
	assert.Equal(t, 1.8, b.Attribution.LoserROAS, "unset fields keep defaults")
	assert.Equal(t, 4.0, b.Risk.Fatigue.Frequency)
	assert.Equal(t, DriftBaselineAverage, b.Risk.Drift.BaselineMode)
	assert.Equal(t, 5, b.Ranker.TopN)
}

func TestLoadBrainEnvOverride(t *testing.T) {
	t.Setenv("LTV_MULTIPLIER", "1.25")

	b, err := LoadBrain("")
	require.NoError(t, err)
	assert.Equal(t, 1.25, b.LTVMultiplier)
}

func TestLoadBrainInvalid(t *testing.T) {
	t.Setenv("LTV_MULTIPLIER", "0.5")
	_, err := LoadBrain("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ltv_multiplier")

	t.Setenv("LTV_MULTIPLIER", "")
	path := filepath.Join(t.TempDir(), "brain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk:\n  drift:\n    baseline_mode: median\n"), 0o644))
	_, err = LoadBrain(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline_mode")
}

func TestValidateRejectsNegativeRankerWeights(t *testing.T) {
	for _, set := range []func(*Ranker){
		func(r *Ranker) { r.ConfidenceWeight = -0.35 },
		func(r *Ranker) { r.UrgencyWeight = -1 },
		func(r *Ranker) { r.ImpactWeight = -0.3 },
		func(r *Ranker) { r.ImpactCapUSD = -50000 },
	} {
		b := DefaultBrain()
		set(&b.Ranker)
		err := b.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be >= 0")
	}

	path := filepath.Join(t.TempDir(), "brain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranker:\n  impact_weight: -0.3\n"), 0o644))
	_, err := LoadBrain(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranker.impact_weight")
}

func TestLoadBrainMissingFile(t *testing.T) {
	_, err := LoadBrain(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
