package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Brain holds every tunable of the pipeline. Zero fields are filled by Defaults.
type Brain struct {
	LTVMultiplier       float64     `yaml:"ltv_multiplier"`
	WindowDays          int         `yaml:"window_days"` // 0 = all history
	FetchTimeoutSeconds int         `yaml:"fetch_timeout_seconds"`
	CacheMaxAgeSeconds  int         `yaml:"cache_max_age_seconds"`
	Attribution         Attribution `yaml:"attribution"`
	Risk                Risk        `yaml:"risk"`
	Ranker              Ranker      `yaml:"ranker"`
}

func (b Brain) FetchTimeout() time.Duration {
	return time.Duration(b.FetchTimeoutSeconds) * time.Second
}

func (b Brain) CacheMaxAge() time.Duration {
	return time.Duration(b.CacheMaxAgeSeconds) * time.Second
}

// Attribution holds the channel status cut-offs. Both are exclusive.
type Attribution struct {
	WinnerROAS float64 `yaml:"winner_roas"`
	LoserROAS  float64 `yaml:"loser_roas"`
}

type Risk struct {
	Fatigue Fatigue `yaml:"fatigue"`
	Decay   Decay   `yaml:"decay"`
	Drift   Drift   `yaml:"drift"`
}

type Fatigue struct {
	RecentDays    int     `yaml:"recent_days"`
	BaselineDays  int     `yaml:"baseline_days"`
	MinWindowDays int     `yaml:"min_window_days"`
	CVRDropPct    float64 `yaml:"cvr_drop_pct"`
	Frequency     float64 `yaml:"frequency"`
}

type Decay struct {
	RecentDays    int     `yaml:"recent_days"`
	BaselineDays  int     `yaml:"baseline_days"`
	MinWindowDays int     `yaml:"min_window_days"`
	HighPct       float64 `yaml:"high_pct"`
	MediumPct     float64 `yaml:"medium_pct"`
	LowPct        float64 `yaml:"low_pct"`
}

const (
	DriftBaselineOffset  = "offset"
	DriftBaselineAverage = "average"
)

type Drift struct {
	BaselineMode         string  `yaml:"baseline_mode"` // offset | average
	BaselineOffsetMonths int     `yaml:"baseline_offset_months"`
	StableBandPct        float64 `yaml:"stable_band_pct"`
	HighPct              float64 `yaml:"high_pct"`
	MediumPct            float64 `yaml:"medium_pct"`
	LowPct               float64 `yaml:"low_pct"`
}

type Ranker struct {
	TopN                 int     `yaml:"top_n"`
	ConfidenceWeight     float64 `yaml:"confidence_weight"`
	UrgencyWeight        float64 `yaml:"urgency_weight"`
	ImpactWeight         float64 `yaml:"impact_weight"`
	ImpactCapUSD         float64 `yaml:"impact_cap_usd"`
	ShiftSharePct        float64 `yaml:"shift_share_pct"`
	ScaleStepPct         float64 `yaml:"scale_step_pct"`
	DiminishingReturn    float64 `yaml:"diminishing_return"`
	FrequencyLossPct     float64 `yaml:"frequency_loss_pct"`
	RetentionRecoveryPct float64 `yaml:"retention_recovery_pct"`
}

// DefaultBrain returns the stock thresholds.
func DefaultBrain() Brain {
	var b Brain
	b.Defaults()
	return b
}

// Defaults fills every zero field with its stock value.
func (b *Brain) Defaults() {
	setF(&b.LTVMultiplier, 1.0)
	setI(&b.FetchTimeoutSeconds, 10)
	setI(&b.CacheMaxAgeSeconds, 900)

	setF(&b.Attribution.WinnerROAS, 2.5)
	setF(&b.Attribution.LoserROAS, 1.8)

	f := &b.Risk.Fatigue
	setI(&f.RecentDays, 7)
	setI(&f.BaselineDays, 14)
	setI(&f.MinWindowDays, 3)
	setF(&f.CVRDropPct, 20)
	setF(&f.Frequency, 3.5)

	d := &b.Risk.Decay
	setI(&d.RecentDays, 7)
	setI(&d.BaselineDays, 14)
	setI(&d.MinWindowDays, 3)
	setF(&d.HighPct, 25)
	setF(&d.MediumPct, 10)
	setF(&d.LowPct, 5)

	dr := &b.Risk.Drift
	if dr.BaselineMode == "" {
		dr.BaselineMode = DriftBaselineOffset
	}
	setI(&dr.BaselineOffsetMonths, 3)
	setF(&dr.StableBandPct, 2)
	setF(&dr.HighPct, 25)
	setF(&dr.MediumPct, 10)
	setF(&dr.LowPct, 5)

	r := &b.Ranker
	setI(&r.TopN, 3)
	setF(&r.ConfidenceWeight, 0.35)
	setF(&r.UrgencyWeight, 0.35)
	setF(&r.ImpactWeight, 0.30)
	setF(&r.ImpactCapUSD, 100_000)
	setF(&r.ShiftSharePct, 20)
	setF(&r.ScaleStepPct, 15)
	setF(&r.DiminishingReturn, 0.8)
	setF(&r.FrequencyLossPct, 10)
	setF(&r.RetentionRecoveryPct, 50)
}

func (b Brain) Validate() error {
	var errs []error
	if b.LTVMultiplier < 1 {
		errs = append(errs, fmt.Errorf("ltv_multiplier must be >= 1, got %v", b.LTVMultiplier))
	}
	if b.WindowDays < 0 {
		errs = append(errs, errors.New("window_days must be >= 0"))
	}
	if b.Attribution.LoserROAS > b.Attribution.WinnerROAS {
		errs = append(errs, errors.New("attribution.loser_roas must not exceed winner_roas"))
	}
	if b.Risk.Decay.MediumPct > b.Risk.Decay.HighPct || b.Risk.Decay.LowPct > b.Risk.Decay.MediumPct {
		errs = append(errs, errors.New("risk.decay bands must satisfy low <= medium <= high"))
	}
	if b.Risk.Drift.MediumPct > b.Risk.Drift.HighPct || b.Risk.Drift.LowPct > b.Risk.Drift.MediumPct {
		errs = append(errs, errors.New("risk.drift bands must satisfy low <= medium <= high"))
	}
	switch b.Risk.Drift.BaselineMode {
	case DriftBaselineOffset, DriftBaselineAverage:
	default:
		errs = append(errs, fmt.Errorf("risk.drift.baseline_mode %q is not offset|average", b.Risk.Drift.BaselineMode))
	}
	if b.Ranker.TopN < 1 {
		errs = append(errs, errors.New("ranker.top_n must be >= 1"))
	}
	rk := b.Ranker
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"confidence_weight", rk.ConfidenceWeight},
		{"urgency_weight", rk.UrgencyWeight},
		{"impact_weight", rk.ImpactWeight},
		{"impact_cap_usd", rk.ImpactCapUSD},
	} {
		if w.v < 0 {
			errs = append(errs, fmt.Errorf("ranker.%s must be >= 0, got %v", w.name, w.v))
		}
	}
	return errors.Join(errs...)
}

// LoadBrain reads the YAML file at path (empty path = defaults only), applies
// defaults, then the LTV_MULTIPLIER env override, and validates.
func LoadBrain(path string) (Brain, error) {
	var b Brain
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Brain{}, err
		}
		if err := yaml.Unmarshal(data, &b); err != nil {
			return Brain{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	b.Defaults()

	if v := os.Getenv("LTV_MULTIPLIER"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Brain{}, fmt.Errorf("LTV_MULTIPLIER: %w", err)
		}
		b.LTVMultiplier = m
	}
	if err := b.Validate(); err != nil {
		return Brain{}, err
	}
	return b, nil
}

func setF(p *float64, def float64) {
	if *p == 0 {
		*p = def
	}
}

func setI(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}
