package models

import (
	"encoding/json"
	"fmt"
)

type RiskKind string

const (
	RiskCreativeFatigue RiskKind = "creative_fatigue"
	RiskChannelROIDecay RiskKind = "channel_roi_decay"
	RiskCohortLTVDrift  RiskKind = "cohort_ltv_drift"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

type Trend string

const (
	TrendDeclining   Trend = "declining"
	TrendStabilizing Trend = "stabilizing"
	TrendImproving   Trend = "improving"
)

// RiskFinding is produced fresh on every run. Detail carries the kind-specific payload
// and always matches Kind.
type RiskFinding struct {
	Kind           RiskKind   `json:"kind"`
	EntityIDs      []string   `json:"entity_ids"`
	Severity       Severity   `json:"severity"`
	Probability    float64    `json:"probability,omitempty"`
	Recommendation string     `json:"recommendation"`
	Rationale      string     `json:"rationale"`
	Detail         RiskDetail `json:"detail"`
}

// PrimaryEntity is the first referenced entity id, or "".
func (f RiskFinding) PrimaryEntity() string {
	if len(f.EntityIDs) == 0 {
		return ""
	}
	return f.EntityIDs[0]
}

// RiskDetail is sealed: only the three detail types below implement it.
type RiskDetail interface {
	riskKind() RiskKind
}

type FatigueDetail struct {
	CreativeID      string  `json:"creative_id"`
	CreativeName    string  `json:"creative_name"`
	ChannelID       string  `json:"channel_id"`
	BaselineCVR     float64 `json:"baseline_cvr"`
	RecentCVR       float64 `json:"recent_cvr"`
	CVRDropPct      float64 `json:"cvr_drop_pct"`
	RecentFrequency float64 `json:"recent_frequency"`
	AvgDailySpend   float64 `json:"avg_daily_spend"`
	IsFatiguing     bool    `json:"is_fatiguing"`
	RecentDays      int     `json:"recent_days"`
	BaselineDays    int     `json:"baseline_days"`
}

type DecayDetail struct {
	ChannelID     string  `json:"channel_id"`
	ChannelName   string  `json:"channel_name"`
	BaselineROAS  float64 `json:"baseline_roas"`
	RecentROAS    float64 `json:"recent_roas"`
	DecayPct      float64 `json:"decay_pct"`
	AvgDailySpend float64 `json:"avg_daily_spend"`
}

type DriftDetail struct {
	RecentMonth     string  `json:"recent_month"`
	BaselineLabel   string  `json:"baseline_label"`
	BaselineLTV90   float64 `json:"baseline_ltv_90"`
	MidLTV90        float64 `json:"mid_ltv_90"`
	RecentLTV90     float64 `json:"recent_ltv_90"`
	DriftPct        float64 `json:"drift_pct"`
	Trend           Trend   `json:"trend"`
	RecentCustomers int64   `json:"recent_customers"`
}

func (FatigueDetail) riskKind() RiskKind { return RiskCreativeFatigue }
func (DecayDetail) riskKind() RiskKind   { return RiskChannelROIDecay }
func (DriftDetail) riskKind() RiskKind   { return RiskCohortLTVDrift }

// UnmarshalJSON rebuilds the concrete Detail from Kind (needed for cached states).
func (f *RiskFinding) UnmarshalJSON(b []byte) error {
	type alias RiskFinding
	var raw struct {
		alias
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = RiskFinding(raw.alias)
	f.Detail = nil
	if len(raw.Detail) == 0 || string(raw.Detail) == "null" {
		return nil
	}
	switch f.Kind {
	case RiskCreativeFatigue:
		var d FatigueDetail
		if err := json.Unmarshal(raw.Detail, &d); err != nil {
			return err
		}
		f.Detail = d
	case RiskChannelROIDecay:
		var d DecayDetail
		if err := json.Unmarshal(raw.Detail, &d); err != nil {
			return err
		}
		f.Detail = d
	case RiskCohortLTVDrift:
		var d DriftDetail
		if err := json.Unmarshal(raw.Detail, &d); err != nil {
			return err
		}
		f.Detail = d
	default:
		return fmt.Errorf("unknown risk kind %q", f.Kind)
	}
	return nil
}
