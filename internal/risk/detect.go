package risk

import (
	"sort"
	"time"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
)

// Detect runs the fatigue, decay and drift analyzers over one snapshot and scores the
// result. It never fails: entities without enough history are counted in Skipped.
func Detect(snap *models.OrgSnapshot, cfg config.Risk) models.OracleState {
	out := models.OracleState{Findings: []models.RiskFinding{}, RiskLevel: models.RiskGreen}
	if snap == nil {
		return out
	}
	asOf := AsOf(snap)
	out.AsOf = asOf

	fat, s1 := AnalyzeFatigue(snap, asOf, cfg.Fatigue)
	dec, s2 := AnalyzeDecay(snap, asOf, cfg.Decay)
	dr, s3 := AnalyzeDrift(snap.Cohorts, cfg.Drift)

	out.Findings = append(out.Findings, fat...)
	out.Findings = append(out.Findings, dec...)
	out.Findings = append(out.Findings, dr...)
	out.Skipped = s1 + s2 + s3
	SortFindings(out.Findings)

	out.RiskScore, out.RiskLevel = Score(out.Findings)
	return out
}

// AsOf is the snapshot's as-of day, or the latest metric date when it has none.
func AsOf(snap *models.OrgSnapshot) time.Time {
	if !snap.AsOf.IsZero() {
		return models.Day(snap.AsOf)
	}
	var last time.Time
	for _, m := range snap.DailyMetrics {
		if m.Date.After(last) {
			last = m.Date
		}
	}
	for _, m := range snap.CreativeDailyMetrics {
		if m.Date.After(last) {
			last = m.Date
		}
	}
	if last.IsZero() {
		return last
	}
	return models.Day(last)
}

// SortFindings orders by severity desc, then kind, then primary entity.
func SortFindings(fs []models.RiskFinding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.PrimaryEntity() < b.PrimaryEntity()
	})
}

type bucket int

const (
	outside bucket = iota
	recent
	baseline
)

// windowOf places a date in the recent window (offsets 0..recentDays-1), the baseline
// window (the next baselineDays) or neither. Dates after asOf are ignored.
func windowOf(asOf, date time.Time, recentDays, baselineDays int) bucket {
	off := int(asOf.Sub(models.Day(date)).Hours() / 24)
	switch {
	case off < 0:
		return outside
	case off < recentDays:
		return recent
	case off < recentDays+baselineDays:
		return baseline
	}
	return outside
}

// bandSeverity maps a percentage drop onto the high/medium/low bands.
// ok is false below the low band.
func bandSeverity(pct, high, medium, low float64) (models.Severity, bool) {
	switch {
	case pct >= high:
		return models.SeverityHigh, true
	case pct >= medium:
		return models.SeverityMedium, true
	case pct >= low:
		return models.SeverityLow, true
	}
	return "", false
}
