package risk

import (
	"fmt"
	"sort"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

const monthLayout = "2006-01"

// AnalyzeDrift compares the latest cohort's 90-day LTV with its baseline. At most one
// finding; skipped is 1 when cohorts exist but are too few for the baseline.
func AnalyzeDrift(cohorts []models.Cohort, cfg config.Drift) ([]models.RiskFinding, int) {
	d, ok := EvaluateCohorts(cohorts, cfg)
	if !ok {
		if len(usable(cohorts)) > 0 {
			return nil, 1
		}
		return nil, 0
	}
	if d.Trend == models.TrendImproving {
		return nil, 0
	}
	sev, hit := bandSeverity(d.DriftPct, cfg.HighPct, cfg.MediumPct, cfg.LowPct)
	if !hit {
		return nil, 0
	}
	return []models.RiskFinding{{
		Kind:      models.RiskCohortLTVDrift,
		EntityIDs: []string{d.RecentMonth},
		Severity:  sev,
		Recommendation: fmt.Sprintf("Invest in retention for the %s cohort: 90-day LTV down %.1f%% vs %s.",
			d.RecentMonth, d.DriftPct, d.BaselineLabel),
		Rationale: fmt.Sprintf("LTV90 %.2f vs baseline %.2f, trend %s.", d.RecentLTV90, d.BaselineLTV90, d.Trend),
		Detail:    d,
	}}, 0
}

// EvaluateCohorts builds the drift detail for the most recent cohort. ok is false when
// there are not enough usable cohorts for the configured baseline.
func EvaluateCohorts(cohorts []models.Cohort, cfg config.Drift) (models.DriftDetail, bool) {
	cs := usable(cohorts)
	n := len(cs)

	var base float64
	var baseIdx int
	var baseLabel string
	switch cfg.BaselineMode {
	case config.DriftBaselineAverage:
		if n < 2 {
			return models.DriftDetail{}, false
		}
		var ltv, customers float64
		for _, c := range cs[:n-1] {
			ltv += c.LTV90 * float64(c.Customers)
			customers += float64(c.Customers)
		}
		base = utils.SafeDiv(ltv, customers)
		baseIdx = 0
		baseLabel = fmt.Sprintf("avg %s..%s", cs[0].Month.Format(monthLayout), cs[n-2].Month.Format(monthLayout))
	default:
		off := cfg.BaselineOffsetMonths
		if off < 1 || n < off+1 {
			return models.DriftDetail{}, false
		}
		baseIdx = n - 1 - off
		base = cs[baseIdx].LTV90
		baseLabel = cs[baseIdx].Month.Format(monthLayout)
	}

	last := cs[n-1]
	mid := cs[(baseIdx+n-1)/2].LTV90
	band := cfg.StableBandPct / 100

	trend := models.TrendStabilizing
	switch {
	case last.LTV90 > base*(1+band):
		trend = models.TrendImproving
	case last.LTV90 < mid*(1-band):
		trend = models.TrendDeclining
	}

	return models.DriftDetail{
		RecentMonth:     last.Month.Format(monthLayout),
		BaselineLabel:   baseLabel,
		BaselineLTV90:   utils.Round2(base),
		MidLTV90:        utils.Round2(mid),
		RecentLTV90:     utils.Round2(last.LTV90),
		DriftPct:        utils.Round2(utils.PctDrop(base, last.LTV90)),
		Trend:           trend,
		RecentCustomers: last.Customers,
	}, true
}

// usable keeps cohorts with customers and a 90-day value, oldest first.
func usable(cohorts []models.Cohort) []models.Cohort {
	out := make([]models.Cohort, 0, len(cohorts))
	for _, c := range cohorts {
		if c.Customers > 0 && c.LTV90 > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
