package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

// AnalyzeDecay flags active channels whose recent ROAS fell below their baseline ROAS by
// at least the low band.
func AnalyzeDecay(snap *models.OrgSnapshot, asOf time.Time, cfg config.Decay) ([]models.RiskFinding, int) {
	byChannel := map[string][]models.DailyMetric{}
	for _, m := range snap.DailyMetrics {
		byChannel[m.ChannelID] = append(byChannel[m.ChannelID], m)
	}

	chans := make([]models.Channel, 0, len(snap.Channels))
	for _, c := range snap.Channels {
		if c.Active {
			chans = append(chans, c)
		}
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i].ID < chans[j].ID })

	var out []models.RiskFinding
	skipped := 0
	for _, ch := range chans {
		d, ok := EvaluateChannel(ch, byChannel[ch.ID], asOf, cfg)
		if !ok {
			skipped++
			continue
		}
		sev, hit := bandSeverity(d.DecayPct, cfg.HighPct, cfg.MediumPct, cfg.LowPct)
		if !hit {
			continue
		}
		out = append(out, models.RiskFinding{
			Kind:      models.RiskChannelROIDecay,
			EntityIDs: []string{ch.ID},
			Severity:  sev,
			Recommendation: fmt.Sprintf("Shift budget away from %s: ROAS down %.1f%% vs baseline.",
				label(ch), d.DecayPct),
			Rationale: fmt.Sprintf("ROAS %.2f over the last %d days vs %.2f over the prior %d days.",
				d.RecentROAS, cfg.RecentDays, d.BaselineROAS, cfg.BaselineDays),
			Detail: d,
		})
	}
	return out, skipped
}

// EvaluateChannel computes recent and baseline ROAS for one channel. ok is false when
// either window has fewer than MinWindowDays distinct days.
func EvaluateChannel(ch models.Channel, rows []models.DailyMetric, asOf time.Time, cfg config.Decay) (models.DecayDetail, bool) {
	var rSpend, rRev, bSpend, bRev float64
	rDays := map[int64]struct{}{}
	bDays := map[int64]struct{}{}
	for _, m := range rows {
		switch windowOf(asOf, m.Date, cfg.RecentDays, cfg.BaselineDays) {
		case recent:
			rSpend += m.Spend
			rRev += m.Revenue
			rDays[models.Day(m.Date).Unix()] = struct{}{}
		case baseline:
			bSpend += m.Spend
			bRev += m.Revenue
			bDays[models.Day(m.Date).Unix()] = struct{}{}
		}
	}
	if len(rDays) < cfg.MinWindowDays || len(bDays) < cfg.MinWindowDays {
		return models.DecayDetail{}, false
	}

	base := utils.SafeDiv(bRev, bSpend)
	cur := utils.SafeDiv(rRev, rSpend)
	return models.DecayDetail{
		ChannelID:     ch.ID,
		ChannelName:   ch.Name,
		BaselineROAS:  utils.Round2(base),
		RecentROAS:    utils.Round2(cur),
		DecayPct:      utils.Round2(utils.PctDrop(base, cur)),
		AvgDailySpend: utils.Round2(rSpend / float64(len(rDays))),
	}, true
}

func label(ch models.Channel) string {
	if ch.Name != "" {
		return ch.Name
	}
	return ch.ID
}
