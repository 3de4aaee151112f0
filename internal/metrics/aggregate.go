package metrics

import (
	"sort"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

type channelAcc struct {
	ch      models.Channel
	spend   float64
	revenue float64
}

// Aggregate rolls the snapshot's daily metrics up into totals and a per-channel breakdown.
// Only active channels count. Ratios are rounded when the output is built, never while
// accumulating. An empty snapshot yields a zero state.
func Aggregate(snap *models.OrgSnapshot, cfg config.Attribution, ltvMultiplier float64) models.MemoryState {
	out := models.MemoryState{Channels: []models.ChannelSummary{}}
	if snap == nil {
		return out
	}

	accs := make(map[string]*channelAcc, len(snap.Channels))
	for _, ch := range snap.Channels {
		if ch.Active {
			accs[ch.ID] = &channelAcc{ch: ch}
		}
	}

	var totalSpend, totalRevenue float64
	days := map[int64]struct{}{}
	for _, m := range snap.DailyMetrics {
		acc, ok := accs[m.ChannelID]
		if !ok {
			continue
		}
		acc.spend += m.Spend
		acc.revenue += m.Revenue
		totalSpend += m.Spend
		totalRevenue += m.Revenue
		days[models.Day(m.Date).Unix()] = struct{}{}
	}

	blended := utils.SafeDiv(totalRevenue, totalSpend)
	if ltvMultiplier < 1 {
		ltvMultiplier = 1
	}

	out.TotalSpend = utils.Round2(totalSpend)
	out.TotalRevenue = utils.Round2(totalRevenue)
	out.BlendedROAS = utils.Round2(blended)
	out.LTVROAS = utils.Round2(blended * ltvMultiplier)
	out.DaysCovered = len(days)

	for _, acc := range accs {
		roas := utils.SafeDiv(acc.revenue, acc.spend)
		out.Channels = append(out.Channels, models.ChannelSummary{
			ID:           acc.ch.ID,
			Name:         acc.ch.Name,
			Platform:     acc.ch.Platform,
			Spend:        utils.Round2(acc.spend),
			Revenue:      utils.Round2(acc.revenue),
			ROAS:         utils.Round2(roas),
			Status:       Classify(roas, cfg),
			Contribution: utils.Round2(utils.SafeDiv(acc.revenue, totalRevenue) * 100),
		})
	}

	// orden determinista
	sort.Slice(out.Channels, func(i, j int) bool {
		a, b := out.Channels[i], out.Channels[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ID < b.ID
	})
	return out
}

// Classify maps a ROAS to a channel status. Both cut-offs are exclusive, so a ROAS exactly
// on either boundary is neutral.
func Classify(roas float64, cfg config.Attribution) models.ChannelStatus {
	switch {
	case roas > cfg.WinnerROAS:
		return models.StatusWinner
	case roas < cfg.LoserROAS:
		return models.StatusLoser
	default:
		return models.StatusNeutral
	}
}
