package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

// AnalyzeFatigue evaluates every active creative and returns a finding for each one
// that is fatiguing, plus how many were skipped for short history.
func AnalyzeFatigue(snap *models.OrgSnapshot, asOf time.Time, cfg config.Fatigue) ([]models.RiskFinding, int) {
	byCreative := map[string][]models.CreativeDailyMetric{}
	for _, m := range snap.CreativeDailyMetrics {
		byCreative[m.CreativeID] = append(byCreative[m.CreativeID], m)
	}

	creatives := make([]models.Creative, 0, len(snap.Creatives))
	for _, c := range snap.Creatives {
		if c.Status == models.CreativeActive {
			creatives = append(creatives, c)
		}
	}
	sort.Slice(creatives, func(i, j int) bool { return creatives[i].ID < creatives[j].ID })

	var out []models.RiskFinding
	skipped := 0
	for _, c := range creatives {
		d, ok := EvaluateCreative(c, byCreative[c.ID], asOf, cfg)
		if !ok {
			skipped++
			continue
		}
		if !d.IsFatiguing {
			continue
		}
		out = append(out, fatigueFinding(d, cfg))
	}
	return out, skipped
}

// EvaluateCreative compares the creative's recent and baseline windows. ok is false when
// either window has fewer than MinWindowDays days of data.
func EvaluateCreative(c models.Creative, rows []models.CreativeDailyMetric, asOf time.Time, cfg config.Fatigue) (models.FatigueDetail, bool) {
	var recentCVR, baseCVR, recentFreq []float64
	var recentSpend float64
	for _, r := range rows {
		switch windowOf(asOf, r.Date, cfg.RecentDays, cfg.BaselineDays) {
		case recent:
			recentCVR = append(recentCVR, dailyCVR(r))
			recentFreq = append(recentFreq, r.Frequency)
			recentSpend += r.Spend
		case baseline:
			baseCVR = append(baseCVR, dailyCVR(r))
		}
	}
	if len(recentCVR) < cfg.MinWindowDays || len(baseCVR) < cfg.MinWindowDays {
		return models.FatigueDetail{}, false
	}

	base := utils.Mean(baseCVR)
	cur := utils.Mean(recentCVR)
	freq := utils.Mean(recentFreq)
	drop := utils.PctDrop(base, cur)

	return models.FatigueDetail{
		CreativeID:      c.ID,
		CreativeName:    c.Name,
		ChannelID:       c.ChannelID,
		BaselineCVR:     utils.Round2(base),
		RecentCVR:       utils.Round2(cur),
		CVRDropPct:      utils.Round2(drop),
		RecentFrequency: utils.Round2(freq),
		AvgDailySpend:   utils.Round2(recentSpend / float64(len(recentCVR))),
		IsFatiguing:     drop > cfg.CVRDropPct || freq > cfg.Frequency,
		RecentDays:      len(recentCVR),
		BaselineDays:    len(baseCVR),
	}, true
}

// FatigueProbability is the larger of the CVR-drop signal (saturating at 50%) and the
// frequency signal (saturating at twice the threshold).
func FatigueProbability(cvrDropPct, frequency float64, cfg config.Fatigue) float64 {
	byDrop := utils.Clamp01(cvrDropPct / 50)
	byFreq := utils.Clamp01(utils.SafeDiv(frequency, 2*cfg.Frequency))
	if byFreq > byDrop {
		return byFreq
	}
	return byDrop
}

func probabilitySeverity(p float64) models.Severity {
	switch {
	case p >= 0.7:
		return models.SeverityHigh
	case p >= 0.4:
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// CVR from the record; derived from clicks when the source left it empty.
func dailyCVR(r models.CreativeDailyMetric) float64 {
	if r.ConversionRate == 0 && r.Clicks > 0 {
		return r.Conversions / float64(r.Clicks) * 100
	}
	return r.ConversionRate
}

func fatigueFinding(d models.FatigueDetail, cfg config.Fatigue) models.RiskFinding {
	p := utils.Round2(FatigueProbability(d.CVRDropPct, d.RecentFrequency, cfg))
	ids := []string{d.CreativeID}
	if d.ChannelID != "" {
		ids = append(ids, d.ChannelID)
	}
	return models.RiskFinding{
		Kind:        models.RiskCreativeFatigue,
		EntityIDs:   ids,
		Severity:    probabilitySeverity(p),
		Probability: p,
		Recommendation: fmt.Sprintf("Pause or rotate creative %q: conversion rate down %.1f%% vs baseline at frequency %.1f.",
			d.CreativeName, d.CVRDropPct, d.RecentFrequency),
		Rationale: fmt.Sprintf("CVR %.2f%% over the last %d days vs %.2f%% over the prior %d days.",
			d.RecentCVR, d.RecentDays, d.BaselineCVR, d.BaselineDays),
		Detail: d,
	}
}
