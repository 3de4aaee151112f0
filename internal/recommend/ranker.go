package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

// ids are UUIDv5 under this namespace, so the same action always gets the same id
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("adbrain/recommendations"))

const daysPerMonth = 30

// Rank turns the Memory and Oracle states into scored actions and keeps the best TopN.
// No candidates (an empty Memory included) gives an empty list and zero opportunity.
func Rank(mem models.MemoryState, oracle models.OracleState, cfg config.Ranker) models.CuriosityState {
	out := models.CuriosityState{
		Actions:          []models.ActionRecommendation{},
		TotalOpportunity: utils.FormatMonthlyUSD(0),
	}
	if len(mem.Channels) == 0 {
		return out
	}

	b := builder{mem: mem, cfg: cfg, decaying: map[string]bool{}}
	for _, f := range oracle.Findings {
		switch d := f.Detail.(type) {
		case models.FatigueDetail:
			b.fromFatigue(f, d)
		case models.DecayDetail:
			b.decaying[d.ChannelID] = true
			b.fromDecay(f, d)
		case models.DriftDetail:
			b.fromDrift(f, d)
		}
	}
	for _, ch := range mem.Channels {
		// dormant channels have no budget to move or grow
		if b.decaying[ch.ID] || ch.Spend <= 0 {
			continue
		}
		switch ch.Status {
		case models.StatusWinner:
			b.scaleWinner(ch)
		case models.StatusLoser:
			b.shiftLoser(ch)
		}
	}

	cands := dedupe(b.cands)
	sortActions(cands)
	out.CandidateCount = len(cands)

	n := cfg.TopN
	if n > len(cands) {
		n = len(cands)
	}
	if n < 0 {
		n = 0
	}
	out.Actions = cands[:n]

	var total float64
	for _, a := range out.Actions {
		total += a.EstimatedImpactUSD
	}
	out.TotalOpportunityUSD = utils.Round2(total)
	out.TotalOpportunity = utils.FormatMonthlyUSD(total)
	return out
}

type builder struct {
	mem      models.MemoryState
	cfg      config.Ranker
	decaying map[string]bool
	cands    []models.ActionRecommendation
}

func (b *builder) monthly(windowAmount float64) float64 {
	return utils.SafeDiv(windowAmount, float64(b.mem.DaysCovered)) * daysPerMonth
}

// bestWinner is the highest-ROAS winner other than exclude; ok is false when there is none.
func (b *builder) bestWinner(exclude string) (models.ChannelSummary, bool) {
	var best models.ChannelSummary
	found := false
	for _, ch := range b.mem.Channels {
		if ch.ID == exclude || ch.Status != models.StatusWinner {
			continue
		}
		if !found || ch.ROAS > best.ROAS || (ch.ROAS == best.ROAS && ch.ID < best.ID) {
			best, found = ch, true
		}
	}
	return best, found
}

func (b *builder) channelName(id string) string {
	for _, ch := range b.mem.Channels {
		if ch.ID == id && ch.Name != "" {
			return ch.Name
		}
	}
	return id
}

func (b *builder) fromFatigue(f models.RiskFinding, d models.FatigueDetail) {
	loss := math.Max(d.CVRDropPct, b.cfg.FrequencyLossPct)
	impact := d.AvgDailySpend * daysPerMonth * loss / 100
	name := d.CreativeName
	if name == "" {
		name = d.CreativeID
	}
	b.add(candidate{
		typ:        models.ActionPauseCreative,
		title:      fmt.Sprintf("Pause or rotate creative %q", name),
		desc:       f.Recommendation,
		rationale:  f.Rationale,
		entities:   f.EntityIDs,
		impact:     impact,
		confidence: 50 + 50*f.Probability,
		urgency:    severityUrgency(f.Severity),
		vars: phraseVars{
			entity: name,
			delta:  fmt.Sprintf("CVR %.2f%% -> %.2f%% (-%.1f%%), frequency %.1f", d.BaselineCVR, d.RecentCVR, d.CVRDropPct, d.RecentFrequency),
		},
	})
}

func (b *builder) fromDecay(f models.RiskFinding, d models.DecayDetail) {
	targetROAS, target, entities := b.target(d.ChannelID)
	impact := d.AvgDailySpend * daysPerMonth * b.cfg.ShiftSharePct / 100 * math.Max(0, targetROAS-d.RecentROAS)
	b.add(candidate{
		typ:        models.ActionShiftBudget,
		title:      fmt.Sprintf("Shift %.0f%% of %s budget to %s", b.cfg.ShiftSharePct, b.channelName(d.ChannelID), target),
		desc:       f.Recommendation,
		rationale:  f.Rationale,
		entities:   entities,
		impact:     impact,
		confidence: severityConfidence(f.Severity),
		urgency:    utils.Clamp(40+2*d.DecayPct, 0, 100),
		vars: phraseVars{
			entity: b.channelName(d.ChannelID),
			target: target,
			delta:  fmt.Sprintf("ROAS %.2f -> %.2f (-%.1f%%)", d.BaselineROAS, d.RecentROAS, d.DecayPct),
		},
	})
}

func (b *builder) fromDrift(f models.RiskFinding, d models.DriftDetail) {
	impact := math.Max(0, d.BaselineLTV90-d.RecentLTV90) * float64(d.RecentCustomers) * b.cfg.RetentionRecoveryPct / 100
	urgency := 30 + 2*d.DriftPct
	if d.Trend == models.TrendDeclining {
		urgency += 10
	}
	b.add(candidate{
		typ:        models.ActionFocusRetention,
		title:      fmt.Sprintf("Focus on retention for the %s cohort", d.RecentMonth),
		desc:       f.Recommendation,
		rationale:  f.Rationale,
		entities:   f.EntityIDs,
		impact:     impact,
		confidence: severityConfidence(f.Severity) - 10, // LTV90 of a young cohort is still moving
		urgency:    utils.Clamp(urgency, 0, 100),
		vars: phraseVars{
			entity: d.RecentMonth,
			delta:  fmt.Sprintf("LTV90 %.2f -> %.2f (-%.1f%%, %s)", d.BaselineLTV90, d.RecentLTV90, d.DriftPct, d.Trend),
		},
	})
}

func (b *builder) scaleWinner(ch models.ChannelSummary) {
	impact := b.monthly(ch.Spend) * b.cfg.ScaleStepPct / 100 * math.Max(0, ch.ROAS*b.cfg.DiminishingReturn-1)
	if impact <= 0 {
		return
	}
	b.add(candidate{
		typ:        models.ActionIncreaseBudget,
		title:      fmt.Sprintf("Increase %s budget by %.0f%%", channelLabel(ch), b.cfg.ScaleStepPct),
		desc:       fmt.Sprintf("%s returns %.2f per dollar; scale it while returns hold.", channelLabel(ch), ch.ROAS),
		rationale:  fmt.Sprintf("ROAS %.2f, %.1f%% of revenue.", ch.ROAS, ch.Contribution),
		entities:   []string{ch.ID},
		impact:     impact,
		confidence: utils.Clamp(55+ch.Contribution/2, 0, 95),
		urgency:    40,
		vars: phraseVars{
			entity: channelLabel(ch),
			delta:  fmt.Sprintf("ROAS %.2f, %.1f%% of revenue", ch.ROAS, ch.Contribution),
		},
	})
}

func (b *builder) shiftLoser(ch models.ChannelSummary) {
	targetROAS, target, entities := b.target(ch.ID)
	gap := math.Max(0, targetROAS-ch.ROAS)
	impact := b.monthly(ch.Spend) * b.cfg.ShiftSharePct / 100 * gap
	if impact <= 0 {
		return
	}
	b.add(candidate{
		typ:        models.ActionShiftBudget,
		title:      fmt.Sprintf("Shift %.0f%% of %s budget to %s", b.cfg.ShiftSharePct, channelLabel(ch), target),
		desc:       fmt.Sprintf("%s returns %.2f per dollar, below the rest of the mix.", channelLabel(ch), ch.ROAS),
		rationale:  fmt.Sprintf("ROAS %.2f vs %.2f on %s.", ch.ROAS, targetROAS, target),
		entities:   entities,
		impact:     impact,
		confidence: 65,
		urgency:    utils.Clamp(45+10*gap, 0, 100),
		vars: phraseVars{
			entity: channelLabel(ch),
			target: target,
			delta:  fmt.Sprintf("ROAS %.2f vs %.2f", ch.ROAS, targetROAS),
		},
	})
}

// target picks where shifted budget goes: the best winner, or the blended mix.
func (b *builder) target(from string) (float64, string, []string) {
	if w, ok := b.bestWinner(from); ok {
		return w.ROAS, channelLabel(w), []string{from, w.ID}
	}
	return b.mem.BlendedROAS, "the blended mix", []string{from}
}

type candidate struct {
	typ         models.ActionType
	title, desc string
	rationale   string
	entities    []string
	impact      float64
	confidence  float64
	urgency     float64
	vars        phraseVars
}

func (b *builder) add(c candidate) {
	impact := utils.Round2(c.impact)
	conf := utils.Clamp(c.confidence, 0, 100)
	urg := utils.Clamp(c.urgency, 0, 100)
	c.vars.impact = utils.FormatMonthlyUSD(impact)

	b.cands = append(b.cands, models.ActionRecommendation{
		ID:                 actionID(c.typ, c.entities),
		Type:               c.typ,
		Title:              c.title,
		Description:        c.desc,
		EstimatedImpactUSD: impact,
		EstimatedImpact:    utils.FormatMonthlyUSD(impact),
		Confidence:         LevelOf(conf),
		ConfidenceScore:    utils.Round1(conf),
		Urgency:            LevelOf(urg),
		UrgencyScore:       utils.Round1(urg),
		Score:              utils.Round2(CompositeScore(conf, urg, impact, b.cfg)),
		EntityIDs:          append([]string(nil), c.entities...),
		Rationale:          c.rationale,
		Personas:           personas(c.typ, c.vars),
	})
}

// CompositeScore blends confidence, urgency and a log-scaled impact, all on 0..100.
func CompositeScore(confidence, urgency, impactUSD float64, cfg config.Ranker) float64 {
	return cfg.ConfidenceWeight*confidence + cfg.UrgencyWeight*urgency + cfg.ImpactWeight*ImpactNorm(impactUSD, cfg.ImpactCapUSD)
}

// ImpactNorm maps dollars onto 0..100 on a log scale, saturating at capUSD.
func ImpactNorm(impactUSD, capUSD float64) float64 {
	if impactUSD <= 0 || capUSD <= 0 {
		return 0
	}
	return math.Min(100, 100*math.Log10(1+impactUSD)/math.Log10(1+capUSD))
}

func LevelOf(score float64) models.Level {
	switch {
	case score >= 75:
		return models.LevelHigh
	case score >= 50:
		return models.LevelMedium
	}
	return models.LevelLow
}

func severityConfidence(s models.Severity) float64 {
	switch s {
	case models.SeverityHigh:
		return 85
	case models.SeverityMedium:
		return 70
	}
	return 55
}

func severityUrgency(s models.Severity) float64 {
	switch s {
	case models.SeverityHigh:
		return 90
	case models.SeverityMedium:
		return 70
	}
	return 45
}

func actionID(t models.ActionType, entities []string) string {
	return uuid.NewSHA1(idSpace, []byte(string(t)+":"+strings.Join(entities, ","))).String()
}

func channelLabel(ch models.ChannelSummary) string {
	if ch.Name != "" {
		return ch.Name
	}
	return ch.ID
}

// dedupe keeps the best-scoring action per (type, primary entity).
func dedupe(in []models.ActionRecommendation) []models.ActionRecommendation {
	best := map[string]int{}
	out := make([]models.ActionRecommendation, 0, len(in))
	for _, a := range in {
		key := string(a.Type) + "|" + primary(a)
		i, seen := best[key]
		if !seen {
			best[key] = len(out)
			out = append(out, a)
			continue
		}
		if a.Score > out[i].Score {
			out[i] = a
		}
	}
	return out
}

func primary(a models.ActionRecommendation) string {
	if len(a.EntityIDs) == 0 {
		return ""
	}
	return a.EntityIDs[0]
}

// score desc, impact desc, id asc
func sortActions(as []models.ActionRecommendation) {
	sort.Slice(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.EstimatedImpactUSD != b.EstimatedImpactUSD {
			return a.EstimatedImpactUSD > b.EstimatedImpactUSD
		}
		return a.ID < b.ID
	})
}
