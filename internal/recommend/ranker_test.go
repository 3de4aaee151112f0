package recommend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
)

func rankerCfg() config.Ranker { return config.DefaultBrain().Ranker }

func memory() models.MemoryState {
	return models.MemoryState{
		TotalSpend:   234500,
		TotalRevenue: 702450,
		BlendedROAS:  3.0,
		DaysCovered:  30,
		Channels: []models.ChannelSummary{
			{ID: "meta", Name: "Meta Ads", Spend: 120000, Revenue: 438000, ROAS: 3.65, Status: models.StatusWinner, Contribution: 62.35},
			{ID: "google", Name: "Google Ads", Spend: 60000, Revenue: 141000, ROAS: 2.35, Status: models.StatusNeutral, Contribution: 20.07},
			{ID: "tiktok", Name: "TikTok Ads", Spend: 54500, Revenue: 123450, ROAS: 2.27, Status: models.StatusNeutral, Contribution: 17.57},
		},
	}
}

func oracle() models.OracleState {
	return models.OracleState{Findings: []models.RiskFinding{
		{
			Kind: models.RiskChannelROIDecay, EntityIDs: []string{"google"}, Severity: models.SeverityMedium,
			Detail: models.DecayDetail{ChannelID: "google", BaselineROAS: 2.6, RecentROAS: 2.0, DecayPct: 23.08, AvgDailySpend: 2000},
		},
		{
			Kind: models.RiskCohortLTVDrift, EntityIDs: []string{"2025-04"}, Severity: models.SeverityMedium,
			Detail: models.DriftDetail{RecentMonth: "2025-04", BaselineLTV90: 128, RecentLTV90: 112, DriftPct: 12.5, Trend: models.TrendDeclining, RecentCustomers: 400},
		},
		{
			Kind: models.RiskCreativeFatigue, EntityIDs: []string{"cr-1", "meta"}, Severity: models.SeverityMedium, Probability: 0.67,
			Detail: models.FatigueDetail{CreativeID: "cr-1", CreativeName: "Summer UGC", ChannelID: "meta", BaselineCVR: 7.8, RecentCVR: 5.2, CVRDropPct: 33.33, RecentFrequency: 2, AvgDailySpend: 500, IsFatiguing: true},
		},
	}}
}

func byType(t *testing.T, as []models.ActionRecommendation, typ models.ActionType) models.ActionRecommendation {
	t.Helper()
	for _, a := range as {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no %s action", typ)
	return models.ActionRecommendation{}
}

func TestRankTopN(t *testing.T) {
	cfg := rankerCfg()
	cfg.TopN = 10
	all := Rank(memory(), oracle(), cfg)
	require.Len(t, all.Actions, 4)
	assert.Equal(t, 4, all.CandidateCount)

	assert.Equal(t, 4999.5, byType(t, all.Actions, models.ActionPauseCreative).EstimatedImpactUSD)
	assert.Equal(t, 19800.0, byType(t, all.Actions, models.ActionShiftBudget).EstimatedImpactUSD)
	assert.Equal(t, 3200.0, byType(t, all.Actions, models.ActionFocusRetention).EstimatedImpactUSD)
	assert.Equal(t, 34560.0, byType(t, all.Actions, models.ActionIncreaseBudget).EstimatedImpactUSD)

	top := Rank(memory(), oracle(), rankerCfg())
	require.Len(t, top.Actions, 3)
	assert.Equal(t, 4, top.CandidateCount)
	assert.Equal(t, all.Actions[:3], top.Actions)

	var sum float64
	for i, a := range top.Actions {
		sum += a.EstimatedImpactUSD
		if i > 0 {
			assert.GreaterOrEqual(t, top.Actions[i-1].Score, a.Score)
		}
	}
	assert.InDelta(t, sum, top.TotalOpportunityUSD, 0.01)
	assert.True(t, strings.HasSuffix(top.TotalOpportunity, "/mo"))
}

func TestRankDeterministic(t *testing.T) {
	a := Rank(memory(), oracle(), rankerCfg())
	for i := 0; i < 5; i++ {
		assert.Equal(t, a, Rank(memory(), oracle(), rankerCfg()))
	}

	// input order does not change the output
	o := oracle()
	o.Findings[0], o.Findings[2] = o.Findings[2], o.Findings[0]
	assert.Equal(t, a, Rank(memory(), o, rankerCfg()))
}

func TestRankShiftTargetsBestWinner(t *testing.T) {
	st := Rank(memory(), oracle(), rankerCfg())
	shift := byType(t, st.Actions, models.ActionShiftBudget)
	assert.Equal(t, []string{"google", "meta"}, shift.EntityIDs)
	assert.Contains(t, shift.Title, "Meta Ads")
	assert.Equal(t, actionID(models.ActionShiftBudget, []string{"google", "meta"}), shift.ID)
}

func TestRankDecayingWinnerNotScaled(t *testing.T) {
	o := models.OracleState{Findings: []models.RiskFinding{{
		Kind: models.RiskChannelROIDecay, EntityIDs: []string{"meta"}, Severity: models.SeverityHigh,
		Detail: models.DecayDetail{ChannelID: "meta", BaselineROAS: 5, RecentROAS: 3, DecayPct: 40, AvgDailySpend: 4000},
	}}}
	st := Rank(memory(), o, rankerCfg())
	require.Len(t, st.Actions, 1)
	assert.Equal(t, models.ActionShiftBudget, st.Actions[0].Type)
	assert.Equal(t, []string{"meta"}, st.Actions[0].EntityIDs, "no other winner: target is the blended mix")
	assert.Equal(t, 0.0, st.Actions[0].EstimatedImpactUSD)
}

func TestRankLoserShift(t *testing.T) {
	mem := memory()
	mem.Channels[2].ROAS = 1.2
	mem.Channels[2].Status = models.StatusLoser

	st := Rank(mem, models.OracleState{}, rankerCfg())
	require.Len(t, st.Actions, 2)
	shift := byType(t, st.Actions, models.ActionShiftBudget)
	assert.Equal(t, []string{"tiktok", "meta"}, shift.EntityIDs)
	// 54500/30*30 * 20% * (3.65-1.2)
	assert.InDelta(t, 26705, shift.EstimatedImpactUSD, 0.01)
}

func TestRankSkipsDormantChannels(t *testing.T) {
	mem := models.MemoryState{
		TotalSpend:   1000,
		TotalRevenue: 3650,
		BlendedROAS:  3.65,
		DaysCovered:  1,
		Channels: []models.ChannelSummary{
			{ID: "meta", Name: "Meta", Spend: 1000, Revenue: 3650, ROAS: 3.65, Status: models.StatusWinner, Contribution: 100},
			{ID: "pinterest", Name: "Pinterest", Status: models.StatusLoser},
		},
	}

	st := Rank(mem, models.OracleState{}, rankerCfg())
	require.Len(t, st.Actions, 1)
	assert.Equal(t, models.ActionIncreaseBudget, st.Actions[0].Type)
	for _, a := range st.Actions {
		assert.NotContains(t, a.EntityIDs, "pinterest")
		assert.Greater(t, a.EstimatedImpactUSD, 0.0)
	}
}

func TestRankLoserAboveTargetSkipped(t *testing.T) {
	mem := models.MemoryState{
		BlendedROAS: 1.0,
		DaysCovered: 30,
		Channels: []models.ChannelSummary{
			{ID: "a", Spend: 100, Revenue: 120, ROAS: 1.2, Status: models.StatusLoser},
			{ID: "b", Spend: 100, Revenue: 80, ROAS: 0.8, Status: models.StatusLoser},
		},
	}

	st := Rank(mem, models.OracleState{}, rankerCfg())
	require.Len(t, st.Actions, 1, "nothing to gain moving a's budget to a weaker mix")
	assert.Equal(t, []string{"b"}, st.Actions[0].EntityIDs)
}

func TestRankNoCandidates(t *testing.T) {
	mem := memory()
	mem.Channels[0].Status = models.StatusNeutral

	st := Rank(mem, models.OracleState{}, rankerCfg())
	assert.NotNil(t, st.Actions)
	assert.Empty(t, st.Actions)
	assert.Equal(t, 0, st.CandidateCount)
	assert.Equal(t, 0.0, st.TotalOpportunityUSD)
	assert.Equal(t, "$0/mo", st.TotalOpportunity)
}

func TestRankEmptyMemory(t *testing.T) {
	st := Rank(models.MemoryState{}, oracle(), rankerCfg())
	assert.Empty(t, st.Actions)
	assert.Equal(t, 0.0, st.TotalOpportunityUSD)
}

func TestRankFewerThanN(t *testing.T) {
	st := Rank(memory(), models.OracleState{}, rankerCfg())
	require.Len(t, st.Actions, 1)
	assert.Equal(t, models.ActionIncreaseBudget, st.Actions[0].Type)
}

func TestRankDedupesByTypeAndEntity(t *testing.T) {
	o := oracle()
	dup := o.Findings[0]
	dup.Severity = models.SeverityHigh
	o.Findings = append(o.Findings, dup)

	cfg := rankerCfg()
	cfg.TopN = 10
	st := Rank(memory(), o, cfg)
	assert.Equal(t, 4, st.CandidateCount)
	shift := byType(t, st.Actions, models.ActionShiftBudget)
	assert.Equal(t, models.LevelHigh, shift.Confidence, "higher-scoring duplicate wins")
}

func TestRankPersonas(t *testing.T) {
	st := Rank(memory(), oracle(), rankerCfg())
	for _, a := range st.Actions {
		require.Len(t, a.Personas, 3, a.Type)
		for p, s := range a.Personas {
			assert.NotContains(t, s, "{", "%s/%s left a placeholder", p, a.Type)
			assert.NotEmpty(t, s)
		}
	}
	p := byType(t, st.Actions, models.ActionPauseCreative)
	assert.Contains(t, p.Personas[models.PersonaOperator], "Summer UGC")
}

func TestImpactNorm(t *testing.T) {
	assert.Equal(t, 0.0, ImpactNorm(0, 100000))
	assert.Equal(t, 0.0, ImpactNorm(-5, 100000))
	assert.InDelta(t, 100, ImpactNorm(100000, 100000), 1e-9)
	assert.Equal(t, 100.0, ImpactNorm(5e6, 100000))
	assert.Less(t, ImpactNorm(1000, 100000), ImpactNorm(10000, 100000))
}

func TestCompositeScore(t *testing.T) {
	cfg := rankerCfg()
	assert.InDelta(t, 100, CompositeScore(100, 100, 100000, cfg), 1e-9)
	assert.InDelta(t, 35, CompositeScore(100, 0, 0, cfg), 1e-9)
	assert.Greater(t, CompositeScore(50, 50, 20000, cfg), CompositeScore(50, 50, 2000, cfg))
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, models.LevelHigh, LevelOf(75))
	assert.Equal(t, models.LevelMedium, LevelOf(74.9))
	assert.Equal(t, models.LevelMedium, LevelOf(50))
	assert.Equal(t, models.LevelLow, LevelOf(49.9))
}
