package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
)

var day0 = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

func attribution() config.Attribution {
	return config.DefaultBrain().Attribution
}

func scenarioSnapshot() *models.OrgSnapshot {
	return &models.OrgSnapshot{
		OrgID: "org-1",
		Channels: []models.Channel{
			{ID: "meta", Name: "Meta Ads", Platform: models.PlatformMeta, Active: true},
			{ID: "google", Name: "Google Ads", Platform: models.PlatformGoogle, Active: true},
			{ID: "tiktok", Name: "TikTok Ads", Platform: models.PlatformTikTok, Active: true},
		},
		DailyMetrics: []models.DailyMetric{
			{ChannelID: "meta", Date: day0, Spend: 60000, Revenue: 219000},
			{ChannelID: "meta", Date: day0.AddDate(0, 0, 1), Spend: 60000, Revenue: 219000},
			{ChannelID: "google", Date: day0, Spend: 60000, Revenue: 141000},
			{ChannelID: "tiktok", Date: day0, Spend: 54500, Revenue: 123450},
		},
	}
}

func byID(t *testing.T, mem models.MemoryState, id string) models.ChannelSummary {
	t.Helper()
	for _, c := range mem.Channels {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("channel %s not found", id)
	return models.ChannelSummary{}
}

func TestAggregateScenario(t *testing.T) {
	mem := Aggregate(scenarioSnapshot(), attribution(), 1.0)

	assert.Equal(t, 234500.0, mem.TotalSpend)
	assert.Equal(t, 702450.0, mem.TotalRevenue)
	assert.InDelta(t, 2.99, mem.BlendedROAS, 0.02)
	assert.Equal(t, mem.BlendedROAS, mem.LTVROAS)
	assert.Equal(t, 2, mem.DaysCovered)
	require.Len(t, mem.Channels, 3)

	meta := byID(t, mem, "meta")
	assert.Equal(t, 3.65, meta.ROAS)
	assert.Equal(t, models.StatusWinner, meta.Status)

	google := byID(t, mem, "google")
	assert.Equal(t, 2.35, google.ROAS)
	assert.Equal(t, models.StatusNeutral, google.Status)

	tiktok := byID(t, mem, "tiktok")
	assert.Equal(t, 2.27, tiktok.ROAS)
	assert.Equal(t, models.StatusNeutral, tiktok.Status, "2.27 sits between 1.8 and 2.5")

	// sorted by revenue desc
	assert.Equal(t, "meta", mem.Channels[0].ID)
	assert.Equal(t, "google", mem.Channels[1].ID)
	assert.Equal(t, "tiktok", mem.Channels[2].ID)
}

func TestAggregateContributionSumsTo100(t *testing.T) {
	mem := Aggregate(scenarioSnapshot(), attribution(), 1.0)
	var sum float64
	for _, c := range mem.Channels {
		sum += c.Contribution
	}
	assert.InDelta(t, 100, sum, 0.05)
}

func TestAggregateZeroSpend(t *testing.T) {
	snap := &models.OrgSnapshot{
		Channels: []models.Channel{{ID: "organic", Active: true}},
		DailyMetrics: []models.DailyMetric{
			{ChannelID: "organic", Date: day0, Spend: 0, Revenue: 5000},
		},
	}
	mem := Aggregate(snap, attribution(), 1.5)

	assert.Equal(t, 0.0, mem.BlendedROAS)
	assert.Equal(t, 0.0, mem.LTVROAS)
	require.Len(t, mem.Channels, 1)
	assert.Equal(t, 0.0, mem.Channels[0].ROAS)
	assert.Equal(t, models.StatusLoser, mem.Channels[0].Status)
	assert.Equal(t, 100.0, mem.Channels[0].Contribution)
}

func TestAggregateZeroRevenue(t *testing.T) {
	snap := &models.OrgSnapshot{
		Channels: []models.Channel{{ID: "a", Active: true}, {ID: "b", Active: true}},
		DailyMetrics: []models.DailyMetric{
			{ChannelID: "a", Date: day0, Spend: 100},
			{ChannelID: "b", Date: day0, Spend: 200},
		},
	}
	mem := Aggregate(snap, attribution(), 1)
	for _, c := range mem.Channels {
		assert.Equal(t, 0.0, c.Contribution)
		assert.False(t, math.IsNaN(c.ROAS))
	}
}

func TestAggregateEmpty(t *testing.T) {
	for _, snap := range []*models.OrgSnapshot{nil, {}} {
		mem := Aggregate(snap, attribution(), 1)
		assert.Equal(t, 0.0, mem.TotalSpend)
		assert.Equal(t, 0.0, mem.TotalRevenue)
		assert.Equal(t, 0.0, mem.BlendedROAS)
		assert.NotNil(t, mem.Channels)
		assert.Empty(t, mem.Channels)
	}
}

func TestAggregateIgnoresInactiveAndUnknownChannels(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Channels[2].Active = false
	snap.DailyMetrics = append(snap.DailyMetrics, models.DailyMetric{ChannelID: "ghost", Date: day0, Spend: 1, Revenue: 1})

	mem := Aggregate(snap, attribution(), 1)
	assert.Len(t, mem.Channels, 2)
	assert.Equal(t, 180000.0, mem.TotalSpend)
	assert.Equal(t, 579000.0, mem.TotalRevenue)
}

func TestAggregateLTVMultiplier(t *testing.T) {
	snap := &models.OrgSnapshot{
		Channels:     []models.Channel{{ID: "a", Active: true}},
		DailyMetrics: []models.DailyMetric{{ChannelID: "a", Date: day0, Spend: 100, Revenue: 250}},
	}
	assert.Equal(t, 3.0, Aggregate(snap, attribution(), 1.2).LTVROAS)
	assert.Equal(t, 2.5, Aggregate(snap, attribution(), 0.5).LTVROAS, "multiplier below 1 is clamped")
}

func TestAggregateRoundsOnlyAtOutput(t *testing.T) {
	snap := &models.OrgSnapshot{Channels: []models.Channel{{ID: "a", Active: true}}}
	for i := 0; i < 3; i++ {
		snap.DailyMetrics = append(snap.DailyMetrics, models.DailyMetric{
			ChannelID: "a", Date: day0.AddDate(0, 0, i), Spend: 0.004, Revenue: 0.004,
		})
	}
	mem := Aggregate(snap, attribution(), 1)
	assert.Equal(t, 0.01, mem.TotalSpend, "0.012 accumulated, not 3 x round(0.004)")
	assert.Equal(t, 1.0, mem.BlendedROAS)
}

func TestClassifyBoundaries(t *testing.T) {
	cfg := attribution()
	cases := []struct {
		roas float64
		want models.ChannelStatus
	}{
		{3.0, models.StatusWinner},
		{2.5, models.StatusNeutral},
		{2.2, models.StatusNeutral},
		{1.8, models.StatusNeutral},
		{1.0, models.StatusLoser},
		{0, models.StatusLoser},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.roas, cfg), "roas=%v", c.roas)
	}
}
