package brain

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/adbrain/internal/models"
)

func sampleState() *models.BrainState {
	return &models.BrainState{
		OrgID:     "org-1",
		Timestamp: lastDay,
		Memory:    models.MemoryState{TotalSpend: 100, Channels: []models.ChannelSummary{{ID: "meta", ROAS: 3.65, Status: models.StatusWinner}}},
		Oracle: models.OracleState{
			AsOf: lastDay,
			Findings: []models.RiskFinding{
				{Kind: models.RiskCreativeFatigue, EntityIDs: []string{"cr-1"}, Severity: models.SeverityMedium, Probability: 0.67,
					Detail: models.FatigueDetail{CreativeID: "cr-1", CVRDropPct: 33.33, IsFatiguing: true}},
				{Kind: models.RiskCohortLTVDrift, EntityIDs: []string{"2025-04"}, Severity: models.SeverityMedium,
					Detail: models.DriftDetail{RecentMonth: "2025-04", DriftPct: 12.5, Trend: models.TrendDeclining}},
			},
			RiskScore: 46.8,
			RiskLevel: models.RiskYellow,
		},
		Curiosity: models.CuriosityState{Actions: []models.ActionRecommendation{}, TotalOpportunity: "$0/mo"},
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	_, err := c.Get(ctx, "org-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	st := sampleState()
	require.NoError(t, c.Set(ctx, "org-1", st, time.Minute))
	assert.True(t, mr.Exists("adbrain:state:org-1"))

	got, err := c.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, st.Timestamp, got.Timestamp)
	assert.Equal(t, st.Memory, got.Memory)
	require.Len(t, got.Oracle.Findings, 2)
	assert.Equal(t, st.Oracle.Findings[0].Detail, got.Oracle.Findings[0].Detail, "detail keeps its concrete type")
	assert.Equal(t, st.Oracle.Findings[1].Detail, got.Oracle.Findings[1].Detail)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "org-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheDeleteAndCorrupt(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "org-1", sampleState(), 0))
	require.NoError(t, c.Delete(ctx, "org-1"))
	_, err := c.Get(ctx, "org-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mr.Set("adbrain:state:org-2", "{not json"))
	_, err = c.Get(ctx, "org-2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())

	_, err = NewRedisCache("::not a url")
	assert.Error(t, err)
}

func TestLocalCacheExpiry(t *testing.T) {
	clock := newClock()
	c := NewLocalCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "org-1", sampleState(), time.Minute))
	clock.Advance(59 * time.Second)
	st, err := c.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", st.OrgID)

	clock.Advance(time.Second)
	_, err = c.Get(ctx, "org-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "org-1", sampleState(), 0))
	clock.Advance(24 * time.Hour)
	_, err = c.Get(ctx, "org-1")
	assert.NoError(t, err, "zero ttl never expires")

	require.NoError(t, c.Delete(ctx, "org-1"))
	_, err = c.Get(ctx, "org-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
