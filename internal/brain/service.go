package brain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/models"
)

var ErrInvalidOrg = errors.New("invalid org id")

// Service wraps the Engine with cache-or-compute. Concurrent calls for one org share a
// single run.
type Service struct {
	eng    *Engine
	cache  StateCache
	maxAge time.Duration
	clock  Clock
	log    *slog.Logger
	group  singleflight.Group
}

func NewService(eng *Engine, cache StateCache, cfg config.Brain, clock Clock, log *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{eng: eng, cache: cache, maxAge: cfg.CacheMaxAge(), clock: clock, log: log}
}

// ComputeBrainState returns the cached state while it is younger than the max age and
// computes a fresh one otherwise.
func (s *Service) ComputeBrainState(ctx context.Context, orgID string) (*models.BrainState, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrInvalidOrg
	}
	if st, ok := s.lookup(ctx, orgID); ok {
		return st, nil
	}
	return s.compute(ctx, orgID)
}

// Refresh ignores the cache and recomputes.
func (s *Service) Refresh(ctx context.Context, orgID string) (*models.BrainState, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrInvalidOrg
	}
	return s.compute(ctx, orgID)
}

// Invalidate drops the cached state so the next read recomputes. Called after new
// metrics land for the org.
func (s *Service) Invalidate(ctx context.Context, orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrg
	}
	return s.cache.Delete(ctx, orgID)
}

func (s *Service) lookup(ctx context.Context, orgID string) (*models.BrainState, bool) {
	st, err := s.cache.Get(ctx, orgID)
	switch {
	case errors.Is(err, ErrCacheMiss):
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("cache get failed", slog.String("org_id", orgID), slog.String("err", err.Error()))
		return nil, false
	}
	if s.clock.Now().Sub(st.Timestamp) >= s.maxAge {
		cacheLookups.WithLabelValues("stale").Inc()
		return nil, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return st, true
}

// compute runs on a context detached from the caller: a caller that gives up gets its
// ctx error, the run finishes and still fills the cache.
func (s *Service) compute(ctx context.Context, orgID string) (*models.BrainState, error) {
	ch := s.group.DoChan(orgID, func() (interface{}, error) {
		runCtx := context.WithoutCancel(ctx)
		st, err := s.eng.Run(runCtx, orgID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(runCtx, orgID, st, s.maxAge); err != nil {
			s.log.Warn("cache set failed", slog.String("org_id", orgID), slog.String("err", err.Error()))
		}
		return st, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.BrainState), nil
	}
}
