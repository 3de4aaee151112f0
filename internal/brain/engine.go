package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/adbrain/internal/config"
	"github.com/AngelCh415/adbrain/internal/metrics"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/recommend"
	"github.com/AngelCh415/adbrain/internal/risk"
)

var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// MetricsReader is the only thing the pipeline reads from. Cohorts are returned whole;
// the window bounds daily and creative metrics.
type MetricsReader interface {
	FetchOrgMetrics(ctx context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return systemClock{} }

// Engine runs one pipeline pass: fetch, Memory and Oracle in parallel, then Curiosity.
type Engine struct {
	r            MetricsReader
	cfg          config.Brain
	log          *slog.Logger
	clock        Clock
	cb           *gobreaker.CircuitBreaker
	tracer       trace.Tracer
	fetchTimeout time.Duration
}

func NewEngine(r MetricsReader, cfg config.Brain, log *slog.Logger, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	e := &Engine{
		r:            r,
		cfg:          cfg,
		log:          log,
		clock:        clock,
		tracer:       otel.Tracer(tracerName),
		fetchTimeout: cfg.FetchTimeout(),
	}
	e.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "metrics-reader",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				breakerState.Set(1)
			} else {
				breakerState.Set(0)
			}
			log.Warn("breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return e
}

// Run computes a fresh BrainState for orgID. The only failure is the upstream fetch.
func (e *Engine) Run(ctx context.Context, orgID string) (*models.BrainState, error) {
	ctx, span := e.tracer.Start(ctx, "brain.run", trace.WithAttributes(attribute.String("org_id", orgID)))
	defer span.End()

	now := e.clock.Now()
	snap, err := e.fetch(ctx, orgID, e.fetchWindow(now))
	if err != nil {
		pipelineRuns.WithLabelValues("upstream_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	// fetch, Memory and risk windows all end on the same day, even when data lags the clock
	if snap.AsOf.IsZero() {
		cp := *snap
		cp.AsOf = models.Day(now)
		snap = &cp
	}

	upstream := snap.Dropped
	snap, dropped := models.Sanitize(snap)
	for typ, n := range upstream {
		dropped[typ] += n
	}
	for typ, n := range dropped {
		droppedRecords.WithLabelValues(typ).Add(float64(n))
		e.log.Warn("dropped malformed records",
			slog.String("org_id", orgID),
			slog.String("type", typ),
			slog.Int("count", n))
	}

	var mem models.MemoryState
	var oracle models.OracleState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mem = e.memory(gctx, e.memorySnapshot(snap, now))
		return nil
	})
	g.Go(func() error {
		oracle = e.oracle(gctx, snap)
		return nil
	})
	_ = g.Wait() // los stages son puros, no fallan

	if oracle.Skipped > 0 {
		e.log.Debug("entities skipped for short history",
			slog.String("org_id", orgID),
			slog.Int("skipped", oracle.Skipped))
	}

	cur := e.curiosity(ctx, mem, oracle)
	pipelineRuns.WithLabelValues("ok").Inc()

	return &models.BrainState{
		OrgID:     orgID,
		Timestamp: now,
		Memory:    mem,
		Oracle:    oracle,
		Curiosity: cur,
	}, nil
}

func (e *Engine) fetch(ctx context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error) {
	ctx, span := e.tracer.Start(ctx, "brain.fetch")
	defer span.End()
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := e.cb.Execute(func() (interface{}, error) {
		return e.r.FetchOrgMetrics(ctx, orgID, w)
	})
	stageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: org %s: %w", ErrUpstreamUnavailable, orgID, err)
	}
	snap, _ := v.(*models.OrgSnapshot)
	if snap == nil {
		snap = &models.OrgSnapshot{}
	}
	if snap.OrgID == "" {
		snap.OrgID = orgID
	}
	return snap, nil
}

// fetchWindow covers the Memory window and the longest risk look-back.
func (e *Engine) fetchWindow(now time.Time) models.Window {
	if e.cfg.WindowDays <= 0 {
		return models.Window{}
	}
	days := e.cfg.WindowDays
	f, d := e.cfg.Risk.Fatigue, e.cfg.Risk.Decay
	if n := f.RecentDays + f.BaselineDays; n > days {
		days = n
	}
	if n := d.RecentDays + d.BaselineDays; n > days {
		days = n
	}
	return models.TrailingWindow(now, days)
}

// memorySnapshot narrows daily metrics to the attribution window.
func (e *Engine) memorySnapshot(snap *models.OrgSnapshot, now time.Time) *models.OrgSnapshot {
	if e.cfg.WindowDays <= 0 {
		return snap
	}
	w := models.TrailingWindow(now, e.cfg.WindowDays)
	cp := *snap
	cp.DailyMetrics = make([]models.DailyMetric, 0, len(snap.DailyMetrics))
	for _, m := range snap.DailyMetrics {
		if w.Contains(m.Date) {
			cp.DailyMetrics = append(cp.DailyMetrics, m)
		}
	}
	return &cp
}

func (e *Engine) memory(ctx context.Context, snap *models.OrgSnapshot) models.MemoryState {
	_, span := e.tracer.Start(ctx, "brain.memory")
	defer span.End()
	start := time.Now()
	mem := metrics.Aggregate(snap, e.cfg.Attribution, e.cfg.LTVMultiplier)
	stageDuration.WithLabelValues("memory").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("channels", len(mem.Channels)))
	return mem
}

func (e *Engine) oracle(ctx context.Context, snap *models.OrgSnapshot) models.OracleState {
	_, span := e.tracer.Start(ctx, "brain.oracle")
	defer span.End()
	start := time.Now()
	o := risk.Detect(snap, e.cfg.Risk)
	stageDuration.WithLabelValues("oracle").Observe(time.Since(start).Seconds())
	for _, f := range o.Findings {
		findingsTotal.WithLabelValues(string(f.Kind)).Inc()
	}
	span.SetAttributes(attribute.Int("findings", len(o.Findings)), attribute.Float64("risk_score", o.RiskScore))
	return o
}

func (e *Engine) curiosity(ctx context.Context, mem models.MemoryState, oracle models.OracleState) models.CuriosityState {
	_, span := e.tracer.Start(ctx, "brain.curiosity")
	defer span.End()
	start := time.Now()
	c := recommend.Rank(mem, oracle, e.cfg.Ranker)
	stageDuration.WithLabelValues("curiosity").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("candidates", c.CandidateCount))
	return c
}
