package brain

import (
	"context"
	"log/slog"
	"time"

	"github.com/AngelCh415/adbrain/internal/utils"
)

// Refresher recomputes a fixed list of orgs on an interval so reads stay warm.
// Failed orgs are retried with backoff; the pipeline itself never retries.
type Refresher struct {
	svc      *Service
	orgs     []string
	interval time.Duration
	backoff  utils.Backoff
	log      *slog.Logger
}

func NewRefresher(svc *Service, orgs []string, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		svc:      svc,
		orgs:     orgs,
		interval: interval,
		backoff:  utils.NewBackoff(time.Second, 3),
		log:      log,
	}
}

// Run refreshes once right away, then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	if len(r.orgs) == 0 || r.interval <= 0 {
		return
	}
	r.RefreshAll(ctx)

	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll returns how many orgs still failed after retries.
func (r *Refresher) RefreshAll(ctx context.Context) int {
	failed := 0
	for _, org := range r.orgs {
		err := r.backoff.Do(ctx, func(i int) error {
			_, err := r.svc.Refresh(ctx, org)
			if err != nil {
				r.log.Warn("refresh failed",
					slog.String("org_id", org),
					slog.Int("attempt", i+1),
					slog.String("err", err.Error()))
			}
			return err
		})
		if err != nil {
			failed++
			continue
		}
		r.log.Info("refreshed", slog.String("org_id", org))
	}
	return failed
}
