package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/adbrain/internal/brain"
	"github.com/AngelCh415/adbrain/internal/ingest"
	"github.com/AngelCh415/adbrain/internal/metrics"
	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

const maxBody = 10 << 20

type BrainService interface {
	ComputeBrainState(ctx context.Context, orgID string) (*models.BrainState, error)
	Refresh(ctx context.Context, orgID string) (*models.BrainState, error)
	Invalidate(ctx context.Context, orgID string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Brain   BrainService
	Metrics *metrics.Service
	Ingest  *ingest.Ingester // nil when the backend is read-only
	Ready   []Pinger
}

func NewRouter(log *slog.Logger, d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range d.Ready {
			if err := p.Ping(r.Context()); err != nil {
				http.Error(w, "not ready: "+err.Error(), 503)
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/v1/orgs/{orgID}", func(r chi.Router) {
		r.Get("/brain", func(w http.ResponseWriter, r *http.Request) {
			st, err := d.Brain.ComputeBrainState(r.Context(), chi.URLParam(r, "orgID"))
			if err != nil {
				writeErr(w, r, log, err)
				return
			}
			writeJSON(w, st)
		})

		r.Post("/brain/refresh", func(w http.ResponseWriter, r *http.Request) {
			st, err := d.Brain.Refresh(r.Context(), chi.URLParam(r, "orgID"))
			if err != nil {
				writeErr(w, r, log, err)
				return
			}
			writeJSON(w, st)
		})

		r.Get("/channels/daily", func(w http.ResponseWriter, r *http.Request) {
			rows, err := d.Metrics.QueryChannelDaily(r.Context(), chi.URLParam(r, "orgID"), r.URL.Query())
			if err != nil {
				if !errors.Is(err, metrics.ErrBadQuery) {
					err = errors.Join(brain.ErrUpstreamUnavailable, err)
				}
				writeErr(w, r, log, err)
				return
			}
			writeJSON(w, rows)
		})

		r.Post("/ingest", func(w http.ResponseWriter, r *http.Request) {
			if d.Ingest == nil {
				http.Error(w, "ingest not supported by this backend", 501)
				return
			}
			var b ingest.Batch
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
			if err := dec.Decode(&b); err != nil {
				http.Error(w, "bad json: "+err.Error(), 400)
				return
			}
			orgID := chi.URLParam(r, "orgID")
			res, err := d.Ingest.Ingest(r.Context(), orgID, b)
			if err != nil {
				writeErr(w, r, log, err)
				return
			}
			// el estado cacheado ya no refleja los datos
			if err := d.Brain.Invalidate(r.Context(), orgID); err != nil {
				log.Warn("cache invalidate failed",
					slog.String("org_id", orgID),
					slog.String("err", err.Error()))
			}
			writeJSON(w, res)
		})
	})

	return mux
}

// writeErr maps sentinel errors onto status codes.
func writeErr(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := 500
	switch {
	case errors.Is(err, brain.ErrInvalidOrg), errors.Is(err, metrics.ErrBadQuery), errors.Is(err, models.ErrMalformed):
		code = 400
	case errors.Is(err, brain.ErrUpstreamUnavailable):
		code = 502
	case errors.Is(err, context.DeadlineExceeded):
		code = 504
	case errors.Is(err, context.Canceled):
		return // el cliente ya se fue
	}
	if code >= 500 {
		log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("rid", utils.RID(r.Context())),
			slog.String("err", err.Error()))
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
