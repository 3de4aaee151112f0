package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/AngelCh415/adbrain/internal/models"
)

const dateLayout = "2006-01-02"

// Batch is the wire shape of the ingest endpoint and of the data service snapshot.
// Dates are YYYY-MM-DD or RFC3339.
type Batch struct {
	AsOf                 string             `json:"as_of,omitempty"`
	Channels             []ChannelRow       `json:"channels"`
	DailyMetrics         []DailyRow         `json:"daily_metrics"`
	Creatives            []CreativeRow      `json:"creatives"`
	CreativeDailyMetrics []CreativeDailyRow `json:"creative_daily_metrics"`
	Cohorts              []CohortRow        `json:"cohorts"`
}

type ChannelRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Active   *bool  `json:"active"`
}

type DailyRow struct {
	ChannelID   string  `json:"channel_id"`
	Date        string  `json:"date"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions float64 `json:"conversions"`
}

type CreativeRow struct {
	ID         string `json:"id"`
	ChannelID  string `json:"channel_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	LaunchedAt string `json:"launched_at"`
}

type CreativeDailyRow struct {
	CreativeID     string  `json:"creative_id"`
	Date           string  `json:"date"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Conversions    float64 `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	CPA            float64 `json:"cpa"`
	Frequency      float64 `json:"frequency"`
}

type CohortRow struct {
	Month     string  `json:"month"` // YYYY-MM or a date inside the month
	Customers int64   `json:"customers"`
	LTV30     float64 `json:"ltv_30"`
	LTV60     float64 `json:"ltv_60"`
	LTV90     float64 `json:"ltv_90"`
}

// Normalize trims ids, lowercases enums and parses dates. Rows whose date cannot be
// parsed are skipped and counted, per type in the snapshot's Dropped; value checks are
// left to models.Sanitize.
func Normalize(b Batch) (*models.OrgSnapshot, int) {
	out := &models.OrgSnapshot{}
	skipped := 0
	skip := func(typ string) {
		if out.Dropped == nil {
			out.Dropped = map[string]int{}
		}
		out.Dropped[typ]++
		skipped++
	}
	if t, ok := parseDate(b.AsOf); ok {
		out.AsOf = t
	}

	for _, r := range b.Channels {
		id := strings.TrimSpace(r.ID)
		p := models.Platform(norm(r.Platform))
		if !p.Valid() {
			p = models.PlatformOther
		}
		active := true
		if r.Active != nil {
			active = *r.Active
		}
		out.Channels = append(out.Channels, models.Channel{
			ID:       id,
			Name:     coalesce(r.Name, id),
			Platform: p,
			Active:   active,
		})
	}

	for _, r := range b.DailyMetrics {
		d, ok := parseDate(r.Date)
		if !ok {
			skip("daily_metric")
			continue
		}
		out.DailyMetrics = append(out.DailyMetrics, models.DailyMetric{
			ChannelID:   strings.TrimSpace(r.ChannelID),
			Date:        models.Day(d),
			Spend:       r.Spend,
			Revenue:     r.Revenue,
			Impressions: r.Impressions,
			Clicks:      r.Clicks,
			Conversions: r.Conversions,
		})
	}

	for _, r := range b.Creatives {
		id := strings.TrimSpace(r.ID)
		launched, _ := parseDate(r.LaunchedAt)
		out.Creatives = append(out.Creatives, models.Creative{
			ID:         id,
			ChannelID:  strings.TrimSpace(r.ChannelID),
			Name:       coalesce(r.Name, id),
			Status:     models.CreativeStatus(coalesce(norm(r.Status), string(models.CreativeActive))),
			LaunchedAt: launched,
		})
	}

	for _, r := range b.CreativeDailyMetrics {
		d, ok := parseDate(r.Date)
		if !ok {
			skip("creative_daily_metric")
			continue
		}
		out.CreativeDailyMetrics = append(out.CreativeDailyMetrics, models.CreativeDailyMetric{
			CreativeID:     strings.TrimSpace(r.CreativeID),
			Date:           models.Day(d),
			Spend:          r.Spend,
			Revenue:        r.Revenue,
			Impressions:    r.Impressions,
			Clicks:         r.Clicks,
			Conversions:    r.Conversions,
			ConversionRate: r.ConversionRate,
			CPA:            r.CPA,
			Frequency:      r.Frequency,
		})
	}

	for _, r := range b.Cohorts {
		m, ok := parseMonth(r.Month)
		if !ok {
			skip("cohort")
			continue
		}
		out.Cohorts = append(out.Cohorts, models.Cohort{
			Month:     m,
			Customers: r.Customers,
			LTV30:     r.LTV30,
			LTV60:     r.LTV60,
			LTV90:     r.LTV90,
		})
	}
	return out, skipped
}

// Writer is the write side of a store.
type Writer interface {
	UpsertSnapshot(ctx context.Context, orgID string, b *models.OrgSnapshot) (int, error)
}

type Result struct {
	Written  int            `json:"written"`
	Skipped  int            `json:"skipped"`
	Rejected map[string]int `json:"rejected,omitempty"`
}

// Ingester normalizes incoming batches and upserts them into a store.
type Ingester struct {
	w   Writer
	log *slog.Logger
}

func NewIngester(w Writer, log *slog.Logger) *Ingester {
	return &Ingester{w: w, log: log}
}

func (e *Ingester) Ingest(ctx context.Context, orgID string, b Batch) (Result, error) {
	snap, skipped := Normalize(b)
	snap, rejected := models.Sanitize(snap)

	n, err := e.w.UpsertSnapshot(ctx, orgID, snap)
	if err != nil {
		return Result{}, err
	}
	res := Result{Written: n, Skipped: skipped}
	if len(rejected) > 0 {
		res.Rejected = rejected
	}
	e.log.Info("ingest complete",
		slog.String("org_id", orgID),
		slog.Int("written", n),
		slog.Int("skipped", skipped),
		slog.Int("rejected", total(rejected)))
	return res, nil
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func parseMonth(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01", strings.TrimSpace(s)); err == nil {
		return t, true
	}
	t, ok := parseDate(s)
	if !ok {
		return time.Time{}, false
	}
	return models.MonthStart(t), true
}
