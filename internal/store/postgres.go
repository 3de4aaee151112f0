package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AngelCh415/adbrain/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore reads and writes org inputs in Postgres (tables in schema.sql).
type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) Close() error { return s.db.Close() }

const (
	selectChannelsSQL = `
SELECT id, name, platform, active
FROM channels
WHERE org_id = $1
ORDER BY id`

	selectDailySQL = `
SELECT channel_id, day, spend, revenue, impressions, clicks, conversions
FROM channel_daily_metrics
WHERE org_id = $1
  AND ($2::date IS NULL OR day >= $2::date)
  AND ($3::date IS NULL OR day <= $3::date)
ORDER BY day, channel_id`

	selectCreativesSQL = `
SELECT id, channel_id, name, status, launched_at
FROM creatives
WHERE org_id = $1
ORDER BY id`

	selectCreativeDailySQL = `
SELECT creative_id, day, spend, revenue, impressions, clicks, conversions, conversion_rate, cpa, frequency
FROM creative_daily_metrics
WHERE org_id = $1
  AND ($2::date IS NULL OR day >= $2::date)
  AND ($3::date IS NULL OR day <= $3::date)
ORDER BY day, creative_id`

	selectCohortsSQL = `
SELECT month, customers, ltv_30, ltv_60, ltv_90
FROM cohorts
WHERE org_id = $1
ORDER BY month`
)

// FetchOrgMetrics reads the org's snapshot. The window bounds daily and creative
// metrics; cohorts always come whole.
func (s *PostgresStore) FetchOrgMetrics(ctx context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error) {
	out := &models.OrgSnapshot{OrgID: orgID}
	from, to := dateArg(w.From), dateArg(w.To)

	err := s.query(ctx, selectChannelsSQL, []any{orgID}, func(rows *sql.Rows) error {
		var c models.Channel
		var platform string
		if err := rows.Scan(&c.ID, &c.Name, &platform, &c.Active); err != nil {
			return err
		}
		c.Platform = models.Platform(platform)
		out.Channels = append(out.Channels, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}

	err = s.query(ctx, selectDailySQL, []any{orgID, from, to}, func(rows *sql.Rows) error {
		var m models.DailyMetric
		if err := rows.Scan(&m.ChannelID, &m.Date, &m.Spend, &m.Revenue, &m.Impressions, &m.Clicks, &m.Conversions); err != nil {
			return err
		}
		m.Date = models.Day(m.Date)
		out.DailyMetrics = append(out.DailyMetrics, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily metrics: %w", err)
	}

	err = s.query(ctx, selectCreativesSQL, []any{orgID}, func(rows *sql.Rows) error {
		var c models.Creative
		var status string
		var launched sql.NullTime
		if err := rows.Scan(&c.ID, &c.ChannelID, &c.Name, &status, &launched); err != nil {
			return err
		}
		c.Status = models.CreativeStatus(status)
		if launched.Valid {
			c.LaunchedAt = launched.Time.UTC()
		}
		out.Creatives = append(out.Creatives, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creatives: %w", err)
	}

	err = s.query(ctx, selectCreativeDailySQL, []any{orgID, from, to}, func(rows *sql.Rows) error {
		var m models.CreativeDailyMetric
		if err := rows.Scan(&m.CreativeID, &m.Date, &m.Spend, &m.Revenue, &m.Impressions, &m.Clicks,
			&m.Conversions, &m.ConversionRate, &m.CPA, &m.Frequency); err != nil {
			return err
		}
		m.Date = models.Day(m.Date)
		out.CreativeDailyMetrics = append(out.CreativeDailyMetrics, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creative metrics: %w", err)
	}

	err = s.query(ctx, selectCohortsSQL, []any{orgID}, func(rows *sql.Rows) error {
		var c models.Cohort
		if err := rows.Scan(&c.Month, &c.Customers, &c.LTV30, &c.LTV60, &c.LTV90); err != nil {
			return err
		}
		c.Month = models.MonthStart(c.Month)
		out.Cohorts = append(out.Cohorts, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cohorts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) query(ctx context.Context, q string, args []any, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

const (
	upsertChannelSQL = `
INSERT INTO channels (org_id, id, name, platform, active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (org_id, id) DO UPDATE
SET name = EXCLUDED.name, platform = EXCLUDED.platform, active = EXCLUDED.active`

	upsertDailySQL = `
INSERT INTO channel_daily_metrics (org_id, channel_id, day, spend, revenue, impressions, clicks, conversions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (org_id, channel_id, day) DO UPDATE
SET spend = EXCLUDED.spend, revenue = EXCLUDED.revenue, impressions = EXCLUDED.impressions,
    clicks = EXCLUDED.clicks, conversions = EXCLUDED.conversions`

	upsertCreativeSQL = `
INSERT INTO creatives (org_id, id, channel_id, name, status, launched_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (org_id, id) DO UPDATE
SET channel_id = EXCLUDED.channel_id, name = EXCLUDED.name, status = EXCLUDED.status,
    launched_at = EXCLUDED.launched_at`

	upsertCreativeDailySQL = `
INSERT INTO creative_daily_metrics (org_id, creative_id, day, spend, revenue, impressions, clicks,
    conversions, conversion_rate, cpa, frequency)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (org_id, creative_id, day) DO UPDATE
SET spend = EXCLUDED.spend, revenue = EXCLUDED.revenue, impressions = EXCLUDED.impressions,
    clicks = EXCLUDED.clicks, conversions = EXCLUDED.conversions,
    conversion_rate = EXCLUDED.conversion_rate, cpa = EXCLUDED.cpa, frequency = EXCLUDED.frequency`

	upsertCohortSQL = `
INSERT INTO cohorts (org_id, month, customers, ltv_30, ltv_60, ltv_90)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (org_id, month) DO UPDATE
SET customers = EXCLUDED.customers, ltv_30 = EXCLUDED.ltv_30, ltv_60 = EXCLUDED.ltv_60,
    ltv_90 = EXCLUDED.ltv_90`
)

// UpsertSnapshot writes b in one transaction; any failure rolls the whole batch back.
func (s *PostgresStore) UpsertSnapshot(ctx context.Context, orgID string, b *models.OrgSnapshot) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // no-op after commit

	n := 0
	exec := func(q string, args ...any) error {
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
		n++
		return nil
	}

	for _, c := range b.Channels {
		if err := exec(upsertChannelSQL, orgID, c.ID, c.Name, string(c.Platform), c.Active); err != nil {
			return 0, fmt.Errorf("channel %s: %w", c.ID, err)
		}
	}
	for _, m := range b.DailyMetrics {
		if err := exec(upsertDailySQL, orgID, m.ChannelID, models.Day(m.Date), m.Spend, m.Revenue,
			m.Impressions, m.Clicks, m.Conversions); err != nil {
			return 0, fmt.Errorf("daily metric %s: %w", m.ChannelID, err)
		}
	}
	for _, c := range b.Creatives {
		if err := exec(upsertCreativeSQL, orgID, c.ID, c.ChannelID, c.Name, string(c.Status), nullTime(c.LaunchedAt)); err != nil {
			return 0, fmt.Errorf("creative %s: %w", c.ID, err)
		}
	}
	for _, m := range b.CreativeDailyMetrics {
		if err := exec(upsertCreativeDailySQL, orgID, m.CreativeID, models.Day(m.Date), m.Spend, m.Revenue,
			m.Impressions, m.Clicks, m.Conversions, m.ConversionRate, m.CPA, m.Frequency); err != nil {
			return 0, fmt.Errorf("creative metric %s: %w", m.CreativeID, err)
		}
	}
	for _, c := range b.Cohorts {
		if err := exec(upsertCohortSQL, orgID, models.MonthStart(c.Month), c.Customers, c.LTV30, c.LTV60, c.LTV90); err != nil {
			return 0, fmt.Errorf("cohort %s: %w", c.Month.Format("2006-01"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// nil for unbounded window ends
func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return models.Day(t)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
