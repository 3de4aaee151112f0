package models

import "time"

type Platform string

const (
	PlatformMeta      Platform = "meta"
	PlatformGoogle    Platform = "google"
	PlatformTikTok    Platform = "tiktok"
	PlatformShopify   Platform = "shopify"
	PlatformSnapchat  Platform = "snapchat"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformPinterest Platform = "pinterest"
	PlatformOther     Platform = "other"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformMeta, PlatformGoogle, PlatformTikTok, PlatformShopify,
		PlatformSnapchat, PlatformLinkedIn, PlatformPinterest, PlatformOther:
		return true
	}
	return false
}

type CreativeStatus string

const (
	CreativeActive   CreativeStatus = "active"
	CreativePaused   CreativeStatus = "paused"
	CreativeArchived CreativeStatus = "archived"
)

type Channel struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
	Active   bool     `json:"active"`
}

// DailyMetric is one channel on one calendar day. Upsert key is (ChannelID, Date).
type DailyMetric struct {
	ChannelID   string    `json:"channel_id"`
	Date        time.Time `json:"date"`
	Spend       float64   `json:"spend"`
	Revenue     float64   `json:"revenue"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions float64   `json:"conversions"`
}

type Creative struct {
	ID         string         `json:"id"`
	ChannelID  string         `json:"channel_id"`
	Name       string         `json:"name"`
	Status     CreativeStatus `json:"status"`
	LaunchedAt time.Time      `json:"launched_at"`
}

// CreativeDailyMetric is the finer series used for fatigue analysis.
// ConversionRate is a percentage (5.2 means 5.2%).
type CreativeDailyMetric struct {
	CreativeID     string    `json:"creative_id"`
	Date           time.Time `json:"date"`
	Spend          float64   `json:"spend"`
	Revenue        float64   `json:"revenue"`
	Impressions    int64     `json:"impressions"`
	Clicks         int64     `json:"clicks"`
	Conversions    float64   `json:"conversions"`
	ConversionRate float64   `json:"conversion_rate"`
	CPA            float64   `json:"cpa"`
	Frequency      float64   `json:"frequency"`
}

// Cohort is a calendar-month acquisition cohort; Month is the first day of the month (UTC).
type Cohort struct {
	Month     time.Time `json:"month"`
	Customers int64     `json:"customers"`
	LTV30     float64   `json:"ltv_30"`
	LTV60     float64   `json:"ltv_60"`
	LTV90     float64   `json:"ltv_90"`
}

// Window bounds a fetch by calendar day, both ends inclusive. Zero values mean unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	if !w.From.IsZero() && d.Before(Day(w.From)) {
		return false
	}
	if !w.To.IsZero() && d.After(Day(w.To)) {
		return false
	}
	return true
}

// TrailingWindow returns the last n days ending at asOf. n <= 0 means all history.
func TrailingWindow(asOf time.Time, n int) Window {
	if n <= 0 {
		return Window{}
	}
	to := Day(asOf)
	return Window{From: to.AddDate(0, 0, -(n - 1)), To: to}
}

// OrgSnapshot is everything the pipeline reads for one organization, fetched once per run.
type OrgSnapshot struct {
	OrgID                string                `json:"org_id"`
	AsOf                 time.Time             `json:"as_of"`
	Channels             []Channel             `json:"channels"`
	DailyMetrics         []DailyMetric         `json:"daily_metrics"`
	Creatives            []Creative            `json:"creatives"`
	CreativeDailyMetrics []CreativeDailyMetric `json:"creative_daily_metrics"`
	Cohorts              []Cohort              `json:"cohorts"`

	// records the source already threw away, by type
	Dropped map[string]int `json:"-"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart truncates t to the first day of its month (UTC).
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
