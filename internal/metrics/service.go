package metrics

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/adbrain/internal/models"
	"github.com/AngelCh415/adbrain/internal/utils"
)

var ErrBadQuery = errors.New("bad query")

// Reader is the read side of the metrics store.
type Reader interface {
	FetchOrgMetrics(ctx context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error)
}

type Service struct{ r Reader }

func NewService(r Reader) *Service { return &Service{r: r} }

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// QueryChannelDaily lists per-day, per-channel rows with derived CPC/CPA/CVR/ROAS.
// Query params: from, to (YYYY-MM-DD), channel (csv of ids or platforms), limit, offset.
func (s *Service) QueryChannelDaily(ctx context.Context, orgID string, v url.Values) ([]models.ChannelDayMetrics, error) {
	w, err := parseWindow(v)
	if err != nil {
		return nil, err
	}
	chSet := csvSet(v.Get("channel"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	snap, err := s.r.FetchOrgMetrics(ctx, orgID, w)
	if err != nil {
		return nil, err
	}

	chans := make(map[string]models.Channel, len(snap.Channels))
	for _, c := range snap.Channels {
		chans[c.ID] = c
	}

	rows := make([]models.ChannelDayMetrics, 0, len(snap.DailyMetrics))
	for _, m := range snap.DailyMetrics {
		if !w.Contains(m.Date) {
			continue
		}
		ch := chans[m.ChannelID]
		if len(chSet) > 0 {
			_, byID := chSet[norm(m.ChannelID)]
			_, byPlatform := chSet[norm(string(ch.Platform))]
			if !byID && !byPlatform {
				continue
			}
		}
		rows = append(rows, toRow(m, ch))
	}

	// orden determinista
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].ChannelID < rows[j].ChannelID
	})

	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

func toRow(m models.DailyMetric, ch models.Channel) models.ChannelDayMetrics {
	return models.ChannelDayMetrics{
		Date:        models.Day(m.Date).Format("2006-01-02"),
		ChannelID:   m.ChannelID,
		ChannelName: ch.Name,
		Platform:    string(ch.Platform),
		Impressions: m.Impressions,
		Clicks:      m.Clicks,
		Conversions: m.Conversions,
		Spend:       utils.Round2(m.Spend),
		Revenue:     utils.Round2(m.Revenue),
		CPC:         utils.Round3(utils.SafeDiv(m.Spend, float64(m.Clicks))),
		CPA:         utils.Round2(utils.SafeDiv(m.Spend, m.Conversions)),
		CVR:         utils.Round3(utils.SafeDiv(m.Conversions, float64(m.Clicks))),
		ROAS:        utils.Round2(utils.SafeDiv(m.Revenue, m.Spend)),
	}
}

func parseWindow(v url.Values) (models.Window, error) {
	var w models.Window
	if s := v.Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return w, ErrBadQuery
		}
		w.From = t
	}
	if s := v.Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return w, ErrBadQuery
		}
		w.To = t
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.From.After(w.To) {
		return w, ErrBadQuery
	}
	return w, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
