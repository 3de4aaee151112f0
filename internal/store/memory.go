package store

import (
	"context"
	"sort"
	"sync"

	"github.com/AngelCh415/adbrain/internal/models"
)

type dayKey struct {
	ID  string
	Day int64
}

type orgData struct {
	channels  map[string]models.Channel
	daily     map[dayKey]models.DailyMetric
	creatives map[string]models.Creative
	cdaily    map[dayKey]models.CreativeDailyMetric
	cohorts   map[int64]models.Cohort
}

func newOrgData() *orgData {
	return &orgData{
		channels:  map[string]models.Channel{},
		daily:     map[dayKey]models.DailyMetric{},
		creatives: map[string]models.Creative{},
		cdaily:    map[dayKey]models.CreativeDailyMetric{},
		cohorts:   map[int64]models.Cohort{},
	}
}

// MemoryStore keeps every org's inputs in process. Upserts replace by natural key:
// channel id, (channel, day), creative id, (creative, day), cohort month.
type MemoryStore struct {
	mu   sync.RWMutex
	orgs map[string]*orgData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orgs: make(map[string]*orgData)}
}

func (s *MemoryStore) org(orgID string) *orgData {
	o, ok := s.orgs[orgID]
	if !ok {
		o = newOrgData()
		s.orgs[orgID] = o
	}
	return o
}

// UpsertSnapshot writes every record of b under orgID and returns how many were written.
func (s *MemoryStore) UpsertSnapshot(_ context.Context, orgID string, b *models.OrgSnapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.org(orgID)
	n := 0
	for _, c := range b.Channels {
		o.channels[c.ID] = c
		n++
	}
	for _, m := range b.DailyMetrics {
		m.Date = models.Day(m.Date)
		o.daily[dayKey{m.ChannelID, m.Date.Unix()}] = m
		n++
	}
	for _, c := range b.Creatives {
		o.creatives[c.ID] = c
		n++
	}
	for _, m := range b.CreativeDailyMetrics {
		m.Date = models.Day(m.Date)
		o.cdaily[dayKey{m.CreativeID, m.Date.Unix()}] = m
		n++
	}
	for _, c := range b.Cohorts {
		c.Month = models.MonthStart(c.Month)
		o.cohorts[c.Month.Unix()] = c
		n++
	}
	return n, nil
}

// FetchOrgMetrics returns a sorted copy of the org's data. The window bounds daily and
// creative metrics; cohorts always come whole. Unknown orgs read as empty.
func (s *MemoryStore) FetchOrgMetrics(_ context.Context, orgID string, w models.Window) (*models.OrgSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &models.OrgSnapshot{OrgID: orgID}
	o, ok := s.orgs[orgID]
	if !ok {
		return out, nil
	}

	for _, c := range o.channels {
		out.Channels = append(out.Channels, c)
	}
	for _, m := range o.daily {
		if w.Contains(m.Date) {
			out.DailyMetrics = append(out.DailyMetrics, m)
		}
	}
	for _, c := range o.creatives {
		out.Creatives = append(out.Creatives, c)
	}
	for _, m := range o.cdaily {
		if w.Contains(m.Date) {
			out.CreativeDailyMetrics = append(out.CreativeDailyMetrics, m)
		}
	}
	for _, c := range o.cohorts {
		out.Cohorts = append(out.Cohorts, c)
	}

	// orden determinista
	sort.Slice(out.Channels, func(i, j int) bool { return out.Channels[i].ID < out.Channels[j].ID })
	sort.Slice(out.DailyMetrics, func(i, j int) bool {
		a, b := out.DailyMetrics[i], out.DailyMetrics[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ChannelID < b.ChannelID
	})
	sort.Slice(out.Creatives, func(i, j int) bool { return out.Creatives[i].ID < out.Creatives[j].ID })
	sort.Slice(out.CreativeDailyMetrics, func(i, j int) bool {
		a, b := out.CreativeDailyMetrics[i], out.CreativeDailyMetrics[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.CreativeID < b.CreativeID
	})
	sort.Slice(out.Cohorts, func(i, j int) bool { return out.Cohorts[i].Month.Before(out.Cohorts[j].Month) })
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
