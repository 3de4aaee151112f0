package models

import (
	"errors"
	"fmt"
	"math"
)

var ErrMalformed = errors.New("malformed record")

func validNumber(vs ...float64) bool {
	for _, v := range vs {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (c Channel) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: channel id required", ErrMalformed)
	}
	return nil
}

func (m DailyMetric) Validate() error {
	switch {
	case m.ChannelID == "":
		return fmt.Errorf("%w: channel_id required", ErrMalformed)
	case m.Date.IsZero():
		return fmt.Errorf("%w: date required", ErrMalformed)
	case m.Impressions < 0 || m.Clicks < 0:
		return fmt.Errorf("%w: negative count", ErrMalformed)
	case !validNumber(m.Spend, m.Revenue, m.Conversions):
		return fmt.Errorf("%w: negative or non-finite amount", ErrMalformed)
	}
	return nil
}

func (c Creative) Validate() error {
	if c.ID == "" || c.ChannelID == "" {
		return fmt.Errorf("%w: creative id and channel_id required", ErrMalformed)
	}
	return nil
}

func (m CreativeDailyMetric) Validate() error {
	switch {
	case m.CreativeID == "":
		return fmt.Errorf("%w: creative_id required", ErrMalformed)
	case m.Date.IsZero():
		return fmt.Errorf("%w: date required", ErrMalformed)
	case m.Impressions < 0 || m.Clicks < 0:
		return fmt.Errorf("%w: negative count", ErrMalformed)
	case !validNumber(m.Spend, m.Revenue, m.Conversions, m.ConversionRate, m.CPA, m.Frequency):
		return fmt.Errorf("%w: negative or non-finite amount", ErrMalformed)
	}
	return nil
}

func (c Cohort) Validate() error {
	switch {
	case c.Month.IsZero():
		return fmt.Errorf("%w: month required", ErrMalformed)
	case c.Customers < 0:
		return fmt.Errorf("%w: negative customers", ErrMalformed)
	case !validNumber(c.LTV30, c.LTV60, c.LTV90):
		return fmt.Errorf("%w: negative or non-finite ltv", ErrMalformed)
	}
	return nil
}

// Sanitize returns a copy of s without malformed records, and how many were dropped per
// record type. Creatives and metrics referencing unknown channels/creatives are kept:
// stages simply never look them up.
func Sanitize(s *OrgSnapshot) (*OrgSnapshot, map[string]int) {
	dropped := map[string]int{}
	out := &OrgSnapshot{OrgID: s.OrgID, AsOf: s.AsOf}

	for _, c := range s.Channels {
		if c.Validate() != nil {
			dropped["channel"]++
			continue
		}
		out.Channels = append(out.Channels, c)
	}
	for _, m := range s.DailyMetrics {
		if m.Validate() != nil {
			dropped["daily_metric"]++
			continue
		}
		out.DailyMetrics = append(out.DailyMetrics, m)
	}
	for _, c := range s.Creatives {
		if c.Validate() != nil {
			dropped["creative"]++
			continue
		}
		out.Creatives = append(out.Creatives, c)
	}
	for _, m := range s.CreativeDailyMetrics {
		if m.Validate() != nil {
			dropped["creative_daily_metric"]++
			continue
		}
		out.CreativeDailyMetrics = append(out.CreativeDailyMetrics, m)
	}
	for _, c := range s.Cohorts {
		if c.Validate() != nil {
			dropped["cohort"]++
			continue
		}
		out.Cohorts = append(out.Cohorts, c)
	}
	return out, dropped
}
