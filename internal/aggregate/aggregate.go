// Package aggregate computes read-only time-bucketed statistics over the
// record store. Records with a missing or unparsable timestamp or heartRate
// are silently excluded from the computation that needed the field.
package aggregate

import (
	"sort"
	"time"

	"github.com/starford/mindadmin/internal/store"
)

const dateLayout = "2006-01-02"

// Aggregator reads collections through the store; it never writes.
type Aggregator struct {
	store *store.Store
}

// New creates an Aggregator.
func New(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// DayCount is one bucket of a daily series.
type DayCount struct {
	Date  string `json:"date"` // UTC calendar date
	Count int    `json:"count"`
}

// PostsByDay buckets posts from the trailing window by UTC calendar date,
// sorted ascending. The boundary at now minus windowDays is inclusive.
// Posts without a parsable timestamp are excluded entirely.
func (a *Aggregator) PostsByDay(now time.Time, windowDays int) []DayCount {
	cutoff := now.UTC().AddDate(0, 0, -windowDays)
	counts := make(map[string]int)
	for _, p := range a.store.Posts() {
		ts, ok := p.Time()
		if !ok || ts.Before(cutoff) {
			continue
		}
		counts[ts.Format(dateLayout)]++
	}
	return sortedSeries(counts)
}

// DailyActivity approximates usage intensity: one increment per
// parsable-timestamped post plus one per parsable-timestamped vital sample,
// across all owner keys. It counts activity events, not unique users; the
// approximation is preserved as shipped.
func (a *Aggregator) DailyActivity() []DayCount {
	counts := make(map[string]int)
	for _, p := range a.store.Posts() {
		if ts, ok := p.Time(); ok {
			counts[ts.Format(dateLayout)]++
		}
	}
	vitals := a.store.Vitals()
	for key := range vitals {
		for _, sample := range vitals.Samples(key) {
			if ts, ok := sample.Time(); ok {
				counts[ts.Format(dateLayout)]++
			}
		}
	}
	return sortedSeries(counts)
}

// Summary describes heart-rate values sampled across all owners.
type Summary struct {
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// HeartRateSummary collects every parsable heartRate value across every
// owner key. ok is false when there are no values; callers get a distinct
// "no data" signal rather than zeros.
func (a *Aggregator) HeartRateSummary() (Summary, bool) {
	var s Summary
	var sum float64
	vitals := a.store.Vitals()
	for key := range vitals {
		for _, sample := range vitals.Samples(key) {
			hr, ok := sample.HeartRate()
			if !ok {
				continue
			}
			if s.Samples == 0 || hr < s.Min {
				s.Min = hr
			}
			if s.Samples == 0 || hr > s.Max {
				s.Max = hr
			}
			sum += hr
			s.Samples++
		}
	}
	if s.Samples == 0 {
		return Summary{}, false
	}
	s.Mean = sum / float64(s.Samples)
	return s, true
}

func sortedSeries(counts map[string]int) []DayCount {
	out := make([]DayCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, DayCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
