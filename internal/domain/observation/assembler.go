package observation

import (
	"fmt"
	"sort"

	"github.com/turtacn/EconSOM/pkg/errors"
)

// DedupPolicy decides which value survives when a (country, indicator) pair
// has several observations.
type DedupPolicy string

const (
	// DedupLatestLastSeen keeps the observation with the maximum year; among
	// rows sharing that year the last one encountered wins.  Same-year
	// duplicates are discarded, not averaged.
	DedupLatestLastSeen DedupPolicy = "latest_last_seen"

	// DedupLatestMean keeps the maximum year and averages the values of all
	// rows sharing it.
	DedupLatestMean DedupPolicy = "latest_mean"
)

// Valid reports whether p is a known policy.
func (p DedupPolicy) Valid() bool {
	return p == DedupLatestLastSeen || p == DedupLatestMean
}

// ErrEmptyData is returned when no observation survives filtering.
var ErrEmptyData = errors.New(errors.ErrCodeEmptyData, "no economic data available for analysis")

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	// MinYear drops rows older than this year; 0 disables the floor.
	MinYear int
	// Policy defaults to DedupLatestLastSeen.
	Policy DedupPolicy
}

// AssemblyStats accounts for every input row.
// Total == Accepted + Superseded + Rejected + Filtered.
type AssemblyStats struct {
	Total      int `json:"total"`
	Accepted   int `json:"accepted"`
	Superseded int `json:"superseded"`
	Rejected   int `json:"rejected"`
	Filtered   int `json:"filtered"`
	// RejectedByReason is keyed by Rejection.String().
	RejectedByReason map[string]int `json:"rejected_by_reason"`
}

// Assembly is the deduplicated, numeric view of a batch of observations.
type Assembly struct {
	// Observations is sorted by country, then indicator name.
	Observations []CleanObservation
	Stats        AssemblyStats
	Countries    int
	Indicators   int
}

type group struct {
	obs   CleanObservation
	sum   float64
	count int
}

// Assemble filters rows to usable numeric values at or above the year floor
// and keeps one observation per (country, indicator).  Rows are never fatal on
// their own; ErrEmptyData is returned only when nothing survives.  The stats
// are populated in both cases.
func Assemble(rows []Observation, opts AssembleOptions) (*Assembly, error) {
	policy := opts.Policy
	if policy == "" {
		policy = DedupLatestLastSeen
	}
	if !policy.Valid() {
		return nil, errors.InvalidParam(fmt.Sprintf("unknown dedup policy %q", policy))
	}

	stats := AssemblyStats{Total: len(rows), RejectedByReason: map[string]int{}}
	groups := make(map[key]*group)
	valid := 0

	for _, row := range rows {
		if row.Country == "" || row.IndicatorName == "" {
			stats.Rejected++
			stats.RejectedByReason[RejectMissingKey.String()]++
			continue
		}
		if opts.MinYear > 0 && row.Year < opts.MinYear {
			stats.Filtered++
			continue
		}
		v, reason := Classify(row.Value)
		if reason != RejectNone {
			stats.Rejected++
			stats.RejectedByReason[reason.String()]++
			continue
		}
		valid++

		clean := CleanObservation{
			Country:       row.Country,
			IndicatorName: row.IndicatorName,
			Category:      row.Category,
			Value:         v,
			Year:          row.Year,
			Unit:          row.Unit,
		}
		g, ok := groups[row.key()]
		switch {
		case !ok:
			groups[row.key()] = &group{obs: clean, sum: v, count: 1}
		case row.Year > g.obs.Year:
			*g = group{obs: clean, sum: v, count: 1}
		case row.Year == g.obs.Year:
			g.sum += v
			g.count++
			if policy == DedupLatestLastSeen {
				g.obs = clean
			} else {
				g.obs.Value = g.sum / float64(g.count)
			}
		}
	}

	out := make([]CleanObservation, 0, len(groups))
	countries := make(map[string]struct{})
	indicators := make(map[string]struct{})
	for _, g := range groups {
		out = append(out, g.obs)
		countries[g.obs.Country] = struct{}{}
		indicators[g.obs.IndicatorName] = struct{}{}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].IndicatorName < out[j].IndicatorName
	})

	stats.Accepted = len(out)
	stats.Superseded = valid - len(out)

	a := &Assembly{
		Observations: out,
		Stats:        stats,
		Countries:    len(countries),
		Indicators:   len(indicators),
	}
	if len(out) == 0 {
		return a, ErrEmptyData.WithDetail(fmt.Sprintf("%d rows read, %d rejected, %d below year floor",
			stats.Total, stats.Rejected, stats.Filtered))
	}
	return a, nil
}

//Personal.AI order the ending
