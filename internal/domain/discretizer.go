package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// BucketCount is the number of severity levels every indicator table defines.
const BucketCount = 5

// Interval is a closed sub-range [Lo, Hi] of an indicator's domain mapped to a severity.
type Interval struct {
	Lo       float64 `json:"lo" yaml:"lo"`
	Hi       float64 `json:"hi" yaml:"hi"`
	Severity int     `json:"severity" yaml:"severity"`
}

// IntervalTable maps indicator names to their sub-ranges, sorted ascending by Lo.
type IntervalTable map[string][]Interval

// Discretizer maps raw readings to ordinal severity buckets using per-indicator
// interval tables. It is immutable after construction and safe for concurrent use.
type Discretizer struct {
	tables map[string][]Interval
}

// NewDiscretizer validates the table and returns a Discretizer holding a private copy of it.
func NewDiscretizer(table IntervalTable) (*Discretizer, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: no indicators configured", ErrInvalidTable)
	}

	tables := make(map[string][]Interval, len(table))
	for name, ranges := range table {
		if name == "" {
			return nil, fmt.Errorf("%w: empty indicator name", ErrInvalidTable)
		}
		if err := validateRanges(ranges); err != nil {
			return nil, fmt.Errorf("%w: indicator %q: %v", ErrInvalidTable, name, err)
		}
		tables[name] = slices.Clone(ranges)
	}
	return &Discretizer{tables: tables}, nil
}

// Bucket returns the severity (1-5) of value for the named indicator.
//
// The first sub-range containing value wins. Values below the table, and NaN,
// score 1; values above it score 5, whichever way the severities run. A value
// in a gap between sub-ranges takes the severity of the sub-range before it.
func (d *Discretizer) Bucket(indicator string, value float64) (int, error) {
	ranges, ok := d.tables[indicator]
	if !ok {
		return 0, &UnknownIndicatorError{Indicator: indicator}
	}
	return bucket(ranges, value), nil
}

// Has reports whether the indicator has an interval table.
func (d *Discretizer) Has(indicator string) bool {
	_, ok := d.tables[indicator]
	return ok
}

// Indicators returns the configured indicator names in lexical order.
func (d *Discretizer) Indicators() []string {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ranges returns a copy of the indicator's sub-ranges.
func (d *Discretizer) Ranges(indicator string) ([]Interval, error) {
	ranges, ok := d.tables[indicator]
	if !ok {
		return nil, &UnknownIndicatorError{Indicator: indicator}
	}
	return slices.Clone(ranges), nil
}

func bucket(ranges []Interval, value float64) int {
	if math.IsNaN(value) || value < ranges[0].Lo {
		return 1
	}
	if value > ranges[len(ranges)-1].Hi {
		return BucketCount
	}
	severity := ranges[0].Severity
	for _, r := range ranges {
		if value >= r.Lo && value <= r.Hi {
			return r.Severity
		}
		if value >= r.Lo {
			severity = r.Severity
		}
	}
	return severity
}

// validateRanges enforces the table shape: BucketCount ascending, non-overlapping
// sub-ranges whose severities run 1..5 in either direction.
func validateRanges(ranges []Interval) error {
	if len(ranges) != BucketCount {
		return fmt.Errorf("want %d sub-ranges, got %d", BucketCount, len(ranges))
	}

	ascending, descending := true, true
	for i, r := range ranges {
		if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) {
			return fmt.Errorf("sub-range %d has a NaN bound", i+1)
		}
		if r.Lo > r.Hi {
			return fmt.Errorf("sub-range %d: lo %g > hi %g", i+1, r.Lo, r.Hi)
		}
		if i > 0 && r.Lo <= ranges[i-1].Hi {
			return fmt.Errorf("sub-range %d overlaps or precedes sub-range %d", i+1, i)
		}
		if r.Severity != i+1 {
			ascending = false
		}
		if r.Severity != BucketCount-i {
			descending = false
		}
	}
	if !ascending && !descending {
		return errors.New("severities must run 1..5 or 5..1 across the sub-ranges")
	}
	return nil
}
