package domain

import (
	"errors"
	"fmt"
	"slices"
)

// FeatureBuilder encodes raw records into feature rows ready for a classifier.
type FeatureBuilder struct {
	discretizer *Discretizer
	zones       []string
	indicators  []string
	strictZones bool
}

// BuilderOption configures a FeatureBuilder.
type BuilderOption func(*FeatureBuilder)

// WithStrictZones makes Build reject records whose zone is not configured
// instead of emitting an all-zero zone encoding.
func WithStrictZones() BuilderOption {
	return func(b *FeatureBuilder) { b.strictZones = true }
}

// NewFeatureBuilder returns a builder for the given zones and declared indicators.
// Every declared indicator must have an interval table in d.
func NewFeatureBuilder(d *Discretizer, zones, indicators []string, opts ...BuilderOption) (*FeatureBuilder, error) {
	if d == nil {
		return nil, errors.New("feature builder: nil discretizer")
	}
	if len(zones) == 0 {
		return nil, errors.New("feature builder: no zones configured")
	}
	if len(indicators) == 0 {
		return nil, errors.New("feature builder: no indicators declared")
	}

	seen := make(map[string]struct{}, len(zones)+len(indicators))
	for _, z := range zones {
		if z == "" {
			return nil, errors.New("feature builder: empty zone name")
		}
		if _, dup := seen[z]; dup {
			return nil, fmt.Errorf("feature builder: duplicate zone %q", z)
		}
		seen[z] = struct{}{}
	}
	for _, k := range indicators {
		if !d.Has(k) {
			return nil, fmt.Errorf("feature builder: %w", &UnknownIndicatorError{Indicator: k})
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("feature builder: column %q declared twice", k)
		}
		seen[k] = struct{}{}
	}

	b := &FeatureBuilder{
		discretizer: d,
		zones:       slices.Clone(zones),
		indicators:  slices.Clone(indicators),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build encodes rec. Zone columns are 1 for the record's zone and 0 otherwise;
// declared indicators are replaced by their severity bucket; readings for
// undeclared indicators pass through unchanged. rec is never modified.
//
// An unknown zone yields all-zero zone columns unless the builder is strict.
func (b *FeatureBuilder) Build(rec RawRecord) (FeatureRow, error) {
	if b.strictZones && !b.KnowsZone(rec.Zone) {
		return nil, &UnknownZoneError{Zone: rec.Zone}
	}

	row := make(FeatureRow, len(b.zones)+len(rec.Readings))
	for k, v := range rec.Readings {
		row[k] = v
	}

	for _, z := range b.zones {
		if z == rec.Zone {
			row[z] = 1
		} else {
			row[z] = 0
		}
	}

	for _, k := range b.indicators {
		v, ok := rec.Readings[k]
		if !ok {
			return nil, &MissingIndicatorError{Indicator: k}
		}
		severity, err := b.discretizer.Bucket(k, v)
		if err != nil {
			return nil, err
		}
		row[k] = float64(severity)
	}

	return row, nil
}

// KnowsZone reports whether zone is one of the configured zones.
func (b *FeatureBuilder) KnowsZone(zone string) bool {
	return slices.Contains(b.zones, zone)
}

// Columns returns the deterministic column order: zones first, then indicators.
func (b *FeatureBuilder) Columns() []string {
	cols := make([]string, 0, len(b.zones)+len(b.indicators))
	cols = append(cols, b.zones...)
	return append(cols, b.indicators...)
}

// Zones returns a copy of the configured zones.
func (b *FeatureBuilder) Zones() []string { return slices.Clone(b.zones) }

// Indicators returns a copy of the declared indicators.
func (b *FeatureBuilder) Indicators() []string { return slices.Clone(b.indicators) }
