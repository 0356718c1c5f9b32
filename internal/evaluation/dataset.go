package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
)

// DefaultZoneColumn is the zone header used by the exported sensor datasets.
const DefaultZoneColumn = "Zona"

// Schema names the columns of a labelled dataset.
type Schema struct {
	Zone       string
	Indicators []string
	// Target is the continuous column whose bucket is the true label.
	Target string
}

// Sample is one labelled record.
type Sample struct {
	Record domain.RawRecord
	Truth  int
}

// ReadSamples parses a CSV with a header row. The true label of each row is
// the discretizer's bucket for the Target column.
func ReadSamples(r io.Reader, schema Schema, disc *domain.Discretizer) ([]Sample, error) {
	if !disc.Has(schema.Target) {
		return nil, &domain.UnknownIndicatorError{Indicator: schema.Target}
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	zoneIdx, ok := cols[schema.Zone]
	if !ok {
		return nil, fmt.Errorf("missing column %q", schema.Zone)
	}
	targetIdx, ok := cols[schema.Target]
	if !ok {
		return nil, fmt.Errorf("missing column %q", schema.Target)
	}
	indicatorIdx := make(map[string]int, len(schema.Indicators))
	for _, name := range schema.Indicators {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		indicatorIdx[name] = i
	}

	var samples []Sample
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		readings := make(map[string]float64, len(indicatorIdx))
		for name, i := range indicatorIdx {
			v, err := parseFloat(row[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, name, err)
			}
			readings[name] = v
		}
		target, err := parseFloat(row[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: column %q: %w", line, schema.Target, err)
		}
		truth, err := disc.Bucket(schema.Target, target)
		if err != nil {
			return nil, err
		}

		samples = append(samples, Sample{
			Record: domain.RawRecord{Zone: strings.TrimSpace(row[zoneIdx]), Readings: readings},
			Truth:  truth,
		})
	}
	return samples, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
