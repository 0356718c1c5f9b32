package evaluation_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/air-quality-classifier/internal/catalog"
	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/evaluation"
	"github.com/couchcryptid/air-quality-classifier/internal/observability"
	"github.com/couchcryptid/air-quality-classifier/internal/prediction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetCSV = `Zona,Temperatura (°),Humedad (%),CO2 (PPM),NO2 (PPM),Polución (ICA)
Zona_Arbol Solar Juntas,25,68,420,0.023,60
Zona_Arbol Solar Skate Park, 25, 68, 420, 0.023, 10
Zona_Arbol Solar Parque Ricaurte,25,68,420,0.023,130
`

func defaultSchema(cat *catalog.Catalog) evaluation.Schema {
	return evaluation.Schema{
		Zone:       evaluation.DefaultZoneColumn,
		Indicators: cat.Indicators,
		Target:     "Polución (ICA)",
	}
}

func loadCatalog(t *testing.T) (*catalog.Catalog, *domain.Discretizer) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	disc, err := cat.Discretizer()
	require.NoError(t, err)
	return cat, disc
}

func TestReadSamples(t *testing.T) {
	cat, disc := loadCatalog(t)

	samples, err := evaluation.ReadSamples(strings.NewReader(datasetCSV), defaultSchema(cat), disc)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, "Zona_Arbol Solar Juntas", samples[0].Record.Zone)
	assert.Equal(t, 3, samples[0].Truth)
	assert.InDelta(t, 0.023, samples[0].Record.Readings["NO2 (PPM)"], 1e-12)
	assert.NotContains(t, samples[0].Record.Readings, "Polución (ICA)")

	assert.Equal(t, "Zona_Arbol Solar Skate Park", samples[1].Record.Zone)
	assert.Equal(t, 1, samples[1].Truth)
	assert.Equal(t, 5, samples[2].Truth)
}

func TestReadSamples_Errors(t *testing.T) {
	cat, disc := loadCatalog(t)

	tests := []struct {
		name    string
		csv     string
		schema  func(evaluation.Schema) evaluation.Schema
		wantErr string
	}{
		{
			name:    "empty input",
			csv:     "",
			wantErr: "read header",
		},
		{
			name:    "missing indicator column",
			csv:     "Zona,Temperatura (°),Humedad (%),CO2 (PPM),Polución (ICA)\n",
			wantErr: `missing column "NO2 (PPM)"`,
		},
		{
			name:    "missing zone column",
			csv:     "Temperatura (°),Humedad (%),CO2 (PPM),NO2 (PPM),Polución (ICA)\n",
			wantErr: `missing column "Zona"`,
		},
		{
			name:    "non-numeric reading",
			csv:     "Zona,Temperatura (°),Humedad (%),CO2 (PPM),NO2 (PPM),Polución (ICA)\nx,25,68,abc,0.02,60\n",
			wantErr: `line 2: column "CO2 (PPM)"`,
		},
		{
			name: "target without interval table",
			csv:  datasetCSV,
			schema: func(s evaluation.Schema) evaluation.Schema {
				s.Target = "Ozono"
				return s
			},
			wantErr: "Ozono",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := defaultSchema(cat)
			if tt.schema != nil {
				schema = tt.schema(schema)
			}
			_, err := evaluation.ReadSamples(strings.NewReader(tt.csv), schema, disc)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

type fakePredictor struct {
	labels map[string]int
}

func (f *fakePredictor) Predict(_ context.Context, model string, rec domain.RawRecord) (domain.Prediction, error) {
	if model != "stub" {
		return domain.Prediction{}, fmt.Errorf("%w: %q", domain.ErrUnknownModel, model)
	}
	label, ok := f.labels[rec.Zone]
	if !ok {
		return domain.Prediction{}, &domain.UnknownZoneError{Zone: rec.Zone}
	}
	return domain.Prediction{Label: label}, nil
}

func TestEvaluate(t *testing.T) {
	labels := domain.LabelTable{1: "muy baja", 2: "baja", 3: "media", 4: "alta", 5: "muy alta"}
	samples := []evaluation.Sample{
		{Record: domain.RawRecord{Zone: "a"}, Truth: 3},
		{Record: domain.RawRecord{Zone: "b"}, Truth: 1},
		{Record: domain.RawRecord{Zone: "c"}, Truth: 2},
		{Record: domain.RawRecord{Zone: "unknown"}, Truth: 2},
	}
	p := &fakePredictor{labels: map[string]int{"a": 3, "b": 3, "c": 2}}

	res, err := evaluation.Evaluate(context.Background(), p, "stub", labels, samples)
	require.NoError(t, err)

	assert.Equal(t, "stub", res.Model)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Matrix.Total())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, res.Matrix.Labels)
	assert.InDelta(t, 2.0/3, res.Metrics().Accuracy, 1e-9)
}

func TestEvaluate_UnknownModelIsFatal(t *testing.T) {
	samples := []evaluation.Sample{{Record: domain.RawRecord{Zone: "a"}, Truth: 1}}

	_, err := evaluation.Evaluate(context.Background(), &fakePredictor{}, "Gradient Boosting", domain.LabelTable{1: "muy baja"}, samples)
	assert.ErrorIs(t, err, domain.ErrUnknownModel)
}

func TestEvaluate_TruthOutsideLabels(t *testing.T) {
	samples := []evaluation.Sample{{Record: domain.RawRecord{Zone: "a"}, Truth: 9}}
	p := &fakePredictor{labels: map[string]int{"a": 1}}

	_, err := evaluation.Evaluate(context.Background(), p, "stub", domain.LabelTable{1: "muy baja"}, samples)
	var invalid *domain.InvalidLabelError
	assert.True(t, errors.As(err, &invalid))
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	samples := []evaluation.Sample{{Record: domain.RawRecord{Zone: "a"}, Truth: 1}}
	_, err := evaluation.Evaluate(ctx, &fakePredictor{}, "stub", domain.LabelTable{1: "muy baja"}, samples)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_DefaultCatalogModels(t *testing.T) {
	cat, disc := loadCatalog(t)
	builder, err := cat.FeatureBuilder()
	require.NoError(t, err)
	registry, err := cat.Registry(nil)
	require.NoError(t, err)
	svc := prediction.New(builder, registry, cat.Labels, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	samples, err := evaluation.ReadSamples(strings.NewReader(datasetCSV), defaultSchema(cat), disc)
	require.NoError(t, err)

	for _, name := range registry.Names() {
		res, err := evaluation.Evaluate(context.Background(), svc, name, cat.Labels, samples)
		require.NoError(t, err, name)
		assert.Zero(t, res.Failed, name)
		// Every model predicts "media" for these readings; only the first row is labelled 3.
		assert.InDelta(t, 1.0/3, res.Metrics().Accuracy, 1e-9, name)
	}
}
