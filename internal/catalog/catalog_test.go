package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultRecord = domain.RawRecord{
	Zone: "Zona_Arbol Solar Juntas",
	Readings: map[string]float64{
		"Temperatura (°)": 25.0,
		"Humedad (%)":     68.0,
		"CO2 (PPM)":       420.0,
		"NO2 (PPM)":       0.023,
	},
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, domain.Category("media"), c.Labels[3])
	assert.Len(t, c.Zones, 4)
	assert.Equal(t, []string{"Temperatura (°)", "Humedad (%)", "CO2 (PPM)", "NO2 (PPM)"}, c.Indicators)
	assert.Len(t, c.Intervals, 5)
	assert.Equal(t, domain.Bounds{Min: 0, Max: 0.11}, c.InputBounds["NO2 (PPM)"])

	require.Len(t, c.Models, 3)
	assert.Equal(t, "Random Forest estándar", c.Models[0].Name)
	assert.InDelta(t, 0.9616, c.Models[0].Metrics.Accuracy, 1e-9)
	assert.Equal(t, [][]int{{16000, 181}, {900, 800}}, c.Models[0].ConfusionMatrix)
	assert.Contains(t, c.Models[2].Description, "SMOTE")
}

func TestDefault_DiscretizerCoversPollution(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	d, err := c.Discretizer()
	require.NoError(t, err)

	got, err := d.Bucket("Polución (ICA)", 60)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestDefault_TemperatureOutsideTable(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	d, err := c.Discretizer()
	require.NoError(t, err)

	tests := []struct {
		value    float64
		expected int
	}{
		{-5, 1},
		{49.9995, 5},
		{55, 5},
		{5, 5},
		{45, 1},
	}
	for _, tt := range tests {
		got, err := d.Bucket("Temperatura (°)", tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "temperature %g", tt.value)
	}
}

func TestDefault_EveryModelClassifiesDefaultRecordAsMedia(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	b, err := c.FeatureBuilder()
	require.NoError(t, err)
	row, err := b.Build(defaultRecord)
	require.NoError(t, err)

	registry, err := c.Registry(nil)
	require.NoError(t, err)

	for _, m := range registry.Models() {
		t.Run(m.Name, func(t *testing.T) {
			label, err := m.Classifier.Predict(context.Background(), row)
			require.NoError(t, err)
			category, err := c.Labels.Category(label)
			require.NoError(t, err)
			assert.Equal(t, domain.Category("media"), category)
		})
	}
}

func TestBuildModels_Wrap(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	var wrapped []string
	models, err := c.BuildModels(func(name string, inner domain.Classifier) domain.Classifier {
		wrapped = append(wrapped, name)
		return inner
	})
	require.NoError(t, err)
	assert.Len(t, models, 3)
	assert.Equal(t, []string{"Random Forest estándar", "Random Forest balanceado", "Random Forest con SMOTE"}, wrapped)
}

const minimalCatalog = `
labels: {1: muy baja, 2: baja, 3: media, 4: alta, 5: muy alta}
zones: [Norte, Sur]
indicators: [CO2 (PPM)]
intervals:
  - name: CO2 (PPM)
    ranges:
      - {lo: 0, hi: 1, severity: 1}
      - {lo: 2, hi: 3, severity: 2}
      - {lo: 4, hi: 5, severity: 3}
      - {lo: 6, hi: 7, severity: 4}
      - {lo: 8, hi: 9, severity: 5}
models:
  - name: stump
    artifact: models/stump.json
`

const stumpForest = `{"classes":[1,5],"trees":[{"nodes":[
  {"feature":"CO2 (PPM)","threshold":2.5,"left":1,"right":2},
  {"leaf":true,"class":1},
  {"leaf":true,"class":5}]}]}`

func TestLoadFS_Minimal(t *testing.T) {
	fsys := fstest.MapFS{
		"catalog.yaml":      {Data: []byte(minimalCatalog)},
		"models/stump.json": {Data: []byte(stumpForest)},
	}

	c, err := LoadFS(fsys, "catalog.yaml")
	require.NoError(t, err)

	registry, err := c.Registry(nil)
	require.NoError(t, err)
	m, err := registry.Lookup("stump")
	require.NoError(t, err)

	label, err := m.Classifier.Predict(context.Background(), domain.FeatureRow{"CO2 (PPM)": 4})
	require.NoError(t, err)
	assert.Equal(t, 5, label)
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(minimalCatalog), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "stump.json"), []byte(stumpForest), 0o600))

	c, err := Load(filepath.Join(dir, "catalog.yaml"))
	require.NoError(t, err)

	_, err = c.BuildModels(nil)
	assert.NoError(t, err)
}

func TestLoadFS_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		errPart string
	}{
		{
			"unknown field",
			minimalCatalog + "extra: true\n",
			"extra",
		},
		{
			"missing label",
			strings.Replace(minimalCatalog, ", 5: muy alta", "", 1),
			"label 5",
		},
		{
			"no models",
			strings.Split(minimalCatalog, "models:")[0],
			"no models",
		},
		{
			"declared indicator without table",
			strings.Replace(minimalCatalog, "indicators: [CO2 (PPM)]", "indicators: [CO2 (PPM), NO2 (PPM)]", 1),
			"NO2 (PPM)",
		},
		{
			"bad interval table",
			strings.Replace(minimalCatalog, "{lo: 8, hi: 9, severity: 5}", "{lo: 8, hi: 9, severity: 2}", 1),
			"invalid interval table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"catalog.yaml": {Data: []byte(tt.catalog)}}
			_, err := LoadFS(fsys, "catalog.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadFS_DuplicateIntervalIsInvalidTable(t *testing.T) {
	dup := strings.Replace(minimalCatalog, "intervals:\n", "intervals:\n  - name: CO2 (PPM)\n    ranges: []\n", 1)

	_, err := LoadFS(fstest.MapFS{"catalog.yaml": {Data: []byte(dup)}}, "catalog.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTable))
}

func TestBuildModels_Errors(t *testing.T) {
	t.Run("missing artifact", func(t *testing.T) {
		c, err := LoadFS(fstest.MapFS{"catalog.yaml": {Data: []byte(minimalCatalog)}}, "catalog.yaml")
		require.NoError(t, err)
		_, err = c.BuildModels(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stump")
	})

	t.Run("forest splits on unknown column", func(t *testing.T) {
		fsys := fstest.MapFS{
			"catalog.yaml":      {Data: []byte(minimalCatalog)},
			"models/stump.json": {Data: []byte(strings.Replace(stumpForest, `"feature":"CO2 (PPM)"`, `"feature":"Ozono"`, 1))},
		}
		c, err := LoadFS(fsys, "catalog.yaml")
		require.NoError(t, err)
		_, err = c.BuildModels(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Ozono")
	})
}
