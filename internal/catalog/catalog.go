// Package catalog loads the static description of the classifier service:
// category labels, zones, indicator interval tables, input bounds and the
// registered models with their forest artifacts.
//
// A catalog is a YAML document. Model artifacts are resolved relative to the
// directory holding it, so a catalog and its models travel together. The
// service ships with an embedded default catalog; see [Default].
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/air-quality-classifier/internal/adapter/forest"
	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed defaults
var defaults embed.FS

const defaultName = "catalog.yaml"

// IndicatorIntervals is the interval table of one indicator.
type IndicatorIntervals struct {
	Name   string            `yaml:"name"`
	Ranges []domain.Interval `yaml:"ranges"`
}

// ModelSpec describes one registered model and where its forest lives.
type ModelSpec struct {
	Name            string              `yaml:"name"`
	Description     string              `yaml:"description"`
	Artifact        string              `yaml:"artifact"`
	Metrics         domain.ModelMetrics `yaml:"metrics"`
	ConfusionMatrix [][]int             `yaml:"confusion_matrix"`
}

// Catalog is a validated, read-only service description.
type Catalog struct {
	Labels      domain.LabelTable    `yaml:"labels"`
	Zones       []string             `yaml:"zones"`
	Indicators  []string             `yaml:"indicators"`
	Intervals   []IndicatorIntervals `yaml:"intervals"`
	InputBounds domain.InputBounds   `yaml:"input_bounds"`
	Models      []ModelSpec          `yaml:"models"`

	fsys fs.FS
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalog: %w", err)
	}
	return LoadFS(sub, defaultName)
}

// Load reads the catalog at path. Artifacts resolve against its directory.
func Load(path string) (*Catalog, error) {
	return LoadFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// LoadFS reads the named catalog from fsys.
func LoadFS(fsys fs.FS, name string) (*Catalog, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}
	c.fsys = fsys

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for label := 1; label <= domain.BucketCount; label++ {
		if c.Labels[label] == "" {
			return fmt.Errorf("label %d has no category", label)
		}
	}
	if len(c.Labels) != domain.BucketCount {
		return fmt.Errorf("labels must cover exactly 1-%d", domain.BucketCount)
	}
	if len(c.Models) == 0 {
		return errors.New("no models")
	}
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model %d has no name", i)
		}
		if m.Artifact == "" {
			return fmt.Errorf("model %q has no artifact", m.Name)
		}
	}
	for name, b := range c.InputBounds {
		if b.Min > b.Max {
			return fmt.Errorf("input bounds for %q: min above max", name)
		}
	}
	// Table and builder checks run through the same constructors the service uses.
	if _, err := c.FeatureBuilder(); err != nil {
		return err
	}
	return nil
}

// FS returns the filesystem that model artifacts resolve against.
func (c *Catalog) FS() fs.FS { return c.fsys }

// IntervalTable returns the interval tables keyed by indicator name.
func (c *Catalog) IntervalTable() (domain.IntervalTable, error) {
	table := make(domain.IntervalTable, len(c.Intervals))
	for _, iv := range c.Intervals {
		if _, dup := table[iv.Name]; dup {
			return nil, fmt.Errorf("%w: indicator %q listed twice", domain.ErrInvalidTable, iv.Name)
		}
		table[iv.Name] = iv.Ranges
	}
	return table, nil
}

// Discretizer builds a discretizer over every interval table in the catalog.
func (c *Catalog) Discretizer() (*domain.Discretizer, error) {
	table, err := c.IntervalTable()
	if err != nil {
		return nil, err
	}
	return domain.NewDiscretizer(table)
}

// FeatureBuilder builds the encoder for the catalog's zones and declared indicators.
func (c *Catalog) FeatureBuilder(opts ...domain.BuilderOption) (*domain.FeatureBuilder, error) {
	d, err := c.Discretizer()
	if err != nil {
		return nil, err
	}
	return domain.NewFeatureBuilder(d, c.Zones, c.Indicators, opts...)
}

// WrapFunc decorates a model's classifier, e.g. with a cache.
type WrapFunc func(model string, c domain.Classifier) domain.Classifier

// BuildModels loads every model's forest and checks that it only splits on
// columns the feature builder produces. A nil wrap leaves classifiers bare.
func (c *Catalog) BuildModels(wrap WrapFunc) ([]domain.Model, error) {
	b, err := c.FeatureBuilder()
	if err != nil {
		return nil, err
	}
	columns := make(map[string]struct{})
	for _, col := range b.Columns() {
		columns[col] = struct{}{}
	}

	models := make([]domain.Model, 0, len(c.Models))
	for _, ms := range c.Models {
		f, err := forest.LoadFS(c.fsys, ms.Artifact)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", ms.Name, err)
		}
		for _, feature := range f.Features() {
			if _, ok := columns[feature]; !ok {
				return nil, fmt.Errorf("model %q splits on unknown column %q", ms.Name, feature)
			}
		}

		var classifier domain.Classifier = f
		if wrap != nil {
			classifier = wrap(ms.Name, classifier)
		}
		models = append(models, domain.Model{
			Name:            ms.Name,
			Description:     ms.Description,
			Metrics:         ms.Metrics,
			ConfusionMatrix: ms.ConfusionMatrix,
			Classifier:      classifier,
		})
	}
	return models, nil
}

// Registry builds the model registry from BuildModels.
func (c *Catalog) Registry(wrap WrapFunc) (*domain.ModelRegistry, error) {
	models, err := c.BuildModels(wrap)
	if err != nil {
		return nil, err
	}
	return domain.NewModelRegistry(models...)
}
