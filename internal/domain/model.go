package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Classifier predicts an integer category label for an encoded feature row.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, row FeatureRow) (int, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, row FeatureRow) (int, error)

func (f ClassifierFunc) Predict(ctx context.Context, row FeatureRow) (int, error) {
	return f(ctx, row)
}

// ModelMetrics are the offline evaluation scores published for a model.
type ModelMetrics struct {
	Accuracy    float64 `json:"accuracy" yaml:"accuracy"`
	F1Macro     float64 `json:"f1_macro" yaml:"f1_macro"`
	RecallMacro float64 `json:"recall_macro" yaml:"recall_macro"`
}

// Model is a named, described classifier together with its published evaluation.
type Model struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Metrics         ModelMetrics `json:"metrics"`
	ConfusionMatrix [][]int      `json:"confusion_matrix"`
	Classifier      Classifier   `json:"-"`
}

// ModelRegistry holds the selectable models in registration order. It is
// read-only after construction.
type ModelRegistry struct {
	models map[string]Model
	order  []string
}

// NewModelRegistry registers models, rejecting empty or duplicate names and nil classifiers.
func NewModelRegistry(models ...Model) (*ModelRegistry, error) {
	if len(models) == 0 {
		return nil, errors.New("model registry: no models")
	}
	r := &ModelRegistry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if m.Name == "" {
			return nil, errors.New("model registry: empty model name")
		}
		if m.Classifier == nil {
			return nil, fmt.Errorf("model registry: model %q has no classifier", m.Name)
		}
		if _, dup := r.models[m.Name]; dup {
			return nil, fmt.Errorf("model registry: duplicate model %q", m.Name)
		}
		r.models[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	return r, nil
}

// Lookup returns the named model or an error wrapping ErrUnknownModel.
func (r *ModelRegistry) Lookup(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Models returns every registered model in registration order.
func (r *ModelRegistry) Models() []Model {
	out := make([]Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// Names returns the registered model names in registration order.
func (r *ModelRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// LabelTable maps classifier output labels to category names.
type LabelTable map[int]Category

// Category maps a classifier label to its name.
func (t LabelTable) Category(label int) (Category, error) {
	c, ok := t[label]
	if !ok {
		return "", &InvalidLabelError{Label: label}
	}
	return c, nil
}

// Bounds is the documented physical range of an indicator's raw reading.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// InputBounds maps indicator names to accepted input ranges.
type InputBounds map[string]Bounds

// Check returns an *OutOfRangeError for the first reading, in indicator name
// order, outside its bounds. Indicators without bounds are not checked.
func (b InputBounds) Check(rec RawRecord) error {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		bounds := b[name]
		v, ok := rec.Readings[name]
		if !ok {
			continue
		}
		if math.IsNaN(v) || v < bounds.Min || v > bounds.Max {
			return &OutOfRangeError{Indicator: name, Value: v, Bounds: bounds}
		}
	}
	return nil
}
