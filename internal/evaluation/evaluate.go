package evaluation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
)

// Predictor classifies a record with a named model.
type Predictor interface {
	Predict(ctx context.Context, model string, rec domain.RawRecord) (domain.Prediction, error)
}

// Result is the outcome of scoring one model.
type Result struct {
	Model  string
	Matrix *ConfusionMatrix
	// Failed counts samples the model could not classify. They are excluded
	// from the matrix.
	Failed int
}

// Metrics returns the computed metrics of the result's matrix.
func (r Result) Metrics() domain.ModelMetrics { return r.Matrix.Metrics() }

// Evaluate classifies every sample with model and tallies the results over
// the labels of table. An unknown model fails the whole run; other per-sample
// errors are counted in Result.Failed.
func Evaluate(ctx context.Context, p Predictor, model string, table domain.LabelTable, samples []Sample) (Result, error) {
	res := Result{
		Model:  model,
		Matrix: NewConfusionMatrix(slices.Sorted(maps.Keys(table))),
	}
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		pred, err := p.Predict(ctx, model, s.Record)
		if errors.Is(err, domain.ErrUnknownModel) {
			return Result{}, err
		}
		if err != nil {
			res.Failed++
			continue
		}
		if err := res.Matrix.Add(s.Truth, pred.Label); err != nil {
			return Result{}, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return res, nil
}
