package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
)

// Predictor is the subset of the prediction service used by the stream.
type Predictor interface {
	ValidateInput(rec domain.RawRecord) error
	Predict(ctx context.Context, model string, rec domain.RawRecord) (domain.Prediction, error)
}

// PredictionTransformer implements Transformer by decoding a ReadingMessage
// and classifying it.
type PredictionTransformer struct {
	predictor    Predictor
	defaultModel string
	logger       *slog.Logger
}

// NewTransformer creates a PredictionTransformer. Messages without a model
// are classified with defaultModel.
func NewTransformer(predictor Predictor, defaultModel string, logger *slog.Logger) *PredictionTransformer {
	return &PredictionTransformer{
		predictor:    predictor,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (t *PredictionTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Prediction, error) {
	var msg domain.ReadingMessage
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return domain.Prediction{}, fmt.Errorf("decode reading: %w", err)
	}

	model := msg.Model
	if model == "" {
		model = t.defaultModel
	}

	rec := domain.RawRecord{Zone: msg.Zone, Readings: msg.Readings}
	if err := t.predictor.ValidateInput(rec); err != nil {
		return domain.Prediction{}, err
	}
	p, err := t.predictor.Predict(ctx, model, rec)
	if err != nil {
		return domain.Prediction{}, err
	}

	t.logger.Debug("reading classified", "id", p.ID, "model", model, "category", p.Category, "offset", raw.Offset)
	return p, nil
}
