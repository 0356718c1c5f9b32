// Package prediction ties the feature builder, model registry and label table
// together into the single entry point used by the HTTP API, the streaming
// pipeline and the evaluation tool.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/observability"
	"github.com/google/uuid"
)

// ErrHistoryDisabled is returned by Recent when no history store is configured.
var ErrHistoryDisabled = errors.New("prediction history is disabled")

// History persists predictions.
type History interface {
	Save(ctx context.Context, p domain.Prediction) error
	Recent(ctx context.Context, limit int) ([]domain.Prediction, error)
	CheckReadiness(ctx context.Context) error
}

// Service classifies raw records. It is safe for concurrent use.
type Service struct {
	builder  *domain.FeatureBuilder
	registry *domain.ModelRegistry
	labels   domain.LabelTable
	bounds   domain.InputBounds
	history  History
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every successful prediction in h.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithInputBounds sets the physical ranges checked by ValidateInput.
func WithInputBounds(b domain.InputBounds) Option {
	return func(s *Service) { s.bounds = b }
}

// New creates a Service.
func New(builder *domain.FeatureBuilder, registry *domain.ModelRegistry, labels domain.LabelTable, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		builder:  builder,
		registry: registry,
		labels:   labels,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict encodes rec, runs the named model and maps its label to a category.
//
// Errors are typed: an unknown model wraps domain.ErrUnknownModel, encoding
// failures are *domain.MissingIndicatorError or *domain.UnknownZoneError,
// classifier failures are *domain.ClassifierError and labels outside the
// table are *domain.InvalidLabelError. Predict does not check input bounds;
// callers taking untrusted input use ValidateInput first.
func (s *Service) Predict(ctx context.Context, model string, rec domain.RawRecord) (domain.Prediction, error) {
	start := clock.Now()

	m, err := s.registry.Lookup(model)
	if err != nil {
		return domain.Prediction{}, s.fail("unknown", err)
	}

	if !s.builder.KnowsZone(rec.Zone) {
		s.logger.Warn("record zone not configured", "zone", rec.Zone, "model", model)
	}
	row, err := s.builder.Build(rec)
	if err != nil {
		return domain.Prediction{}, s.fail(model, err)
	}

	label, err := m.Classifier.Predict(ctx, row)
	if err != nil {
		return domain.Prediction{}, s.fail(model, &domain.ClassifierError{Model: model, Err: err})
	}

	category, err := s.labels.Category(label)
	if err != nil {
		return domain.Prediction{}, s.fail(model, err)
	}

	p := domain.Prediction{
		ID:          uuid.NewString(),
		Model:       model,
		Zone:        rec.Zone,
		Readings:    maps.Clone(rec.Readings),
		Features:    row,
		Label:       label,
		Category:    category,
		PredictedAt: clock.Now().UTC(),
	}

	s.metrics.Predictions.WithLabelValues(model, string(category)).Inc()
	s.metrics.PredictionDuration.WithLabelValues(model).Observe(clock.Since(start).Seconds())

	if s.history != nil {
		if err := s.history.Save(ctx, p); err != nil {
			s.metrics.HistoryWriteErrors.Inc()
			s.logger.Warn("save prediction failed", "error", err, "id", p.ID)
		}
	}

	return p, nil
}

func (s *Service) fail(model string, err error) error {
	reason := errorReason(err)
	s.metrics.PredictionErrors.WithLabelValues(model, reason).Inc()
	s.logger.Debug("prediction failed", "model", model, "reason", reason, "error", err)
	return err
}

func errorReason(err error) string {
	var (
		missing    *domain.MissingIndicatorError
		zone       *domain.UnknownZoneError
		outOfRange *domain.OutOfRangeError
		classifier *domain.ClassifierError
		label      *domain.InvalidLabelError
	)
	switch {
	case errors.Is(err, domain.ErrUnknownModel):
		return "unknown_model"
	case errors.As(err, &missing):
		return "missing_indicator"
	case errors.As(err, &zone):
		return "unknown_zone"
	case errors.As(err, &outOfRange):
		return "out_of_range"
	case errors.As(err, &classifier):
		return "classifier"
	case errors.As(err, &label):
		return "invalid_label"
	default:
		return "encoding"
	}
}

// ValidateInput checks rec's readings against the configured input bounds.
func (s *Service) ValidateInput(rec domain.RawRecord) error {
	if err := s.bounds.Check(rec); err != nil {
		return s.fail("input", err)
	}
	return nil
}

// Models returns the registered models in catalog order.
func (s *Service) Models() []domain.Model { return s.registry.Models() }

// Model returns the named model.
func (s *Service) Model(name string) (domain.Model, error) { return s.registry.Lookup(name) }

// Zones returns the configured zones.
func (s *Service) Zones() []string { return s.builder.Zones() }

// Indicators returns the declared indicators in column order.
func (s *Service) Indicators() []string { return s.builder.Indicators() }

// Bounds returns the input bounds.
func (s *Service) Bounds() domain.InputBounds { return maps.Clone(s.bounds) }

// Recent returns up to limit stored predictions, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	ps, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	return ps, nil
}

// CheckReadiness reports whether the history store, if any, is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	return s.history.CheckReadiness(ctx)
}

// MetricsRow is one line of the published model comparison table.
type MetricsRow struct {
	Model string `json:"model"`
	domain.ModelMetrics
}

// MetricsTable returns the published metrics of every model in catalog order.
func (s *Service) MetricsTable() []MetricsRow {
	models := s.registry.Models()
	rows := make([]MetricsRow, len(models))
	for i, m := range models {
		rows[i] = MetricsRow{Model: m.Name, ModelMetrics: m.Metrics}
	}
	return rows
}
