// Package cache memoizes classifier outputs per encoded feature row.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClassifier wraps a Classifier with an in-memory LRU cache keyed by
// the full feature row. Failed predictions are not cached.
type CachedClassifier struct {
	model   string
	inner   domain.Classifier
	cache   *lru.Cache[string, int]
	metrics *observability.Metrics
}

var _ domain.Classifier = (*CachedClassifier)(nil)

// NewCachedClassifier creates a cache decorator around a model's classifier.
func NewCachedClassifier(model string, inner domain.Classifier, size int, metrics *observability.Metrics) (*CachedClassifier, error) {
	c, err := lru.New[string, int](size)
	if err != nil {
		return nil, fmt.Errorf("classifier cache for %q: %w", model, err)
	}
	return &CachedClassifier{model: model, inner: inner, cache: c, metrics: metrics}, nil
}

func (c *CachedClassifier) Predict(ctx context.Context, row domain.FeatureRow) (int, error) {
	key := rowKey(row)
	if label, ok := c.cache.Get(key); ok {
		c.metrics.ClassifierCache.WithLabelValues(c.model, "hit").Inc()
		return label, nil
	}
	c.metrics.ClassifierCache.WithLabelValues(c.model, "miss").Inc()

	label, err := c.inner.Predict(ctx, row)
	if err != nil {
		return label, err
	}
	c.cache.Add(key, label)
	return label, nil
}

// Len reports the number of cached rows.
func (c *CachedClassifier) Len() int { return c.cache.Len() }

// rowKey renders a row canonically: columns sorted, shortest exact float form.
func rowKey(row domain.FeatureRow) string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var sb strings.Builder
	for _, k := range cols {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(row[k], 'g', -1, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}
