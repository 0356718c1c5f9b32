package domain

import (
	"context"
	"time"
)

// RawRecord is one set of sensor readings from a zone, keyed by indicator name.
type RawRecord struct {
	Zone     string             `json:"zone"`
	Readings map[string]float64 `json:"readings"`
}

// FeatureRow is the encoded form of a RawRecord: one 0/1 column per known zone
// and one severity column per declared indicator.
type FeatureRow map[string]float64

// Vector lays the row out positionally in the given column order.
// Columns absent from the row are reported as 0.
func (r FeatureRow) Vector(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, c := range columns {
		out[i] = r[c]
	}
	return out
}

// Category is the human-readable pollution severity name.
type Category string

// Prediction is the outcome of classifying one RawRecord with one model.
type Prediction struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Zone        string             `json:"zone"`
	Readings    map[string]float64 `json:"readings"`
	Features    FeatureRow         `json:"features"`
	Label       int                `json:"label"`
	Category    Category           `json:"category"`
	PredictedAt time.Time          `json:"predicted_at"`
}

// ReadingMessage is the JSON payload of a streamed sensor reading. Model is
// optional; the stream's default model is used when it is empty.
type ReadingMessage struct {
	Model    string             `json:"model,omitempty"`
	Zone     string             `json:"zone"`
	Readings map[string]float64 `json:"readings"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
