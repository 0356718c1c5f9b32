package kafka

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("sensor-7"),
		Value:     []byte(`{"zone":"Zona_Arbol Solar Juntas"}`),
		Topic:     "raw-sensor-readings",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("solar-tree")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("sensor-7"), raw.Key)
	assert.JSONEq(t, `{"zone":"Zona_Arbol Solar Juntas"}`, string(raw.Value))
	assert.Equal(t, "raw-sensor-readings", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "solar-tree", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := domain.Prediction{
		ID:          "2f1c8a52-9b7e-4d4e-8f0a-0c3e5d1b7a61",
		Model:       "Random Forest estándar",
		Zone:        "Zona_Arbol Solar Juntas",
		Readings:    map[string]float64{"CO2 (PPM)": 420},
		Features:    domain.FeatureRow{"CO2 (PPM)": 3},
		Label:       3,
		Category:    "media",
		PredictedAt: now,
	}

	msg, err := serializeToMessage(p)
	require.NoError(t, err)

	assert.Equal(t, []byte(p.ID), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "model", msg.Headers[0].Key)
	assert.Equal(t, []byte("Random Forest estándar"), msg.Headers[0].Value)
	assert.Equal(t, "category", msg.Headers[1].Key)
	assert.Equal(t, []byte("media"), msg.Headers[1].Value)
	assert.Equal(t, "predicted_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.Prediction
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 3, decoded.Label)
	assert.Equal(t, 3.0, decoded.Features["CO2 (PPM)"])
}

func TestSerializeToMessage_UnencodableReading(t *testing.T) {
	_, err := serializeToMessage(domain.Prediction{Readings: map[string]float64{"CO2 (PPM)": math.NaN()}})
	assert.Error(t, err)
}
