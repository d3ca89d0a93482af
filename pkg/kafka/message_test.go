package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLifecycleMessage(t *testing.T) {
	jsonData := `{
		"event_type": "pool.result_recorded",
		"schema_version": "1.0",
		"jornada_id": "550e8400-e29b-41d4-a716-446655440000",
		"entity_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		"analyst_id": "mgarcia",
		"timestamp": "2025-01-15T10:30:00Z",
		"payload": {"result": "ND", "larvae_count": 0},
		"trace_id": "abc123",
		"span_id": "def456"
	}`

	msg, err := ParseLifecycleMessage([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, "pool.result_recorded", msg.EventType)
	assert.Equal(t, "1.0", msg.SchemaVersion)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", msg.JornadaID)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", msg.EntityID)
	assert.Equal(t, "mgarcia", msg.AnalystID)
	assert.Equal(t, "abc123", msg.TraceID)
	assert.Equal(t, "def456", msg.SpanID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "ND", payload["result"])
}

func TestLifecycleMessageToJSON(t *testing.T) {
	msg := &LifecycleMessage{
		EventType:     "jornada.started",
		SchemaVersion: "1.0",
		JornadaID:     "jornada-1",
		AnalystID:     "analyst-1",
		Timestamp:     time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Payload:       json.RawMessage(`{"kind": "normal"}`),
		TraceID:       "trace-1",
	}

	data, err := msg.ToJSON()
	require.NoError(t, err)

	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "jornada.started", parsed["event_type"])
	assert.Equal(t, "jornada-1", parsed["jornada_id"])
	assert.Equal(t, "analyst-1", parsed["analyst_id"])

	payload, ok := parsed["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "normal", payload["kind"])
}

func TestMessageHeaders(t *testing.T) {
	headers := &MessageHeaders{
		EventType:   "tropa.created",
		JornadaID:   "jornada-1",
		EntityID:    "tropa-1",
		TraceParent: "00-trace-span-01",
	}

	kafkaHeaders := headers.ToKafkaHeaders()

	assert.Len(t, kafkaHeaders, 4)

	headerMap := make(map[string]string)
	for _, h := range kafkaHeaders {
		headerMap[h.Key] = string(h.Value)
	}

	assert.Equal(t, "tropa.created", headerMap["event_type"])
	assert.Equal(t, "jornada-1", headerMap["jornada_id"])
	assert.Equal(t, "tropa-1", headerMap["entity_id"])
	assert.Equal(t, "00-trace-span-01", headerMap["traceparent"])
}

func TestExtractHeaders(t *testing.T) {
	headers := []Header{
		{Key: "event_type", Value: []byte("pools.generated")},
		{Key: "jornada_id", Value: []byte("jornada-1")},
		{Key: "traceparent", Value: []byte("00-abc-def-01")},
	}

	mh := ExtractHeaders(headers)

	assert.Equal(t, "pools.generated", mh.EventType)
	assert.Equal(t, "jornada-1", mh.JornadaID)
	assert.Equal(t, "00-abc-def-01", mh.TraceParent)
	assert.Empty(t, mh.EntityID)
}
