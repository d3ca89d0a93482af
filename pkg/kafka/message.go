package kafka

import (
	"encoding/json"
	"time"
)

// LifecycleMessage is the envelope published for every workflow change.
// Downstream consumers (document generation, audit) filter on EventType and
// JornadaID through the message headers without deserializing the payload.
type LifecycleMessage struct {
	EventType     string    `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	JornadaID     string    `json:"jornada_id"`
	EntityID      string    `json:"entity_id,omitempty"`
	AnalystID     string    `json:"analyst_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// Payload is the event-specific body
	Payload json.RawMessage `json:"payload,omitempty"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ToJSON serializes the LifecycleMessage to JSON bytes
func (m *LifecycleMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ParseLifecycleMessage parses a raw Kafka message into a LifecycleMessage
func ParseLifecycleMessage(data []byte) (*LifecycleMessage, error) {
	var msg LifecycleMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageHeaders contains Kafka message headers for efficient filtering
type MessageHeaders struct {
	EventType   string
	JornadaID   string
	EntityID    string
	TraceParent string
	TraceState  string
}

// ToKafkaHeaders converts MessageHeaders to a slice of header key-value pairs
func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 5)

	if h.EventType != "" {
		headers = append(headers, Header{Key: "event_type", Value: []byte(h.EventType)})
	}
	if h.JornadaID != "" {
		headers = append(headers, Header{Key: "jornada_id", Value: []byte(h.JornadaID)})
	}
	if h.EntityID != "" {
		headers = append(headers, Header{Key: "entity_id", Value: []byte(h.EntityID)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}
	if h.TraceState != "" {
		headers = append(headers, Header{Key: "tracestate", Value: []byte(h.TraceState)})
	}

	return headers
}

// Header represents a Kafka message header
type Header struct {
	Key   string
	Value []byte
}

// ExtractHeaders extracts MessageHeaders from Kafka headers
func ExtractHeaders(headers []Header) MessageHeaders {
	var mh MessageHeaders
	for _, h := range headers {
		switch h.Key {
		case "event_type":
			mh.EventType = string(h.Value)
		case "jornada_id":
			mh.JornadaID = string(h.Value)
		case "entity_id":
			mh.EntityID = string(h.Value)
		case "traceparent":
			mh.TraceParent = string(h.Value)
		case "tracestate":
			mh.TraceState = string(h.Value)
		}
	}
	return mh
}
