package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Session events
	EventTypeJornadaStarted   EventType = "jornada.started"
	EventTypeJornadaUpdated   EventType = "jornada.updated"
	EventTypeJornadaCompleted EventType = "jornada.completed"

	// Tropa events
	EventTypeTropaCreated EventType = "tropa.created"
	EventTypeTropaUpdated EventType = "tropa.updated"
	EventTypeTropaDeleted EventType = "tropa.deleted"

	// Pool events
	EventTypePoolsGenerated     EventType = "pools.generated"
	EventTypePoolResultRecorded EventType = "pool.result_recorded"

	// Temperature events
	EventTypeTemperatureRecorded EventType = "temperature.recorded"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	JornadaID     string    `json:"jornada_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// JornadaEvent is emitted on session lifecycle transitions
type JornadaEvent struct {
	BaseEvent
	Date      string `json:"date"`
	AnalystID string `json:"analyst_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
}

// TropaEvent is emitted when a tropa is created, updated or deleted
type TropaEvent struct {
	BaseEvent
	TropaID      string `json:"tropa_id"`
	TropaNumber  string `json:"tropa_number"`
	TotalAnimals int    `json:"total_animals"`
	IsInternal   bool   `json:"is_internal"`
}

// PoolsGeneratedEvent is emitted after an allocation run replaces a
// session's pools
type PoolsGeneratedEvent struct {
	BaseEvent
	PoolCount   int `json:"pool_count"`
	SampleCount int `json:"sample_count"`
	PoolSize    int `json:"pool_size"`
}

// PoolResultEvent is emitted when a pool's digestion outcome is recorded
type PoolResultEvent struct {
	BaseEvent
	PoolID      string `json:"pool_id"`
	PoolNumber  string `json:"pool_number"`
	Result      string `json:"result"`
	LarvaeCount int    `json:"larvae_count"`
}

// TemperatureEvent is emitted when a bath reading is logged
type TemperatureEvent struct {
	BaseEvent
	TemperatureID string  `json:"temperature_id"`
	WaterTemp     float64 `json:"water_temp"`
	OutOfRange    bool    `json:"out_of_range"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, jornadaID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		JornadaID:     jornadaID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
