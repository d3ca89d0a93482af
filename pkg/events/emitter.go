// Package events handles event emission for workflow lifecycle changes
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/labflow/sanidad/pkg/kafka"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes workflow lifecycle events for downstream consumers
// (document generation, audit)
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) publish(ctx context.Context, eventType EventType, jornadaID uuid.UUID, entityID string, analystID string, body any) error {
	if e.producer == nil {
		return nil // emission disabled
	}

	payload, err := json.Marshal(body)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to serialize %s event", eventType)
		return err
	}

	msg := &kafka.LifecycleMessage{
		EventType:     string(eventType),
		SchemaVersion: SchemaVersion,
		JornadaID:     jornadaID.String(),
		EntityID:      entityID,
		AnalystID:     analystID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		TraceID:       tracing.GetTraceID(ctx),
		SpanID:        tracing.GetSpanID(ctx),
	}

	if err := e.producer.Publish(ctx, msg); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}

// EmitJornadaStarted emits a session started event
func (e *Emitter) EmitJornadaStarted(ctx context.Context, jornada *models.Jornada) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJornadaStarted")
	defer span.End()

	event := JornadaEvent{
		BaseEvent: NewBaseEvent(EventTypeJornadaStarted, jornada.ID.String()),
		Date:      jornada.Date,
		AnalystID: jornada.AnalystID,
		Kind:      string(jornada.Kind),
		Status:    jornada.Status,
	}
	return e.publish(ctx, EventTypeJornadaStarted, jornada.ID, "", jornada.AnalystID, event)
}

// EmitJornadaUpdated emits a session updated event
func (e *Emitter) EmitJornadaUpdated(ctx context.Context, jornada *models.Jornada) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJornadaUpdated")
	defer span.End()

	event := JornadaEvent{
		BaseEvent: NewBaseEvent(EventTypeJornadaUpdated, jornada.ID.String()),
		Date:      jornada.Date,
		AnalystID: jornada.AnalystID,
		Kind:      string(jornada.Kind),
		Status:    jornada.Status,
	}
	return e.publish(ctx, EventTypeJornadaUpdated, jornada.ID, "", jornada.AnalystID, event)
}

// EmitJornadaCompleted emits a session completed event
func (e *Emitter) EmitJornadaCompleted(ctx context.Context, jornada *models.Jornada) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitJornadaCompleted")
	defer span.End()

	event := JornadaEvent{
		BaseEvent: NewBaseEvent(EventTypeJornadaCompleted, jornada.ID.String()),
		Date:      jornada.Date,
		AnalystID: jornada.AnalystID,
		Kind:      string(jornada.Kind),
		Status:    jornada.Status,
	}
	return e.publish(ctx, EventTypeJornadaCompleted, jornada.ID, "", jornada.AnalystID, event)
}

// EmitTropaChanged emits a tropa created/updated/deleted event
func (e *Emitter) EmitTropaChanged(ctx context.Context, eventType EventType, tropa *models.Tropa) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTropaChanged")
	defer span.End()

	event := TropaEvent{
		BaseEvent:    NewBaseEvent(eventType, tropa.JornadaID.String()),
		TropaID:      tropa.ID.String(),
		TropaNumber:  tropa.TropaNumber,
		TotalAnimals: tropa.TotalAnimals,
		IsInternal:   tropa.IsInternal,
	}
	return e.publish(ctx, eventType, tropa.JornadaID, tropa.ID.String(), "", event)
}

// EmitPoolsGenerated emits an event after an allocation run
func (e *Emitter) EmitPoolsGenerated(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool, poolSize int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPoolsGenerated")
	defer span.End()

	samples := 0
	for _, p := range pools {
		samples += p.SampleCount
	}

	event := PoolsGeneratedEvent{
		BaseEvent:   NewBaseEvent(EventTypePoolsGenerated, jornadaID.String()),
		PoolCount:   len(pools),
		SampleCount: samples,
		PoolSize:    poolSize,
	}
	return e.publish(ctx, EventTypePoolsGenerated, jornadaID, "", "", event)
}

// EmitPoolResultRecorded emits an event when a pool outcome is recorded
func (e *Emitter) EmitPoolResultRecorded(ctx context.Context, pool *models.Pool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPoolResultRecorded")
	defer span.End()

	event := PoolResultEvent{
		BaseEvent:   NewBaseEvent(EventTypePoolResultRecorded, pool.JornadaID.String()),
		PoolID:      pool.ID.String(),
		PoolNumber:  pool.PoolNumber,
		Result:      string(pool.Result),
		LarvaeCount: pool.LarvaeCount,
	}
	return e.publish(ctx, EventTypePoolResultRecorded, pool.JornadaID, pool.ID.String(), "", event)
}

// EmitTemperatureRecorded emits an event when a bath reading is logged
func (e *Emitter) EmitTemperatureRecorded(ctx context.Context, temp *models.Temperature) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTemperatureRecorded")
	defer span.End()

	event := TemperatureEvent{
		BaseEvent:     NewBaseEvent(EventTypeTemperatureRecorded, temp.JornadaID.String()),
		TemperatureID: temp.ID.String(),
		WaterTemp:     temp.WaterTemp,
		OutOfRange:    temp.OutOfRange,
	}
	return e.publish(ctx, EventTypeTemperatureRecorded, temp.JornadaID, temp.ID.String(), "", event)
}
