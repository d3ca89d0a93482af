// Package pool implements digestion result recording.
package pool

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/metrics"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// PoolRepository is the pool persistence the service depends on
type PoolRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Pool, error)
	UpdateResult(ctx context.Context, pool *models.Pool) error
}

// JornadaRepository is the session lookup the service depends on
type JornadaRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error)
}

// EventEmitter publishes result events
type EventEmitter interface {
	EmitPoolResultRecorded(ctx context.Context, pool *models.Pool) error
}

// Service records digestion outcomes on pools
type Service struct {
	pools    PoolRepository
	jornadas JornadaRepository
	emitter  EventEmitter
	logger   ectologger.Logger
}

// NewService creates a new result recording service
func NewService(pools PoolRepository, jornadas JornadaRepository, emitter EventEmitter, logger ectologger.Logger) *Service {
	return &Service{
		pools:    pools,
		jornadas: jornadas,
		emitter:  emitter,
		logger:   logger,
	}
}

// Get retrieves a pool by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	return s.pools.Get(ctx, id)
}

// RecordResult stores a pool's digestion outcome. A positive outcome must
// carry a larvae count; a negative outcome clears count and observations.
// Recording again overwrites the previous outcome while the session is open.
func (s *Service) RecordResult(ctx context.Context, poolID uuid.UUID, req models.RecordResultRequest) (*models.Pool, error) {
	ctx, span := tracing.StartSpan(ctx, "pool.Service.RecordResult")
	defer span.End()

	pool, err := s.pools.Get(ctx, poolID)
	if err != nil {
		return nil, err
	}

	jornada, err := s.jornadas.Get(ctx, pool.JornadaID)
	if err != nil {
		return nil, err
	}
	if !jornada.IsOpen() {
		return nil, errors.Newf(errors.CodeImmutable, "session %s is completed", jornada.ID).AddEntity("pool")
	}

	if !req.Result.Valid() {
		return nil, errors.Newf(errors.CodeInvalidResult, "result must be %s or %s", models.PoolResultNegative, models.PoolResultPositive).AddEntity("pool")
	}

	switch req.Result {
	case models.PoolResultPositive:
		if req.LarvaeCount <= 0 {
			return nil, errors.New(errors.CodeInvalidResult, "a positive result requires a larvae count").AddEntity("pool")
		}
		pool.Result = models.PoolResultPositive
		pool.LarvaeCount = req.LarvaeCount
		pool.Observations = req.Observations
	case models.PoolResultNegative:
		pool.Result = models.PoolResultNegative
		pool.LarvaeCount = 0
		pool.Observations = ""
	}

	if err := s.pools.UpdateResult(ctx, pool); err != nil {
		return nil, err
	}

	metrics.RecordResult(string(pool.Result))
	if err := s.emitter.EmitPoolResultRecorded(ctx, pool); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("result recorded but event emission failed")
	}

	return pool, nil
}
