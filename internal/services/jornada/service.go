// Package jornada implements the testing session lifecycle.
package jornada

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/events"
	"github.com/labflow/sanidad/pkg/metrics"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/pooling"
	"github.com/labflow/sanidad/pkg/report"
	"github.com/labflow/sanidad/pkg/tracing"
)

// JornadaRepository is the session persistence the service depends on
type JornadaRepository interface {
	Create(ctx context.Context, req models.CreateJornadaRequest) (*models.Jornada, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error)
	GetOpen(ctx context.Context) (*models.Jornada, error)
	List(ctx context.Context, status *string, page, pageSize int) ([]models.Jornada, int, error)
	Update(ctx context.Context, jornada *models.Jornada) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// TropaRepository is the tropa persistence the service depends on
type TropaRepository interface {
	Create(ctx context.Context, jornadaID uuid.UUID, req models.CreateTropaRequest) (*models.Tropa, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Tropa, error)
	ListByJornada(ctx context.Context, jornadaID uuid.UUID, filter string) ([]models.Tropa, error)
	Update(ctx context.Context, tropa *models.Tropa) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PoolRepository is the pool persistence the service depends on
type PoolRepository interface {
	Replace(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool) error
	ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Pool, error)
	Counts(ctx context.Context, jornadaID uuid.UUID) (total int, pending int, err error)
}

// TemperatureRepository is the temperature log persistence the service depends on
type TemperatureRepository interface {
	Create(ctx context.Context, temp *models.Temperature) error
	ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Temperature, error)
}

// EventEmitter publishes lifecycle events. Emission failures are logged, not
// surfaced; the workflow never fails because a consumer is unreachable.
type EventEmitter interface {
	EmitJornadaStarted(ctx context.Context, jornada *models.Jornada) error
	EmitJornadaUpdated(ctx context.Context, jornada *models.Jornada) error
	EmitJornadaCompleted(ctx context.Context, jornada *models.Jornada) error
	EmitTropaChanged(ctx context.Context, eventType events.EventType, tropa *models.Tropa) error
	EmitPoolsGenerated(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool, poolSize int) error
	EmitTemperatureRecorded(ctx context.Context, temp *models.Temperature) error
}

// Service manages the session lifecycle: start, edit, tropa registration,
// pool allocation, temperature logging and completion.
type Service struct {
	db           database.DB
	jornadas     JornadaRepository
	tropas       TropaRepository
	pools        PoolRepository
	temperatures TemperatureRepository
	allocator    *pooling.Allocator
	emitter      EventEmitter
	logger       ectologger.Logger

	// accepted water bath window in Celsius
	BathTempMin float64
	BathTempMax float64

	// samples per pool by session kind
	PoolSizeNormal  int
	PoolSizeSuspect int
}

// NewService creates a new session lifecycle service
func NewService(
	db database.DB,
	jornadas JornadaRepository,
	tropas TropaRepository,
	pools PoolRepository,
	temperatures TemperatureRepository,
	allocator *pooling.Allocator,
	emitter EventEmitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		db:           db,
		jornadas:     jornadas,
		tropas:       tropas,
		pools:        pools,
		temperatures: temperatures,
		allocator:    allocator,
		emitter:      emitter,
		logger:       logger,
		BathTempMin:  44,
		BathTempMax:  46,

		PoolSizeNormal:  models.JornadaKindNormal.PoolSize(),
		PoolSizeSuspect: models.JornadaKindSuspect.PoolSize(),
	}
}

// Start opens a new session. The open check and the insert run in one
// transaction; the partial unique index backs the same invariant in storage.
func (s *Service) Start(ctx context.Context, req models.CreateJornadaRequest) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.Start")
	defer span.End()

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	open, err := s.jornadas.GetOpen(ctx)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errors.Newf(errors.CodeConflict, "session %s is already open", open.ID).AddEntity("jornada")
	}

	jornada, err := s.jornadas.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordJornadaTransition(string(jornada.Kind), "started")
	if err := s.emitter.EmitJornadaStarted(ctx, jornada); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("session started but event emission failed")
	}

	return jornada, nil
}

// Get retrieves a session by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	return s.jornadas.Get(ctx, id)
}

// List retrieves sessions, optionally filtered by status
func (s *Service) List(ctx context.Context, status *string, page, pageSize int) ([]models.Jornada, int, error) {
	return s.jornadas.List(ctx, status, page, pageSize)
}

// Current returns the open session with its tropas, pools and temperature
// readings rolled up
func (s *Service) Current(ctx context.Context) (*models.JornadaDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.Current")
	defer span.End()

	open, err := s.jornadas.GetOpen(ctx)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, errors.New(errors.CodeNotFound, "no session is open").AddEntity("jornada")
	}

	return s.detail(ctx, open)
}

func (s *Service) detail(ctx context.Context, jornada *models.Jornada) (*models.JornadaDetail, error) {
	tropas, err := s.tropas.ListByJornada(ctx, jornada.ID, models.TropaFilterAll)
	if err != nil {
		return nil, err
	}
	pools, err := s.pools.ListByJornada(ctx, jornada.ID)
	if err != nil {
		return nil, err
	}
	temps, err := s.temperatures.ListByJornada(ctx, jornada.ID)
	if err != nil {
		return nil, err
	}

	return &models.JornadaDetail{
		Jornada:      *jornada,
		Tropas:       tropas,
		Pools:        pools,
		Temperatures: temps,
	}, nil
}

// Edit updates an open session's metadata
func (s *Service) Edit(ctx context.Context, id uuid.UUID, req models.UpdateJornadaRequest) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.Edit")
	defer span.End()

	jornada, err := s.openJornada(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		jornada.Date = *req.Date
	}
	if req.AnalystID != nil {
		jornada.AnalystID = *req.AnalystID
	}
	if req.TechniqueID != nil {
		jornada.TechniqueID = req.TechniqueID
	}
	if req.Kind != nil {
		jornada.Kind = *req.Kind
	}

	if err := s.jornadas.Update(ctx, jornada); err != nil {
		return nil, err
	}

	if err := s.emitter.EmitJornadaUpdated(ctx, jornada); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("session updated but event emission failed")
	}

	return jornada, nil
}

// Finish completes a session. A session can only be finished once pools exist
// and every pool has a recorded result.
func (s *Service) Finish(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.Finish")
	defer span.End()

	jornada, err := s.openJornada(ctx, id)
	if err != nil {
		return nil, err
	}

	total, pending, err := s.pools.Counts(ctx, id)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, errors.New(errors.CodeNotReady, "session has no pools").AddEntity("jornada")
	}
	if pending > 0 {
		return nil, errors.Newf(errors.CodeNotReady, "%d pools have no recorded result", pending).AddEntity("jornada")
	}

	if err := s.jornadas.SetStatus(ctx, id, models.JornadaStatusCompleted); err != nil {
		return nil, err
	}
	jornada.Status = models.JornadaStatusCompleted

	metrics.RecordJornadaTransition(string(jornada.Kind), "completed")
	if err := s.emitter.EmitJornadaCompleted(ctx, jornada); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("session completed but event emission failed")
	}

	return jornada, nil
}

// AddTropa registers a tropa on an open session
func (s *Service) AddTropa(ctx context.Context, jornadaID uuid.UUID, req models.CreateTropaRequest) (*models.Tropa, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.AddTropa")
	defer span.End()

	if _, err := s.openJornada(ctx, jornadaID); err != nil {
		return nil, err
	}

	tropa, err := s.tropas.Create(ctx, jornadaID, req)
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitTropaChanged(ctx, events.EventTypeTropaCreated, tropa); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("tropa created but event emission failed")
	}

	return tropa, nil
}

// ListTropas retrieves a session's tropas, optionally filtered to internal
// or external ones
func (s *Service) ListTropas(ctx context.Context, jornadaID uuid.UUID, filter string) ([]models.Tropa, error) {
	if _, err := s.jornadas.Get(ctx, jornadaID); err != nil {
		return nil, err
	}
	return s.tropas.ListByJornada(ctx, jornadaID, filter)
}

// UpdateTropa edits a tropa on an open session
func (s *Service) UpdateTropa(ctx context.Context, tropaID uuid.UUID, req models.UpdateTropaRequest) (*models.Tropa, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.UpdateTropa")
	defer span.End()

	tropa, err := s.tropas.Get(ctx, tropaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.openJornada(ctx, tropa.JornadaID); err != nil {
		return nil, err
	}

	if req.CustomerID != nil {
		tropa.CustomerID = req.CustomerID
	}
	if req.TropaNumber != nil {
		tropa.TropaNumber = *req.TropaNumber
	}
	if req.TotalAnimals != nil {
		tropa.TotalAnimals = *req.TotalAnimals
	}
	if req.Species != nil {
		tropa.Species = *req.Species
	}
	if req.Category != nil {
		tropa.Category = *req.Category
	}
	if req.IsInternal != nil {
		tropa.IsInternal = *req.IsInternal
	}

	if err := s.tropas.Update(ctx, tropa); err != nil {
		return nil, err
	}

	if err := s.emitter.EmitTropaChanged(ctx, events.EventTypeTropaUpdated, tropa); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("tropa updated but event emission failed")
	}

	return tropa, nil
}

// DeleteTropa removes a tropa from an open session
func (s *Service) DeleteTropa(ctx context.Context, tropaID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.DeleteTropa")
	defer span.End()

	tropa, err := s.tropas.Get(ctx, tropaID)
	if err != nil {
		return err
	}
	if _, err := s.openJornada(ctx, tropa.JornadaID); err != nil {
		return err
	}

	if err := s.tropas.Delete(ctx, tropaID); err != nil {
		return err
	}

	if err := s.emitter.EmitTropaChanged(ctx, events.EventTypeTropaDeleted, tropa); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("tropa deleted but event emission failed")
	}

	return nil
}

// GeneratePools allocates a session's tropas into pools, replacing any
// previous allocation. Recorded results on replaced pools are discarded, so
// regeneration is only allowed while the session is open.
func (s *Service) GeneratePools(ctx context.Context, jornadaID uuid.UUID) ([]models.Pool, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.GeneratePools")
	defer span.End()

	jornada, err := s.openJornada(ctx, jornadaID)
	if err != nil {
		return nil, err
	}

	tropas, err := s.tropas.ListByJornada(ctx, jornadaID, models.TropaFilterAll)
	if err != nil {
		return nil, err
	}

	poolSize := s.PoolSizeNormal
	if jornada.Kind == models.JornadaKindSuspect {
		poolSize = s.PoolSizeSuspect
	}
	start := time.Now()
	drafts, err := s.allocator.Allocate(tropas, poolSize)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pools := make([]models.Pool, 0, len(drafts))
	for _, d := range drafts {
		pools = append(pools, models.Pool{
			ID:                uuid.New(),
			JornadaID:         jornadaID,
			PoolNumber:        d.Number,
			SampleCount:       d.SampleCount,
			Weight:            d.Weight,
			Result:            models.PoolResultPending,
			LarvaeCount:       0,
			RangeStart:        d.RangeStart,
			RangeEnd:          d.RangeEnd,
			Composition:       d.Composition(),
			CompositionTropas: d.TropaList(),
			CompositionCounts: d.CountList(),
			CreatedAt:         now,
		})
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.pools.Replace(ctx, jornadaID, pools); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordPoolsGenerated(string(jornada.Kind), len(pools), time.Since(start).Seconds())
	if err := s.emitter.EmitPoolsGenerated(ctx, jornadaID, pools, poolSize); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("pools generated but event emission failed")
	}

	return pools, nil
}

// ListPools retrieves a session's pools
func (s *Service) ListPools(ctx context.Context, jornadaID uuid.UUID) ([]models.Pool, error) {
	if _, err := s.jornadas.Get(ctx, jornadaID); err != nil {
		return nil, err
	}
	return s.pools.ListByJornada(ctx, jornadaID)
}

// AddTemperature logs a bath reading on an open session. Readings outside
// the accepted water window are flagged.
func (s *Service) AddTemperature(ctx context.Context, jornadaID uuid.UUID, req models.CreateTemperatureRequest) (*models.Temperature, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.AddTemperature")
	defer span.End()

	if _, err := s.openJornada(ctx, jornadaID); err != nil {
		return nil, err
	}

	temp := &models.Temperature{
		JornadaID:    jornadaID,
		Time:         req.Time,
		WaterTemp:    req.WaterTemp,
		ChamberTemp:  req.ChamberTemp,
		OutOfRange:   req.WaterTemp < s.BathTempMin || req.WaterTemp > s.BathTempMax,
		Observations: req.Observations,
	}

	if err := s.temperatures.Create(ctx, temp); err != nil {
		return nil, err
	}

	if temp.OutOfRange {
		metrics.TemperatureDeviationsTotal.Inc()
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"jornada_id": jornadaID,
			"water_temp": temp.WaterTemp,
		}).Warn("water bath temperature outside accepted window")
	}

	if err := s.emitter.EmitTemperatureRecorded(ctx, temp); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("temperature recorded but event emission failed")
	}

	return temp, nil
}

// ListTemperatures retrieves a session's bath readings
func (s *Service) ListTemperatures(ctx context.Context, jornadaID uuid.UUID) ([]models.Temperature, error) {
	if _, err := s.jornadas.Get(ctx, jornadaID); err != nil {
		return nil, err
	}
	return s.temperatures.ListByJornada(ctx, jornadaID)
}

// Report assembles the document rows for a completed session
func (s *Service) Report(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Service.Report")
	defer span.End()

	jornada, err := s.jornadas.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if jornada.Status != models.JornadaStatusCompleted {
		return nil, errors.New(errors.CodeNotReady, "report is only available for completed sessions").AddEntity("jornada")
	}

	tropas, err := s.tropas.ListByJornada(ctx, id, models.TropaFilterAll)
	if err != nil {
		return nil, err
	}
	pools, err := s.pools.ListByJornada(ctx, id)
	if err != nil {
		return nil, err
	}

	return report.Build(*jornada, tropas, pools), nil
}

// openJornada fetches a session and fails when it no longer accepts changes
func (s *Service) openJornada(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	jornada, err := s.jornadas.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !jornada.IsOpen() {
		return nil, errors.Newf(errors.CodeImmutable, "session %s is completed", id).AddEntity("jornada")
	}
	return jornada, nil
}
