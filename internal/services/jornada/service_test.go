package jornada

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/events"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/pooling"
)

type fakeDB struct {
	database.DB
}

func (f *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, &fakeTx{}, nil
}

type fakeTx struct {
	database.Tx
}

func (t *fakeTx) IsOpen() bool                      { return true }
func (t *fakeTx) Commit(ctx context.Context) error  { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeJornadas struct {
	items map[uuid.UUID]*models.Jornada
}

func newFakeJornadas() *fakeJornadas {
	return &fakeJornadas{items: make(map[uuid.UUID]*models.Jornada)}
}

func (f *fakeJornadas) Create(ctx context.Context, req models.CreateJornadaRequest) (*models.Jornada, error) {
	kind := req.Kind
	if kind == "" {
		kind = models.JornadaKindNormal
	}
	j := &models.Jornada{
		ID:        uuid.New(),
		Date:      req.Date,
		AnalystID: req.AnalystID,
		Kind:      kind,
		Status:    models.JornadaStatusOpen,
	}
	f.items[j.ID] = j
	out := *j
	return &out, nil
}

func (f *fakeJornadas) Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	j, ok := f.items[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}
	out := *j
	return &out, nil
}

func (f *fakeJornadas) GetOpen(ctx context.Context) (*models.Jornada, error) {
	for _, j := range f.items {
		if j.Status == models.JornadaStatusOpen {
			out := *j
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeJornadas) List(ctx context.Context, status *string, page, pageSize int) ([]models.Jornada, int, error) {
	var out []models.Jornada
	for _, j := range f.items {
		if status == nil || j.Status == *status {
			out = append(out, *j)
		}
	}
	return out, len(out), nil
}

func (f *fakeJornadas) Update(ctx context.Context, jornada *models.Jornada) error {
	out := *jornada
	f.items[jornada.ID] = &out
	return nil
}

func (f *fakeJornadas) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	j, ok := f.items[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}
	j.Status = status
	return nil
}

type fakeTropas struct {
	items   map[uuid.UUID]*models.Tropa
	nextSeq int
}

func newFakeTropas() *fakeTropas {
	return &fakeTropas{items: make(map[uuid.UUID]*models.Tropa)}
}

func (f *fakeTropas) Create(ctx context.Context, jornadaID uuid.UUID, req models.CreateTropaRequest) (*models.Tropa, error) {
	f.nextSeq++
	t := &models.Tropa{
		ID:           uuid.New(),
		JornadaID:    jornadaID,
		Seq:          f.nextSeq,
		TropaNumber:  req.TropaNumber,
		TotalAnimals: req.TotalAnimals,
		Species:      req.Species,
		Category:     req.Category,
		IsInternal:   req.IsInternal,
	}
	f.items[t.ID] = t
	out := *t
	return &out, nil
}

func (f *fakeTropas) Get(ctx context.Context, id uuid.UUID) (*models.Tropa, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "tropa not found")
	}
	out := *t
	return &out, nil
}

func (f *fakeTropas) ListByJornada(ctx context.Context, jornadaID uuid.UUID, filter string) ([]models.Tropa, error) {
	var out []models.Tropa
	for _, t := range f.items {
		if t.JornadaID != jornadaID {
			continue
		}
		if filter == models.TropaFilterInternal && !t.IsInternal {
			continue
		}
		if filter == models.TropaFilterExternal && t.IsInternal {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTropas) Update(ctx context.Context, tropa *models.Tropa) error {
	out := *tropa
	f.items[tropa.ID] = &out
	return nil
}

func (f *fakeTropas) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

type fakePools struct {
	byJornada map[uuid.UUID][]models.Pool
}

func newFakePools() *fakePools {
	return &fakePools{byJornada: make(map[uuid.UUID][]models.Pool)}
}

func (f *fakePools) Replace(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool) error {
	f.byJornada[jornadaID] = pools
	return nil
}

func (f *fakePools) ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Pool, error) {
	return f.byJornada[jornadaID], nil
}

func (f *fakePools) Counts(ctx context.Context, jornadaID uuid.UUID) (int, int, error) {
	pending := 0
	pools := f.byJornada[jornadaID]
	for _, p := range pools {
		if p.Result == models.PoolResultPending {
			pending++
		}
	}
	return len(pools), pending, nil
}

type fakeTemperatures struct {
	items []models.Temperature
}

func (f *fakeTemperatures) Create(ctx context.Context, temp *models.Temperature) error {
	if temp.ID == uuid.Nil {
		temp.ID = uuid.New()
	}
	f.items = append(f.items, *temp)
	return nil
}

func (f *fakeTemperatures) ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Temperature, error) {
	var out []models.Temperature
	for _, t := range f.items {
		if t.JornadaID == jornadaID {
			out = append(out, t)
		}
	}
	return out, nil
}

type recordingEmitter struct {
	emitted []string
}

func (e *recordingEmitter) EmitJornadaStarted(ctx context.Context, j *models.Jornada) error {
	e.emitted = append(e.emitted, string(events.EventTypeJornadaStarted))
	return nil
}

func (e *recordingEmitter) EmitJornadaUpdated(ctx context.Context, j *models.Jornada) error {
	e.emitted = append(e.emitted, string(events.EventTypeJornadaUpdated))
	return nil
}

func (e *recordingEmitter) EmitJornadaCompleted(ctx context.Context, j *models.Jornada) error {
	e.emitted = append(e.emitted, string(events.EventTypeJornadaCompleted))
	return nil
}

func (e *recordingEmitter) EmitTropaChanged(ctx context.Context, eventType events.EventType, t *models.Tropa) error {
	e.emitted = append(e.emitted, string(eventType))
	return nil
}

func (e *recordingEmitter) EmitPoolsGenerated(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool, poolSize int) error {
	e.emitted = append(e.emitted, string(events.EventTypePoolsGenerated))
	return nil
}

func (e *recordingEmitter) EmitTemperatureRecorded(ctx context.Context, temp *models.Temperature) error {
	e.emitted = append(e.emitted, string(events.EventTypeTemperatureRecorded))
	return nil
}

func newTestService() (*Service, *fakeJornadas, *fakeTropas, *fakePools, *recordingEmitter) {
	jornadas := newFakeJornadas()
	tropas := newFakeTropas()
	pools := newFakePools()
	temps := &fakeTemperatures{}
	emitter := &recordingEmitter{}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	svc := NewService(&fakeDB{}, jornadas, tropas, pools, temps, pooling.NewAllocator(), emitter, logger)
	return svc, jornadas, tropas, pools, emitter
}

func startSession(t *testing.T, svc *Service, kind models.JornadaKind) *models.Jornada {
	t.Helper()
	j, err := svc.Start(context.Background(), models.CreateJornadaRequest{
		Date:      "2025-03-10",
		AnalystID: "mgarcia",
		Kind:      kind,
	})
	require.NoError(t, err)
	return j
}

func TestStartOpensSession(t *testing.T) {
	svc, _, _, _, emitter := newTestService()

	j := startSession(t, svc, models.JornadaKindNormal)

	assert.Equal(t, models.JornadaStatusOpen, j.Status)
	assert.Equal(t, models.JornadaKindNormal, j.Kind)
	assert.Contains(t, emitter.emitted, "jornada.started")
}

func TestStartRejectsSecondOpenSession(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.Start(context.Background(), models.CreateJornadaRequest{Date: "2025-03-11", AnalystID: "mgarcia"})
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeConflict, we.Code)
}

func TestEditCompletedSessionIsRejected(t *testing.T) {
	svc, jornadas, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	pools.byJornada[j.ID] = []models.Pool{{Result: models.PoolResultNegative}}
	_, err := svc.Finish(context.Background(), j.ID)
	require.NoError(t, err)
	require.Equal(t, models.JornadaStatusCompleted, jornadas.items[j.ID].Status)

	newDate := "2025-03-12"
	_, err = svc.Edit(context.Background(), j.ID, models.UpdateJornadaRequest{Date: &newDate})
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeImmutable, we.Code)
}

func TestEditAppliesFields(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	newKind := models.JornadaKindSuspect
	newAnalyst := "jperez"
	updated, err := svc.Edit(context.Background(), j.ID, models.UpdateJornadaRequest{
		Kind:      &newKind,
		AnalystID: &newAnalyst,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JornadaKindSuspect, updated.Kind)
	assert.Equal(t, "jperez", updated.AnalystID)
	assert.Equal(t, j.Date, updated.Date)
}

func TestFinishRequiresPools(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.Finish(context.Background(), j.ID)
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeNotReady, we.Code)
}

func TestFinishRequiresAllResults(t *testing.T) {
	svc, _, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	pools.byJornada[j.ID] = []models.Pool{
		{Result: models.PoolResultNegative},
		{Result: models.PoolResultPending},
	}

	_, err := svc.Finish(context.Background(), j.ID)
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeNotReady, we.Code)
}

func TestFinishCompletesSession(t *testing.T) {
	svc, _, _, pools, emitter := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	pools.byJornada[j.ID] = []models.Pool{
		{Result: models.PoolResultNegative},
		{Result: models.PoolResultPositive, LarvaeCount: 2},
	}

	finished, err := svc.Finish(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JornadaStatusCompleted, finished.Status)
	assert.Contains(t, emitter.emitted, "jornada.completed")

	// a completed session cannot be finished again
	_, err = svc.Finish(context.Background(), j.ID)
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeImmutable, we.Code)
}

func TestAddTropaAssignsSequentialPositions(t *testing.T) {
	svc, _, _, _, emitter := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	first, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 12})
	require.NoError(t, err)
	second, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-2", TotalAnimals: 8})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
	assert.Contains(t, emitter.emitted, "tropa.created")
}

func TestTropaChangesGatedOnOpenSession(t *testing.T) {
	svc, _, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)
	tropa, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 20})
	require.NoError(t, err)

	pools.byJornada[j.ID] = []models.Pool{{Result: models.PoolResultNegative}}
	_, err = svc.Finish(context.Background(), j.ID)
	require.NoError(t, err)

	animals := 15
	_, err = svc.UpdateTropa(context.Background(), tropa.ID, models.UpdateTropaRequest{TotalAnimals: &animals})
	require.Error(t, err)
	assert.Equal(t, errors.CodeImmutable, errors.AsWorkflowError(err).Code)

	err = svc.DeleteTropa(context.Background(), tropa.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeImmutable, errors.AsWorkflowError(err).Code)

	_, err = svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-2", TotalAnimals: 5})
	require.Error(t, err)
	assert.Equal(t, errors.CodeImmutable, errors.AsWorkflowError(err).Code)
}

func TestGeneratePoolsAllocatesAndPersists(t *testing.T) {
	svc, _, _, pools, emitter := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 15})
	require.NoError(t, err)
	_, err = svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-2", TotalAnimals: 10})
	require.NoError(t, err)

	generated, err := svc.GeneratePools(context.Background(), j.ID)
	require.NoError(t, err)
	require.Len(t, generated, 2)

	assert.Equal(t, "001", generated[0].PoolNumber)
	assert.Equal(t, 20, generated[0].SampleCount)
	assert.Equal(t, models.PoolResultPending, generated[0].Result)
	assert.Equal(t, "T-1(15), T-2(5)", generated[0].Composition)
	assert.Equal(t, "T-1/T-2", generated[0].CompositionTropas)
	assert.Equal(t, "15/5", generated[0].CompositionCounts)
	assert.Equal(t, j.ID, generated[0].JornadaID)

	persisted := pools.byJornada[j.ID]
	require.Len(t, persisted, 2)
	assert.Contains(t, emitter.emitted, "pools.generated")
}

func TestGeneratePoolsReplacesPreviousAllocation(t *testing.T) {
	svc, _, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 20})
	require.NoError(t, err)
	first, err := svc.GeneratePools(context.Background(), j.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-2", TotalAnimals: 20})
	require.NoError(t, err)
	second, err := svc.GeneratePools(context.Background(), j.ID)
	require.NoError(t, err)
	require.Len(t, second, 2)

	persisted := pools.byJornada[j.ID]
	require.Len(t, persisted, 2)
	assert.NotEqual(t, first[0].ID, persisted[0].ID)
}

func TestGeneratePoolsRejectsInsufficientInput(t *testing.T) {
	svc, _, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 3})
	require.NoError(t, err)

	_, err = svc.GeneratePools(context.Background(), j.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientInput, errors.AsWorkflowError(err).Code)
	assert.Empty(t, pools.byJornada[j.ID])
}

func TestCurrentReturnsOpenSessionDetail(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsWorkflowError(err).Code)

	j := startSession(t, svc, models.JornadaKindSuspect)
	_, err = svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 10})
	require.NoError(t, err)

	detail, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, j.ID, detail.ID)
	assert.Len(t, detail.Tropas, 1)
	assert.Empty(t, detail.Pools)
}

func TestAddTemperatureFlagsDeviation(t *testing.T) {
	svc, _, _, _, emitter := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	inRange, err := svc.AddTemperature(context.Background(), j.ID, models.CreateTemperatureRequest{Time: "09:30", WaterTemp: 45.2, ChamberTemp: 24})
	require.NoError(t, err)
	assert.False(t, inRange.OutOfRange)

	tooCold, err := svc.AddTemperature(context.Background(), j.ID, models.CreateTemperatureRequest{Time: "10:00", WaterTemp: 43.5})
	require.NoError(t, err)
	assert.True(t, tooCold.OutOfRange)

	tooHot, err := svc.AddTemperature(context.Background(), j.ID, models.CreateTemperatureRequest{Time: "10:30", WaterTemp: 46.1})
	require.NoError(t, err)
	assert.True(t, tooHot.OutOfRange)

	assert.Contains(t, emitter.emitted, "temperature.recorded")
}

func TestReportOnlyForCompletedSessions(t *testing.T) {
	svc, _, _, pools, _ := newTestService()
	j := startSession(t, svc, models.JornadaKindNormal)

	_, err := svc.Report(context.Background(), j.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotReady, errors.AsWorkflowError(err).Code)

	_, err = svc.AddTropa(context.Background(), j.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 20})
	require.NoError(t, err)
	generated, err := svc.GeneratePools(context.Background(), j.ID)
	require.NoError(t, err)
	generated[0].Result = models.PoolResultNegative
	pools.byJornada[j.ID] = generated

	_, err = svc.Finish(context.Background(), j.ID)
	require.NoError(t, err)

	r, err := svc.Report(context.Background(), j.ID)
	require.NoError(t, err)
	require.Len(t, r.Analysis, 1)
	require.Len(t, r.Release, 1)
	assert.Equal(t, "T-1", r.Release[0].TropaNumber)
}
