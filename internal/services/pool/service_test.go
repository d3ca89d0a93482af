package pool

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/models"
)

type fakePools struct {
	items map[uuid.UUID]*models.Pool
}

func (f *fakePools) Get(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "pool not found")
	}
	out := *p
	return &out, nil
}

func (f *fakePools) UpdateResult(ctx context.Context, pool *models.Pool) error {
	out := *pool
	f.items[pool.ID] = &out
	return nil
}

type fakeJornadas struct {
	items map[uuid.UUID]*models.Jornada
}

func (f *fakeJornadas) Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	j, ok := f.items[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}
	out := *j
	return &out, nil
}

type noopEmitter struct{}

func (noopEmitter) EmitPoolResultRecorded(ctx context.Context, pool *models.Pool) error { return nil }

func newTestService(sessionStatus string) (*Service, *fakePools, uuid.UUID) {
	jornadaID := uuid.New()
	poolID := uuid.New()

	jornadas := &fakeJornadas{items: map[uuid.UUID]*models.Jornada{
		jornadaID: {ID: jornadaID, Status: sessionStatus, Kind: models.JornadaKindNormal},
	}}
	pools := &fakePools{items: map[uuid.UUID]*models.Pool{
		poolID: {
			ID:          poolID,
			JornadaID:   jornadaID,
			PoolNumber:  "001",
			SampleCount: 20,
			Weight:      100,
			Result:      models.PoolResultPending,
		},
	}}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	return NewService(pools, jornadas, noopEmitter{}, logger), pools, poolID
}

func TestRecordResultPositive(t *testing.T) {
	svc, pools, poolID := newTestService(models.JornadaStatusOpen)

	updated, err := svc.RecordResult(context.Background(), poolID, models.RecordResultRequest{
		Result:       models.PoolResultPositive,
		LarvaeCount:  3,
		Observations: "larvae in sediment",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PoolResultPositive, updated.Result)
	assert.Equal(t, 3, updated.LarvaeCount)
	assert.Equal(t, "larvae in sediment", updated.Observations)
	assert.Equal(t, models.PoolResultPositive, pools.items[poolID].Result)
}

func TestRecordResultPositiveRequiresLarvaeCount(t *testing.T) {
	svc, pools, poolID := newTestService(models.JornadaStatusOpen)

	_, err := svc.RecordResult(context.Background(), poolID, models.RecordResultRequest{
		Result: models.PoolResultPositive,
	})
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeInvalidResult, we.Code)
	assert.Equal(t, models.PoolResultPending, pools.items[poolID].Result)
}

func TestRecordResultNegativeClearsCountAndObservations(t *testing.T) {
	svc, _, poolID := newTestService(models.JornadaStatusOpen)

	_, err := svc.RecordResult(context.Background(), poolID, models.RecordResultRequest{
		Result:       models.PoolResultPositive,
		LarvaeCount:  5,
		Observations: "initial read",
	})
	require.NoError(t, err)

	updated, err := svc.RecordResult(context.Background(), poolID, models.RecordResultRequest{
		Result:       models.PoolResultNegative,
		LarvaeCount:  5,
		Observations: "stale",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PoolResultNegative, updated.Result)
	assert.Zero(t, updated.LarvaeCount)
	assert.Empty(t, updated.Observations)
}

func TestRecordResultRejectsCompletedSession(t *testing.T) {
	svc, _, poolID := newTestService(models.JornadaStatusCompleted)

	_, err := svc.RecordResult(context.Background(), poolID, models.RecordResultRequest{
		Result: models.PoolResultNegative,
	})
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeImmutable, we.Code)
}

func TestRecordResultUnknownPool(t *testing.T) {
	svc, _, _ := newTestService(models.JornadaStatusOpen)

	_, err := svc.RecordResult(context.Background(), uuid.New(), models.RecordResultRequest{
		Result: models.PoolResultNegative,
	})
	require.Error(t, err)
}
