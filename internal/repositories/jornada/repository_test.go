package jornada_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	jornadarepo "github.com/labflow/sanidad/internal/repositories/jornada"
	poolrepo "github.com/labflow/sanidad/internal/repositories/pool"
	troparepo "github.com/labflow/sanidad/internal/repositories/tropa"
	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "sanidad"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func cleanup(t *testing.T, db database.DB) {
	_, err := db.ExecContext(context.Background(), "DELETE FROM jornadas")
	require.NoError(t, err)
}

func TestJornadaRepository_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	defer db.Close()
	defer cleanup(t, db)
	cleanup(t, db)

	logger := getTestLogger()
	repo := jornadarepo.NewRepository(db, logger)
	ctx := context.Background()

	created, err := repo.Create(ctx, models.CreateJornadaRequest{
		Date:      "2025-03-10",
		AnalystID: "mgarcia",
		Kind:      models.JornadaKindNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JornadaStatusOpen, created.Status)

	// partial unique index rejects a second open session
	_, err = repo.Create(ctx, models.CreateJornadaRequest{
		Date:      "2025-03-11",
		AnalystID: "jperez",
		Kind:      models.JornadaKindNormal,
	})
	require.Error(t, err)
	we := errors.AsWorkflowError(err)
	require.NotNil(t, we)
	assert.Equal(t, errors.CodeConflict, we.Code)

	open, err := repo.GetOpen(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, created.ID, open.ID)

	fetched, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mgarcia", fetched.AnalystID)

	require.NoError(t, repo.SetStatus(ctx, created.ID, models.JornadaStatusCompleted))

	open, err = repo.GetOpen(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)

	// a new session can open once the previous one is completed
	second, err := repo.Create(ctx, models.CreateJornadaRequest{
		Date:      "2025-03-11",
		AnalystID: "jperez",
		Kind:      models.JornadaKindSuspect,
	})
	require.NoError(t, err)

	items, total, err := repo.List(ctx, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	status := models.JornadaStatusOpen
	items, total, err = repo.List(ctx, &status, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, second.ID, items[0].ID)
}

func TestJornadaRepository_TropasAndPools(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	defer db.Close()
	defer cleanup(t, db)
	cleanup(t, db)

	logger := getTestLogger()
	jornadas := jornadarepo.NewRepository(db, logger)
	tropas := troparepo.NewRepository(db, logger)
	pools := poolrepo.NewRepository(db, logger)
	ctx := context.Background()

	jornada, err := jornadas.Create(ctx, models.CreateJornadaRequest{
		Date:      "2025-03-10",
		AnalystID: "mgarcia",
		Kind:      models.JornadaKindNormal,
	})
	require.NoError(t, err)

	first, err := tropas.Create(ctx, jornada.ID, models.CreateTropaRequest{TropaNumber: "T-1", TotalAnimals: 15})
	require.NoError(t, err)
	second, err := tropas.Create(ctx, jornada.ID, models.CreateTropaRequest{TropaNumber: "T-2", TotalAnimals: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)

	// positions are not reused after a delete
	require.NoError(t, tropas.Delete(ctx, second.ID))
	third, err := tropas.Create(ctx, jornada.ID, models.CreateTropaRequest{TropaNumber: "T-3", TotalAnimals: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, third.Seq)

	listed, err := tropas.ListByJornada(ctx, jornada.ID, models.TropaFilterAll)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "T-1", listed[0].TropaNumber)

	now := time.Now().UTC()
	generated := []models.Pool{
		{ID: uuid.New(), JornadaID: jornada.ID, PoolNumber: "001", SampleCount: 20, Weight: 100, Result: models.PoolResultPending, RangeStart: 1, RangeEnd: 20, Composition: "T-1(15), T-3(5)", CompositionTropas: "T-1/T-3", CompositionCounts: "15/5", CreatedAt: now},
		{ID: uuid.New(), JornadaID: jornada.ID, PoolNumber: "002", SampleCount: 5, Weight: 25, Result: models.PoolResultPending, RangeStart: 21, RangeEnd: 25, Composition: "T-3(5)", CompositionTropas: "T-3", CompositionCounts: "5", CreatedAt: now},
	}
	require.NoError(t, pools.Replace(ctx, jornada.ID, generated))

	stored, err := pools.ListByJornada(ctx, jornada.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	total, pending, err := pools.Counts(ctx, jornada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, pending)

	stored[0].Result = models.PoolResultNegative
	require.NoError(t, pools.UpdateResult(ctx, &stored[0]))

	total, pending, err = pools.Counts(ctx, jornada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, pending)

	// regeneration discards the previous allocation and its results
	require.NoError(t, pools.Replace(ctx, jornada.ID, generated[:1]))
	total, pending, err = pools.Counts(ctx, jornada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, pending)
}
