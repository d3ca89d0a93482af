package report

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labflow/sanidad/pkg/models"
)

func TestBuildRowsAndOrdering(t *testing.T) {
	jornadaID := uuid.New()
	jornada := models.Jornada{ID: jornadaID, Status: models.JornadaStatusCompleted, Kind: models.JornadaKindNormal}

	tropas := []models.Tropa{
		{Seq: 2, TropaNumber: "B", TotalAnimals: 10, Species: "porcino"},
		{Seq: 1, TropaNumber: "A", TotalAnimals: 25, Species: "porcino"},
	}
	pools := []models.Pool{
		{PoolNumber: "002", SampleCount: 15, Weight: 75, Result: models.PoolResultNegative, RangeStart: 21, RangeEnd: 35, CompositionTropas: "A/B", CompositionCounts: "5/10", Composition: "A(5), B(10)"},
		{PoolNumber: "001", SampleCount: 20, Weight: 100, Result: models.PoolResultNegative, RangeStart: 1, RangeEnd: 20, CompositionTropas: "A", CompositionCounts: "20", Composition: "A(20)"},
	}

	r := Build(jornada, tropas, pools)

	require.Len(t, r.Analysis, 2)
	assert.Equal(t, "001", r.Analysis[0].PoolNumber)
	assert.Equal(t, "002", r.Analysis[1].PoolNumber)
	assert.Equal(t, float64(100), r.Analysis[0].Weight)

	require.Len(t, r.Traceability, 2)
	assert.Equal(t, 1, r.Traceability[0].RangeStart)
	assert.Equal(t, 20, r.Traceability[0].RangeEnd)
	assert.Equal(t, "A/B", r.Traceability[1].Tropas)
	assert.Equal(t, "5/10", r.Traceability[1].Counts)

	// release rows follow consumption order
	require.Len(t, r.Release, 2)
	assert.Equal(t, "A", r.Release[0].TropaNumber)
	assert.Equal(t, []string{"001", "002"}, r.Release[0].Pools)
	assert.Equal(t, DispositionReleased, r.Release[0].Disposition)
	assert.Equal(t, "B", r.Release[1].TropaNumber)
	assert.Equal(t, []string{"002"}, r.Release[1].Pools)
}

func TestBuildPositivePoolRetainsEveryContributor(t *testing.T) {
	jornada := models.Jornada{ID: uuid.New(), Status: models.JornadaStatusCompleted}

	tropas := []models.Tropa{
		{Seq: 1, TropaNumber: "A", TotalAnimals: 20},
		{Seq: 2, TropaNumber: "B", TotalAnimals: 10},
		{Seq: 3, TropaNumber: "C", TotalAnimals: 10},
	}
	pools := []models.Pool{
		{PoolNumber: "001", Result: models.PoolResultNegative, CompositionTropas: "A"},
		{PoolNumber: "002", Result: models.PoolResultPositive, LarvaeCount: 3, CompositionTropas: "B/C"},
	}

	r := Build(jornada, tropas, pools)

	require.Len(t, r.Release, 3)
	assert.Equal(t, DispositionReleased, r.Release[0].Disposition)
	assert.Equal(t, DispositionRetained, r.Release[1].Disposition)
	assert.Equal(t, DispositionRetained, r.Release[2].Disposition)
}

func TestBuildPendingPoolIsNotReleased(t *testing.T) {
	jornada := models.Jornada{ID: uuid.New()}

	tropas := []models.Tropa{{Seq: 1, TropaNumber: "A", TotalAnimals: 20}}
	pools := []models.Pool{{PoolNumber: "001", Result: models.PoolResultPending, CompositionTropas: "A"}}

	r := Build(jornada, tropas, pools)

	require.Len(t, r.Release, 1)
	assert.Equal(t, DispositionRetained, r.Release[0].Disposition)
}

func TestBuildEmptySession(t *testing.T) {
	r := Build(models.Jornada{ID: uuid.New()}, nil, nil)

	assert.Empty(t, r.Analysis)
	assert.Empty(t, r.Traceability)
	assert.Empty(t, r.Release)
}
