package models

import (
	"time"

	"github.com/google/uuid"
)

// PoolResult is the digestion outcome of a pool
type PoolResult string

const (
	PoolResultPending  PoolResult = "pending"
	PoolResultNegative PoolResult = "ND" // no larvae detected
	PoolResultPositive PoolResult = "P"  // larvae detected
)

// Valid reports whether the result is a recordable outcome
func (r PoolResult) Valid() bool {
	return r == PoolResultNegative || r == PoolResultPositive
}

// Pool is a batch of diaphragm samples digested together. Range columns are
// 1-based positions over the session's global sample order; the composition
// columns are parallel renderings of the contributing tropas.
type Pool struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	JornadaID         uuid.UUID  `db:"jornada_id" json:"jornada_id"`
	PoolNumber        string     `db:"pool_number" json:"pool_number"`
	SampleCount       int        `db:"sample_count" json:"sample_count"`
	Weight            float64    `db:"weight" json:"weight"`
	Result            PoolResult `db:"result" json:"result"`
	LarvaeCount       int        `db:"larvae_count" json:"larvae_count"`
	RangeStart        int        `db:"range_start" json:"range_start"`
	RangeEnd          int        `db:"range_end" json:"range_end"`
	Composition       string     `db:"composition" json:"composition"`
	CompositionTropas string     `db:"composition_tropas" json:"composition_tropas"`
	CompositionCounts string     `db:"composition_counts" json:"composition_counts"`
	Observations      string     `db:"observations" json:"observations"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Pool) TableName() string {
	return "pools"
}

// RecordResultRequest is the request to record a pool's digestion outcome
type RecordResultRequest struct {
	Result       PoolResult `json:"result" validate:"required,oneof=ND P"`
	LarvaeCount  int        `json:"larvae_count" validate:"gte=0"`
	Observations string     `json:"observations"`
}
