package models

import (
	"time"

	"github.com/google/uuid"
)

// JornadaKind selects the digestion protocol for a session
type JornadaKind string

const (
	JornadaKindNormal  JornadaKind = "normal"     // routine surveillance batch
	JornadaKindSuspect JornadaKind = "sospechosa" // suspect batch, smaller pools
)

// PoolSize returns the maximum number of samples per pool for the kind
func (k JornadaKind) PoolSize() int {
	if k == JornadaKindSuspect {
		return 10
	}
	return 20
}

// Valid reports whether the kind is a known protocol
func (k JornadaKind) Valid() bool {
	return k == JornadaKindNormal || k == JornadaKindSuspect
}

// JornadaStatus constants
const (
	JornadaStatusOpen      = "open"
	JornadaStatusCompleted = "completed"
)

// Jornada is a single testing session. At most one session may be open at a
// time; completed sessions are immutable.
type Jornada struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Date        string      `db:"date" json:"date"` // YYYY-MM-DD
	AnalystID   string      `db:"analyst_id" json:"analyst_id"`
	TechniqueID *uuid.UUID  `db:"technique_id" json:"technique_id,omitempty"`
	Kind        JornadaKind `db:"kind" json:"kind"`
	Status      string      `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Jornada) TableName() string {
	return "jornadas"
}

// IsOpen reports whether the session still accepts changes
func (j *Jornada) IsOpen() bool {
	return j.Status == JornadaStatusOpen
}

// CreateJornadaRequest is the request to start a session
type CreateJornadaRequest struct {
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	AnalystID   string      `json:"analyst_id" validate:"required"`
	TechniqueID *uuid.UUID  `json:"technique_id,omitempty"`
	Kind        JornadaKind `json:"kind" validate:"omitempty,oneof=normal sospechosa"`
}

// UpdateJornadaRequest is the request to edit an open session
type UpdateJornadaRequest struct {
	Date        *string      `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AnalystID   *string      `json:"analyst_id,omitempty"`
	TechniqueID *uuid.UUID   `json:"technique_id,omitempty"`
	Kind        *JornadaKind `json:"kind,omitempty" validate:"omitempty,oneof=normal sospechosa"`
}

// JornadaDetail is a session with its children rolled up, as returned by the
// current-session endpoint
type JornadaDetail struct {
	Jornada
	Tropas       []Tropa       `json:"tropas"`
	Pools        []Pool        `json:"pools"`
	Temperatures []Temperature `json:"temperatures"`
}
