package models

import (
	"time"

	"github.com/google/uuid"
)

// Tropa is a source group of animals delivered for testing within a session.
// Seq is the position in which the group's samples are consumed by the pool
// allocator; it is assigned on creation and never reused within a session.
type Tropa struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JornadaID    uuid.UUID  `db:"jornada_id" json:"jornada_id"`
	CustomerID   *uuid.UUID `db:"customer_id" json:"customer_id,omitempty"`
	Seq          int        `db:"seq" json:"seq"`
	TropaNumber  string     `db:"tropa_number" json:"tropa_number"`
	TotalAnimals int        `db:"total_animals" json:"total_animals"`
	Species      string     `db:"species" json:"species"`
	Category     string     `db:"category" json:"category"`
	IsInternal   bool       `db:"is_internal" json:"is_internal"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Tropa) TableName() string {
	return "tropas"
}

// CreateTropaRequest is the request to register a tropa on an open session
type CreateTropaRequest struct {
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	TropaNumber  string     `json:"tropa_number" validate:"required"`
	TotalAnimals int        `json:"total_animals" validate:"required,gt=0"`
	Species      string     `json:"species"`
	Category     string     `json:"category"`
	IsInternal   bool       `json:"is_internal"`
}

// UpdateTropaRequest is the request to edit a tropa on an open session
type UpdateTropaRequest struct {
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	TropaNumber  *string    `json:"tropa_number,omitempty"`
	TotalAnimals *int       `json:"total_animals,omitempty" validate:"omitempty,gt=0"`
	Species      *string    `json:"species,omitempty"`
	Category     *string    `json:"category,omitempty"`
	IsInternal   *bool      `json:"is_internal,omitempty"`
}

// TropaFilter constants for list filtering
const (
	TropaFilterAll      = "all"
	TropaFilterInternal = "internal"
	TropaFilterExternal = "external"
)
