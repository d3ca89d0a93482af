package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/labflow/sanidad/pkg/database"
)

// Technique is a read-only lookup of the lab's analytical techniques.
// Variables holds technique-owned parameters as free-form JSON.
type Technique struct {
	ID          uuid.UUID                      `db:"id" json:"id"`
	Name        string                         `db:"name" json:"name"`
	Description *string                        `db:"description" json:"description,omitempty"`
	Variables   database.JSONB[map[string]any] `db:"variables" json:"variables,omitempty"`
	CreatedAt   time.Time                      `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Technique) TableName() string {
	return "techniques"
}
