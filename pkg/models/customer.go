package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a read-only lookup of the establishments delivering tropas
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TaxID     *string   `db:"tax_id" json:"tax_id,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Customer) TableName() string {
	return "customers"
}
