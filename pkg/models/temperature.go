package models

import (
	"time"

	"github.com/google/uuid"
)

// Temperature is a water bath / chamber reading taken during a session.
// OutOfRange is set when the water temperature falls outside the accepted
// digestion window.
type Temperature struct {
	ID           uuid.UUID `db:"id" json:"id"`
	JornadaID    uuid.UUID `db:"jornada_id" json:"jornada_id"`
	Time         string    `db:"time" json:"time"` // HH:MM
	WaterTemp    float64   `db:"water_temp" json:"water_temp"`
	ChamberTemp  float64   `db:"chamber_temp" json:"chamber_temp"`
	OutOfRange   bool      `db:"out_of_range" json:"out_of_range"`
	Observations string    `db:"observations" json:"observations"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Temperature) TableName() string {
	return "temperatures"
}

// CreateTemperatureRequest is the request to log a reading on an open session
type CreateTemperatureRequest struct {
	Time         string  `json:"time" validate:"required"`
	WaterTemp    float64 `json:"water_temp" validate:"required"`
	ChamberTemp  float64 `json:"chamber_temp"`
	Observations string  `json:"observations"`
}
