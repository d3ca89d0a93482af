package temperature

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// Repository handles temperature log persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new temperature repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a bath reading for a session
func (r *Repository) Create(ctx context.Context, temp *models.Temperature) error {
	ctx, span := tracing.StartSpan(ctx, "temperature.Repository.Create")
	defer span.End()

	if temp.ID == uuid.Nil {
		temp.ID = uuid.New()
	}
	temp.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("temperatures")
	sb.Cols("id", "jornada_id", "time", "water_temp", "chamber_temp", "out_of_range", "observations", "created_at")
	sb.Values(temp.ID, temp.JornadaID, temp.Time, temp.WaterTemp, temp.ChamberTemp, temp.OutOfRange, temp.Observations, temp.CreatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create temperature reading")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create temperature reading")
	}

	return nil
}

// ListByJornada retrieves a session's readings in logging order
func (r *Repository) ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Temperature, error) {
	ctx, span := tracing.StartSpan(ctx, "temperature.Repository.ListByJornada")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "jornada_id", "time", "water_temp", "chamber_temp", "out_of_range", "observations", "created_at")
	sb.From("temperatures")
	sb.Where(sb.Equal("jornada_id", jornadaID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var temps []models.Temperature
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &temps, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list temperature readings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list temperature readings")
	}

	return temps, nil
}
