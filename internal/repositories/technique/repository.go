package technique

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// Repository is a read-only view over the technique lookup table, which is
// owned by the methods catalog.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new technique repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a technique by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "technique.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "description", "variables", "created_at")
	sb.From("techniques")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var technique models.Technique
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &technique, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("technique %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get technique")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get technique")
	}

	return &technique, nil
}

// List retrieves all techniques ordered by name
func (r *Repository) List(ctx context.Context) ([]models.Technique, error) {
	ctx, span := tracing.StartSpan(ctx, "technique.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "description", "variables", "created_at")
	sb.From("techniques")
	sb.OrderBy("name ASC")

	query, args := sb.Build()
	var techniques []models.Technique
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &techniques, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list techniques")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list techniques")
	}

	return techniques, nil
}
