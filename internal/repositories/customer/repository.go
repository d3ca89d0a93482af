package customer

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

// Repository is a read-only view over the customer lookup table, which is
// owned by the registration service.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new customer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a customer by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "tax_id", "address", "phone", "email", "created_at")
	sb.From("customers")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var customer models.Customer
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &customer, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("customer %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get customer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get customer")
	}

	return &customer, nil
}

// List retrieves all customers ordered by name
func (r *Repository) List(ctx context.Context) ([]models.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "tax_id", "address", "phone", "email", "created_at")
	sb.From("customers")
	sb.OrderBy("name ASC")

	query, args := sb.Build()
	var customers []models.Customer
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &customers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customers")
	}

	return customers, nil
}
