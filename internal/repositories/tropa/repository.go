package tropa

import (
	"context"
	"fmt"
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

// Repository handles tropa persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new tropa repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a tropa at the next consumption position of its session
func (r *Repository) Create(ctx context.Context, jornadaID uuid.UUID, req models.CreateTropaRequest) (*models.Tropa, error) {
	ctx, span := tracing.StartSpan(ctx, "tropa.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "Create",
		"jornada_id":   jornadaID,
		"tropa_number": req.TropaNumber,
	})

	seq, err := r.nextSeq(ctx, jornadaID)
	if err != nil {
		return nil, err
	}

	tropa := &models.Tropa{
		ID:           uuid.New(),
		JornadaID:    jornadaID,
		CustomerID:   req.CustomerID,
		Seq:          seq,
		TropaNumber:  req.TropaNumber,
		TotalAnimals: req.TotalAnimals,
		Species:      req.Species,
		Category:     req.Category,
		IsInternal:   req.IsInternal,
		CreatedAt:    time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("tropas")
	sb.Cols("id", "jornada_id", "customer_id", "seq", "tropa_number", "total_animals", "species", "category", "is_internal", "created_at")
	sb.Values(tropa.ID, tropa.JornadaID, tropa.CustomerID, tropa.Seq, tropa.TropaNumber, tropa.TotalAnimals, tropa.Species, tropa.Category, tropa.IsInternal, tropa.CreatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create tropa")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tropa")
	}

	log.WithFields(map[string]any{"id": tropa.ID, "seq": seq}).Info("Created tropa")
	return tropa, nil
}

// nextSeq returns the next consumption position within the session. Positions
// are never reused, so deleting a tropa leaves a gap.
func (r *Repository) nextSeq(ctx context.Context, jornadaID uuid.UUID) (int, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COALESCE(MAX(seq), 0) + 1")
	sb.From("tropas")
	sb.Where(sb.Equal("jornada_id", jornadaID))

	query, args := sb.Build()
	var seq int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &seq, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get next tropa position")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get next tropa position")
	}
	return seq, nil
}

// Get retrieves a tropa by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Tropa, error) {
	ctx, span := tracing.StartSpan(ctx, "tropa.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "jornada_id", "customer_id", "seq", "tropa_number", "total_animals", "species", "category", "is_internal", "created_at")
	sb.From("tropas")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var tropa models.Tropa
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &tropa, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("tropa %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get tropa")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get tropa")
	}

	return &tropa, nil
}

// ListByJornada retrieves a session's tropas in consumption order. Filter may
// narrow to internal or external tropas.
func (r *Repository) ListByJornada(ctx context.Context, jornadaID uuid.UUID, filter string) ([]models.Tropa, error) {
	ctx, span := tracing.StartSpan(ctx, "tropa.Repository.ListByJornada")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "jornada_id", "customer_id", "seq", "tropa_number", "total_animals", "species", "category", "is_internal", "created_at")
	sb.From("tropas")
	where := []string{sb.Equal("jornada_id", jornadaID)}
	switch filter {
	case models.TropaFilterInternal:
		where = append(where, sb.Equal("is_internal", true))
	case models.TropaFilterExternal:
		where = append(where, sb.Equal("is_internal", false))
	}
	sb.Where(where...)
	sb.OrderBy("seq ASC")

	query, args := sb.Build()
	var tropas []models.Tropa
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &tropas, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tropas")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tropas")
	}

	return tropas, nil
}

// Update persists editable tropa fields
func (r *Repository) Update(ctx context.Context, tropa *models.Tropa) error {
	ctx, span := tracing.StartSpan(ctx, "tropa.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("tropas")
	sb.Set(
		sb.Assign("customer_id", tropa.CustomerID),
		sb.Assign("tropa_number", tropa.TropaNumber),
		sb.Assign("total_animals", tropa.TotalAnimals),
		sb.Assign("species", tropa.Species),
		sb.Assign("category", tropa.Category),
		sb.Assign("is_internal", tropa.IsInternal),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", tropa.ID))

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update tropa")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update tropa")
	}

	return nil
}

// Delete removes a tropa
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "tropa.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("tropas")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete tropa")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete tropa")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("tropa %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted tropa")
	return nil
}
