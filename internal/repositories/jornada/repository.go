package jornada

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/labflow/sanidad/pkg/database"
	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

const uniqueViolation = pq.ErrorCode("23505")

// Repository handles session persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new session repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new open session. The partial unique index on open status
// rejects a second open session; that surfaces as a conflict.
func (r *Repository) Create(ctx context.Context, req models.CreateJornadaRequest) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"analyst_id": req.AnalystID,
		"kind":       req.Kind,
	})

	now := time.Now().UTC()
	jornada := &models.Jornada{
		ID:          uuid.New(),
		Date:        req.Date,
		AnalystID:   req.AnalystID,
		TechniqueID: req.TechniqueID,
		Kind:        req.Kind,
		Status:      models.JornadaStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if jornada.Kind == "" {
		jornada.Kind = models.JornadaKindNormal
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("jornadas")
	sb.Cols("id", "date", "analyst_id", "technique_id", "kind", "status", "created_at", "updated_at")
	sb.Values(jornada.ID, jornada.Date, jornada.AnalystID, jornada.TechniqueID, jornada.Kind, jornada.Status, jornada.CreatedAt, jornada.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, errors.New(errors.CodeConflict, "another session is already open").AddEntity("jornada")
		}
		log.WithError(err).Error("Failed to create session")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	log.WithFields(map[string]any{"id": jornada.ID}).Info("Created session")
	return jornada, nil
}

// Get retrieves a session by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "date", "analyst_id", "technique_id", "kind", "status", "created_at", "updated_at")
	sb.From("jornadas")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var jornada models.Jornada
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &jornada, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get session")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get session")
	}

	return &jornada, nil
}

// GetOpen retrieves the currently open session, or nil when none is open
func (r *Repository) GetOpen(ctx context.Context) (*models.Jornada, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.GetOpen")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "date", "analyst_id", "technique_id", "kind", "status", "created_at", "updated_at")
	sb.From("jornadas")
	sb.Where(sb.Equal("status", models.JornadaStatusOpen))

	query, args := sb.Build()
	var jornada models.Jornada
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &jornada, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get open session")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get open session")
	}

	return &jornada, nil
}

// List retrieves sessions, newest first, optionally filtered by status
func (r *Repository) List(ctx context.Context, status *string, page, pageSize int) ([]models.Jornada, int, error) {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("jornadas")
	if status != nil {
		countSb.Where(countSb.Equal("status", *status))
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count sessions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count sessions")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "date", "analyst_id", "technique_id", "kind", "status", "created_at", "updated_at")
	sb.From("jornadas")
	if status != nil {
		sb.Where(sb.Equal("status", *status))
	}
	sb.OrderBy("date DESC", "created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var jornadas []models.Jornada
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &jornadas, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sessions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}

	return jornadas, totalCount, nil
}

// Update persists editable session fields
func (r *Repository) Update(ctx context.Context, jornada *models.Jornada) error {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.Update")
	defer span.End()

	jornada.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("jornadas")
	sb.Set(
		sb.Assign("date", jornada.Date),
		sb.Assign("analyst_id", jornada.AnalystID),
		sb.Assign("technique_id", jornada.TechniqueID),
		sb.Assign("kind", jornada.Kind),
		sb.Assign("updated_at", jornada.UpdatedAt),
	)
	sb.Where(sb.Equal("id", jornada.ID))

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update session")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update session")
	}

	return nil
}

// SetStatus transitions a session's status
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, span := tracing.StartSpan(ctx, "jornada.Repository.SetStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("jornadas")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set session status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set session status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("session %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": status}).Info("Session status changed")
	return nil
}
