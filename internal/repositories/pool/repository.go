package pool

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

// Repository handles pool persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pool repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace swaps a session's pools for a freshly allocated set. The caller
// wraps this in a transaction so a failed insert never leaves the session
// without pools.
func (r *Repository) Replace(ctx context.Context, jornadaID uuid.UUID, pools []models.Pool) error {
	ctx, span := tracing.StartSpan(ctx, "pool.Repository.Replace")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Replace",
		"jornada_id": jornadaID,
		"pool_count": len(pools),
	})

	db := database.FromContext(ctx, r.db)

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("pools")
	del.Where(del.Equal("jornada_id", jornadaID))

	query, args := del.Build()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to clear pools")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear pools")
	}

	if len(pools) == 0 {
		return nil
	}

	ins := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ins.InsertInto("pools")
	ins.Cols("id", "jornada_id", "pool_number", "sample_count", "weight", "result", "larvae_count", "range_start", "range_end", "composition", "composition_tropas", "composition_counts", "observations", "created_at")
	for _, p := range pools {
		ins.Values(p.ID, p.JornadaID, p.PoolNumber, p.SampleCount, p.Weight, p.Result, p.LarvaeCount, p.RangeStart, p.RangeEnd, p.Composition, p.CompositionTropas, p.CompositionCounts, p.Observations, p.CreatedAt)
	}

	query, args = ins.Build()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert pools")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert pools")
	}

	log.Info("Replaced session pools")
	return nil
}

// Get retrieves a pool by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	ctx, span := tracing.StartSpan(ctx, "pool.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "jornada_id", "pool_number", "sample_count", "weight", "result", "larvae_count", "range_start", "range_end", "composition", "composition_tropas", "composition_counts", "observations", "created_at")
	sb.From("pools")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var pool models.Pool
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &pool, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pool %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pool")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pool")
	}

	return &pool, nil
}

// ListByJornada retrieves a session's pools ordered by pool number
func (r *Repository) ListByJornada(ctx context.Context, jornadaID uuid.UUID) ([]models.Pool, error) {
	ctx, span := tracing.StartSpan(ctx, "pool.Repository.ListByJornada")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "jornada_id", "pool_number", "sample_count", "weight", "result", "larvae_count", "range_start", "range_end", "composition", "composition_tropas", "composition_counts", "observations", "created_at")
	sb.From("pools")
	sb.Where(sb.Equal("jornada_id", jornadaID))
	sb.OrderBy("pool_number ASC")

	query, args := sb.Build()
	var pools []models.Pool
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &pools, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pools")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pools")
	}

	return pools, nil
}

// UpdateResult persists a pool's digestion outcome
func (r *Repository) UpdateResult(ctx context.Context, pool *models.Pool) error {
	ctx, span := tracing.StartSpan(ctx, "pool.Repository.UpdateResult")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("pools")
	sb.Set(
		sb.Assign("result", pool.Result),
		sb.Assign("larvae_count", pool.LarvaeCount),
		sb.Assign("observations", pool.Observations),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", pool.ID))

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update pool result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update pool result")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": pool.ID, "result": pool.Result}).Info("Recorded pool result")
	return nil
}

// Counts returns the total and pending pool counts for a session
func (r *Repository) Counts(ctx context.Context, jornadaID uuid.UUID) (total int, pending int, err error) {
	ctx, span := tracing.StartSpan(ctx, "pool.Repository.Counts")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"COUNT(*) AS total",
		fmt.Sprintf("COUNT(*) FILTER (WHERE result = %s) AS pending", sb.Var(models.PoolResultPending)),
	)
	sb.From("pools")
	sb.Where(sb.Equal("jornada_id", jornadaID))

	query, args := sb.Build()
	var counts struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pools")
		return 0, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count pools")
	}

	return counts.Total, counts.Pending, nil
}
