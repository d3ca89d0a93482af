package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	poolsvc "github.com/labflow/sanidad/internal/services/pool"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
	"github.com/labflow/sanidad/pkg/utils"
)

// PoolHandler handles pool API endpoints
type PoolHandler struct {
	service *poolsvc.Service
	logger  ectologger.Logger
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(service *poolsvc.Service, logger ectologger.Logger) *PoolHandler {
	return &PoolHandler{
		service: service,
		logger:  logger,
	}
}

// Register registers pool routes
func (h *PoolHandler) Register(g *echo.Group) {
	g.GET("/:id", h.GetByID)
	g.PUT("/:id/result", h.RecordResult)
}

// GetByID returns a pool by ID
func (h *PoolHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PoolHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	pool, err := h.service.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, pool)
}

// RecordResult stores a pool's digestion outcome
func (h *PoolHandler) RecordResult(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PoolHandler.RecordResult")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.RecordResultRequest](c)
	if err != nil {
		return err
	}

	pool, err := h.service.RecordResult(ctx, id, req)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Recorded %s on pool %s", pool.Result, pool.PoolNumber)
	return SuccessResponse(c, pool)
}
