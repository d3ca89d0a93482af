package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	jornadasvc "github.com/labflow/sanidad/internal/services/jornada"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
	"github.com/labflow/sanidad/pkg/utils"
)

// TropaHandler handles tropa API endpoints addressed by tropa ID
type TropaHandler struct {
	service *jornadasvc.Service
	logger  ectologger.Logger
}

// NewTropaHandler creates a new tropa handler
func NewTropaHandler(service *jornadasvc.Service, logger ectologger.Logger) *TropaHandler {
	return &TropaHandler{
		service: service,
		logger:  logger,
	}
}

// Register registers tropa routes
func (h *TropaHandler) Register(g *echo.Group) {
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Update edits a tropa on an open session
func (h *TropaHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TropaHandler.Update")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateTropaRequest](c)
	if err != nil {
		return err
	}

	tropa, err := h.service.UpdateTropa(ctx, id, req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, tropa)
}

// Delete removes a tropa from an open session
func (h *TropaHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TropaHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteTropa(ctx, id); err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted tropa %s", id)
	return NoContentResponse(c)
}
