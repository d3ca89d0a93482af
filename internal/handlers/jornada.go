package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	jornadasvc "github.com/labflow/sanidad/internal/services/jornada"
	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
	"github.com/labflow/sanidad/pkg/utils"
)

// JornadaHandler handles session API endpoints
type JornadaHandler struct {
	service *jornadasvc.Service
	logger  ectologger.Logger
}

// NewJornadaHandler creates a new session handler
func NewJornadaHandler(service *jornadasvc.Service, logger ectologger.Logger) *JornadaHandler {
	return &JornadaHandler{
		service: service,
		logger:  logger,
	}
}

// ListJornadasResponse is the paginated session list
type ListJornadasResponse struct {
	Items    []models.Jornada `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// Register registers session routes
func (h *JornadaHandler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/current", h.Current)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.POST("/:id/finish", h.Finish)
	g.POST("/:id/tropas", h.AddTropa)
	g.GET("/:id/tropas", h.ListTropas)
	g.POST("/:id/pools", h.GeneratePools)
	g.GET("/:id/pools", h.ListPools)
	g.POST("/:id/temperatures", h.AddTemperature)
	g.GET("/:id/temperatures", h.ListTemperatures)
	g.GET("/:id/report", h.Report)
}

// Create opens a new session
func (h *JornadaHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	req, err := utils.BindRequest[models.CreateJornadaRequest](c)
	if err != nil {
		return err
	}

	jornada, err := h.service.Start(ctx, req)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Started session %s for %s", jornada.ID, jornada.Date)
	return CreatedResponse(c, jornada)
}

// List returns sessions, optionally filtered by status
func (h *JornadaHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var status *string
	if s := c.QueryParam("status"); s != "" {
		if s != models.JornadaStatusOpen && s != models.JornadaStatusCompleted {
			return BadRequest("status must be open or completed")
		}
		status = &s
	}

	page := QueryInt(c, "page", 1)
	pageSize := QueryInt(c, "page_size", 20)

	items, total, err := h.service.List(ctx, status, page, pageSize)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list sessions")
		return err
	}

	return SuccessResponse(c, ListJornadasResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Current returns the open session with its tropas, pools and temperatures
func (h *JornadaHandler) Current(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.Current")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	detail, err := h.service.Current(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, detail)
}

// GetByID returns a session by ID
func (h *JornadaHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	jornada, err := h.service.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, jornada)
}

// Update edits an open session's metadata
func (h *JornadaHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.Update")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.UpdateJornadaRequest](c)
	if err != nil {
		return err
	}

	jornada, err := h.service.Edit(ctx, id, req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, jornada)
}

// Finish completes a session
func (h *JornadaHandler) Finish(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.Finish")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	jornada, err := h.service.Finish(ctx, id)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Completed session %s", id)
	return SuccessResponse(c, jornada)
}

// AddTropa registers a tropa on the session
func (h *JornadaHandler) AddTropa(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.AddTropa")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateTropaRequest](c)
	if err != nil {
		return err
	}

	tropa, err := h.service.AddTropa(ctx, id, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, tropa)
}

// ListTropas returns the session's tropas. The filter query parameter narrows
// the list to internal or external tropas.
func (h *JornadaHandler) ListTropas(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.ListTropas")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	filter := c.QueryParam("filter")
	switch filter {
	case "", models.TropaFilterAll, models.TropaFilterInternal, models.TropaFilterExternal:
	default:
		return BadRequest("filter must be internal or external")
	}

	tropas, err := h.service.ListTropas(ctx, id, filter)
	if err != nil {
		return err
	}

	return SuccessResponse(c, tropas)
}

// GeneratePools allocates the session's tropas into pools
func (h *JornadaHandler) GeneratePools(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.GeneratePools")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	pools, err := h.service.GeneratePools(ctx, id)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Generated %d pools for session %s", len(pools), id)
	return CreatedResponse(c, pools)
}

// ListPools returns the session's pools
func (h *JornadaHandler) ListPools(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.ListPools")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	pools, err := h.service.ListPools(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, pools)
}

// AddTemperature logs a bath reading on the session
func (h *JornadaHandler) AddTemperature(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.AddTemperature")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateTemperatureRequest](c)
	if err != nil {
		return err
	}

	temp, err := h.service.AddTemperature(ctx, id, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, temp)
}

// ListTemperatures returns the session's bath readings
func (h *JornadaHandler) ListTemperatures(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.ListTemperatures")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	temps, err := h.service.ListTemperatures(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, temps)
}

// Report returns the assembled document rows for a completed session
func (h *JornadaHandler) Report(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "JornadaHandler.Report")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.service.Report(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, report)
}
