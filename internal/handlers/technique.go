package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// TechniqueRepository is the technique lookup the handler depends on
type TechniqueRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Technique, error)
	List(ctx context.Context) ([]models.Technique, error)
}

// TechniqueHandler handles digestion technique lookup endpoints
type TechniqueHandler struct {
	repo TechniqueRepository
}

// NewTechniqueHandler creates a new technique handler
func NewTechniqueHandler(repo TechniqueRepository) *TechniqueHandler {
	return &TechniqueHandler{repo: repo}
}

// Register registers technique routes
func (h *TechniqueHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
}

// List returns all techniques
func (h *TechniqueHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TechniqueHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	techniques, err := h.repo.List(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, techniques)
}

// GetByID returns a technique by ID
func (h *TechniqueHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TechniqueHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	technique, err := h.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, technique)
}
