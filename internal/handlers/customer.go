package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labflow/sanidad/pkg/models"
	"github.com/labflow/sanidad/pkg/tracing"
)

// CustomerRepository is the customer lookup the handler depends on
type CustomerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
}

// CustomerHandler handles customer lookup endpoints. Customers are reference
// data maintained elsewhere; this surface is read only.
type CustomerHandler struct {
	repo CustomerRepository
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(repo CustomerRepository) *CustomerHandler {
	return &CustomerHandler{repo: repo}
}

// Register registers customer routes
func (h *CustomerHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
}

// List returns all customers
func (h *CustomerHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CustomerHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	customers, err := h.repo.List(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, customers)
}

// GetByID returns a customer by ID
func (h *CustomerHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CustomerHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	customer, err := h.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, customer)
}
