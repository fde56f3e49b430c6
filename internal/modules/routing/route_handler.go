package routing

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/utils"
)

// Handler exposes the ETA write-back endpoint.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new routing handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// UpdateOrderETAs handles PUT /admin/orders/eta.
func (h *Handler) UpdateOrderETAs(c echo.Context) error {
	var req models.OrderETABatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := utils.GetValidator().Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "validation failed: " + err.Error()})
	}

	if err := h.service.PersistOrderETAs(c.Request().Context(), req.OrderETAs); err != nil {
		c.Logger().Error("Handler.UpdateOrderETAs: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to persist order ETAs"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterAdminRoutes attaches the routing endpoints to the admin group.
func RegisterAdminRoutes(g *echo.Group, h *Handler) {
	g.PUT("/orders/eta", h.UpdateOrderETAs)
}
