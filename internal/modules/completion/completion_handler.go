package completion

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"grocery-dispatch/internal/models"
)

// Handler exposes the manual/forced completion endpoint.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new completion handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CompleteVehicle handles POST /admin/fleet/:vehicleId/complete. It
// reconciles every order currently assigned to the vehicle, reaching the
// same end state as the timer-fired path.
func (h *Handler) CompleteVehicle(c echo.Context) error {
	vehicleID, err := strconv.ParseInt(c.Param("vehicleId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid vehicle id"})
	}

	res, err := h.service.CompleteVehicleAll(c.Request().Context(), vehicleID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "vehicle not found"})
		}
		c.Logger().Error("Handler.CompleteVehicle: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to complete vehicle"})
	}
	return c.JSON(http.StatusOK, res)
}

// RegisterAdminRoutes attaches the completion endpoint to the admin group.
func RegisterAdminRoutes(g *echo.Group, h *Handler) {
	g.POST("/fleet/:vehicleId/complete", h.CompleteVehicle)
}
