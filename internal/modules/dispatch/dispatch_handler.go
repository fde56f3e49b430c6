package dispatch

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/utils"
)

// Handler exposes the planning-board, toggle and deploy endpoints.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new dispatch handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// operatorID extracts the caller identity set by the JWT middleware.
func operatorID(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}

// GetBoard handles GET /admin/dispatch/board. Loading the board starts a
// fresh planning session for the caller.
func (h *Handler) GetBoard(c echo.Context) error {
	board, err := h.service.PlanningBoard(c.Request().Context(), operatorID(c))
	if err != nil {
		c.Logger().Error("Handler.GetBoard: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to load dispatch board"})
	}
	return c.JSON(http.StatusOK, board)
}

// ToggleAssignment handles POST /admin/dispatch/toggle.
func (h *Handler) ToggleAssignment(c echo.Context) error {
	var req models.ToggleAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := utils.GetValidator().Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "validation failed: " + err.Error()})
	}

	res, err := h.service.ToggleAssignment(c.Request().Context(), operatorID(c), req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "vehicle or order not found in planning session"})
		}
		c.Logger().Error("Handler.ToggleAssignment: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to toggle assignment"})
	}
	return c.JSON(http.StatusOK, res)
}

// Deploy handles POST /admin/dispatch/deploy.
func (h *Handler) Deploy(c echo.Context) error {
	var req models.DeployRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := utils.GetValidator().Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "validation failed: " + err.Error()})
	}

	res, err := h.service.Deploy(c.Request().Context(), operatorID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyBatch):
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "vehicle or order not found"})
		case errors.Is(err, models.ErrVehicleNotAvailable):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error()})
		case errors.Is(err, models.ErrOrderAlreadyClaimed):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error()})
		case errors.Is(err, models.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error()})
		case errors.Is(err, ErrRoutePlanFailed):
			c.Logger().Error("Handler.Deploy: ", err)
			return c.JSON(http.StatusBadGateway, models.ErrorResponse{Message: err.Error()})
		default:
			c.Logger().Error("Handler.Deploy: ", err)
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to deploy vehicle"})
		}
	}
	return c.JSON(http.StatusOK, res)
}

// RegisterAdminRoutes attaches the dispatch endpoints to the admin group.
func RegisterAdminRoutes(g *echo.Group, h *Handler) {
	g.GET("/dispatch/board", h.GetBoard)
	g.POST("/dispatch/toggle", h.ToggleAssignment)
	g.POST("/dispatch/deploy", h.Deploy)
}
