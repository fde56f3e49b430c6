package api

import (
	"net/http"

	"grocery-dispatch/internal/api/middleware"
	"grocery-dispatch/internal/modules/completion"
	"grocery-dispatch/internal/modules/dispatch"
	"grocery-dispatch/internal/modules/fleet"
	"grocery-dispatch/internal/modules/routing"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the dispatch backend.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	dispatchHandler *dispatch.Handler,
	routingHandler *routing.Handler,
	completionHandler *completion.Handler,
	fleetHandler *fleet.Handler,
) {
	// Initialize the JWT authentication middleware
	authMiddleware := middleware.JWTAuth(jwtSecret)
	// Every dispatch operation is a back-office action
	staffRequired := middleware.StaffRequired()

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Grocery dispatch service"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// --- Admin Routes ---
	adminGroup := e.Group("/admin", authMiddleware, staffRequired)
	{
		// Assignment planning and dispatch
		dispatch.RegisterAdminRoutes(adminGroup, dispatchHandler)

		// ETA write-back used by the route planner
		routing.RegisterAdminRoutes(adminGroup, routingHandler)

		// Manual/forced completion
		completion.RegisterAdminRoutes(adminGroup, completionHandler)

		// Fleet listing and the blunt abort-dispatch tool
		fleet.RegisterAdminRoutes(adminGroup, fleetHandler)
	}
}
