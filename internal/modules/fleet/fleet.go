// Package fleet provides the back-office view of the vehicle fleet and the
// blunt status/ETA mutation tool. Forcing a vehicle back to AVAILABLE
// unassigns its orders without completing them; it aborts a dispatch, it
// does not finish one.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/utils"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares database operations for vehicle records.
type RepositoryInterface interface {
	// ListVehiclesWithLoad returns the fleet with current loads.
	ListVehiclesWithLoad(ctx context.Context) ([]*models.VehicleWithLoad, error)
	// SetStatus updates a vehicle's status and ETA. When the new status is
	// AVAILABLE, all of its orders are unassigned back to PENDING in the
	// same transaction.
	SetStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus, etaMinutes *int) error
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db              *pgxpool.Pool
	defaultCapacity float64
}

// NewRepository creates a new fleet repository.
func NewRepository(db *pgxpool.Pool, defaultCapacity float64) RepositoryInterface {
	return &Repository{db: db, defaultCapacity: defaultCapacity}
}

// ListVehiclesWithLoad retrieves all vehicles with assigned weight and
// order counts.
func (r *Repository) ListVehiclesWithLoad(ctx context.Context) ([]*models.VehicleWithLoad, error) {
	query := `
        SELECT v.id, v.status, COALESCE(v.capacity_weight, $1), v.eta_minutes,
               v.created_at, v.updated_at,
               COALESCE(SUM(o.total_weight), 0) AS assigned_weight,
               COUNT(o.id) AS assigned_orders
        FROM vehicles v
        LEFT JOIN orders o ON o.assigned_vehicle_id = v.id
        GROUP BY v.id
        ORDER BY v.id`

	rows, err := r.db.Query(ctx, query, r.defaultCapacity)
	if err != nil {
		return nil, fmt.Errorf("repository.ListVehiclesWithLoad: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.VehicleWithLoad
	for rows.Next() {
		v := &models.VehicleWithLoad{}
		if err := rows.Scan(&v.ID, &v.Status, &v.CapacityWeight, &v.ETAMinutes,
			&v.CreatedAt, &v.UpdatedAt, &v.AssignedWeight, &v.AssignedOrders); err != nil {
			return nil, fmt.Errorf("repository.ListVehiclesWithLoad scan: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListVehiclesWithLoad rows: %w", err)
	}
	return vehicles, nil
}

// SetStatus mutates the vehicle row and, for the AVAILABLE transition,
// strands its orders back into the unassigned pending pool.
func (r *Repository) SetStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus, etaMinutes *int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("repository.SetStatus begin: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
        UPDATE vehicles
        SET status = $2, eta_minutes = $3, updated_at = now()
        WHERE id = $1`, vehicleID, string(status), etaMinutes)
	if err != nil {
		return fmt.Errorf("repository.SetStatus vehicle: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if status == models.VehicleAvailable {
		if _, err := tx.Exec(ctx, `
            UPDATE orders
            SET status = 'PENDING', assigned_vehicle_id = NULL, eta_minutes = NULL,
                updated_at = now()
            WHERE assigned_vehicle_id = $1`, vehicleID); err != nil {
			return fmt.Errorf("repository.SetStatus unassign orders: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.SetStatus commit: %w", err)
	}
	return nil
}

// ------------------- Service Layer -------------------

// TimerCanceller cancels a vehicle's pending completion timer. Implemented
// by the completion scheduler.
type TimerCanceller interface {
	Cancel(vehicleID int64) bool
}

// ServiceInterface describes the fleet operations.
type ServiceInterface interface {
	ListFleet(ctx context.Context) ([]*models.VehicleWithLoad, error)
	SetVehicleStatus(ctx context.Context, vehicleID int64, req models.VehicleStatusUpdateRequest) error
}

// Service implements ServiceInterface.
type Service struct {
	repo   RepositoryInterface
	timers TimerCanceller
}

// NewService creates a fleet service.
func NewService(repo RepositoryInterface, timers TimerCanceller) ServiceInterface {
	return &Service{repo: repo, timers: timers}
}

// ListFleet returns all vehicles with their current load.
func (s *Service) ListFleet(ctx context.Context) ([]*models.VehicleWithLoad, error) {
	return s.repo.ListVehiclesWithLoad(ctx)
}

// SetVehicleStatus applies a manual status/ETA mutation. An AVAILABLE
// transition also drops any armed completion timer; the trip is being
// aborted, so nothing should fire for it later.
func (s *Service) SetVehicleStatus(ctx context.Context, vehicleID int64, req models.VehicleStatusUpdateRequest) error {
	status := models.VehicleStatus(req.Status)
	if !status.IsValid() {
		return fmt.Errorf("service.SetVehicleStatus %q: %w", req.Status, models.ErrInvalidStatus)
	}

	if err := s.repo.SetStatus(ctx, vehicleID, status, req.ETAMinutes); err != nil {
		return err
	}
	if status == models.VehicleAvailable && s.timers != nil {
		s.timers.Cancel(vehicleID)
	}
	return nil
}

// ------------------- HTTP Handler -------------------

// Handler exposes the fleet endpoints.
type Handler struct {
	svc ServiceInterface
}

// NewHandler constructs a Handler with the provided service.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// GetFleet returns the fleet with status, ETA and load.
func (h *Handler) GetFleet(c echo.Context) error {
	vehicles, err := h.svc.ListFleet(c.Request().Context())
	if err != nil {
		c.Logger().Error("Handler.GetFleet: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to list vehicles"})
	}
	return c.JSON(http.StatusOK, vehicles)
}

// SetVehicleStatus handles PUT /admin/fleet/:vehicleId/status requests.
func (h *Handler) SetVehicleStatus(c echo.Context) error {
	vehicleID, err := strconv.ParseInt(c.Param("vehicleId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid vehicle id"})
	}
	var req models.VehicleStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := utils.GetValidator().Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "validation failed: " + err.Error()})
	}

	if err := h.svc.SetVehicleStatus(c.Request().Context(), vehicleID, req); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "vehicle not found"})
		}
		if errors.Is(err, models.ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid status value"})
		}
		c.Logger().Error("Handler.SetVehicleStatus: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to update vehicle"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterAdminRoutes attaches fleet routes to the given Echo group.
func RegisterAdminRoutes(g *echo.Group, h *Handler) {
	g.GET("/fleet", h.GetFleet)
	g.PUT("/fleet/:vehicleId/status", h.SetVehicleStatus)
}
