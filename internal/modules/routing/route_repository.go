// Package routing plans multi-stop delivery routes for dispatched vehicles
// and persists the derived per-stop ETAs.
package routing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"grocery-dispatch/internal/models"
)

// Stop is one delivery destination on a vehicle's route, pre-optimization.
type Stop struct {
	OrderID int64
	Address string
}

// RepositoryInterface declares the database operations the route planner
// needs. ETA writes are independent per-row upserts, deliberately not one
// transaction: a missing ETA degrades UX without corrupting state.
type RepositoryInterface interface {
	// ListVehicleStops returns the in-transit stops assigned to a vehicle.
	ListVehicleStops(ctx context.Context, vehicleID int64) ([]Stop, error)
	// UpdateOrderETAs writes the computed cumulative ETA onto each order.
	UpdateOrderETAs(ctx context.Context, etas []models.OrderETA) error
	// UpdateVehicleETA writes the route's total ETA onto the vehicle.
	UpdateVehicleETA(ctx context.Context, vehicleID int64, etaMinutes int) error
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new routing repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListVehicleStops retrieves the delivery addresses of a vehicle's
// in-transit orders.
func (r *Repository) ListVehicleStops(ctx context.Context, vehicleID int64) ([]Stop, error) {
	query := `
        SELECT id, to_address
        FROM orders
        WHERE assigned_vehicle_id = $1 AND status = 'IN_TRANSIT'
        ORDER BY id`

	rows, err := r.db.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListVehicleStops: %w", err)
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.OrderID, &s.Address); err != nil {
			return nil, fmt.Errorf("repository.ListVehicleStops scan: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListVehicleStops rows: %w", err)
	}
	return stops, nil
}

// UpdateOrderETAs writes each order's ETA. Rows that disappeared since
// planning are skipped rather than treated as failures.
func (r *Repository) UpdateOrderETAs(ctx context.Context, etas []models.OrderETA) error {
	for _, eta := range etas {
		_, err := r.db.Exec(ctx, `
            UPDATE orders
            SET eta_minutes = $2, updated_at = now()
            WHERE id = $1`, eta.OrderID, eta.ETAMinutes)
		if err != nil {
			return fmt.Errorf("repository.UpdateOrderETAs order %d: %w", eta.OrderID, err)
		}
	}
	return nil
}

// UpdateVehicleETA writes the total circuit ETA onto the vehicle.
func (r *Repository) UpdateVehicleETA(ctx context.Context, vehicleID int64, etaMinutes int) error {
	cmd, err := r.db.Exec(ctx, `
        UPDATE vehicles
        SET eta_minutes = $2, updated_at = now()
        WHERE id = $1`, vehicleID, etaMinutes)
	if err != nil {
		return fmt.Errorf("repository.UpdateVehicleETA: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
