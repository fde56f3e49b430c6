package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"grocery-dispatch/internal/models"
)

// DB is the subset of pgxpool.Pool the repository depends on.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RepositoryInterface declares the database operations behind assignment
// planning and the dispatch commit.
type RepositoryInterface interface {
	// ListVehiclesWithLoad returns the fleet with each vehicle's currently
	// assigned weight and order count.
	ListVehiclesWithLoad(ctx context.Context) ([]*models.VehicleWithLoad, error)
	// ListPendingOrders returns unassigned PENDING orders, oldest first.
	ListPendingOrders(ctx context.Context) ([]*models.Order, error)
	// ListAssignedStops returns the in-transit orders assigned to a vehicle,
	// with destination address and customer email.
	ListAssignedStops(ctx context.Context, vehicleID int64) ([]*models.Order, error)
	// Deploy atomically flips the vehicle and every order in the batch to
	// IN_TRANSIT. The whole batch commits or nothing does.
	Deploy(ctx context.Context, vehicleID int64, orderIDs []int64) error
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db              DB
	defaultCapacity float64
}

// NewRepository creates a Repository. defaultCapacity is applied to vehicle
// rows that carry no explicit capacity.
func NewRepository(db DB, defaultCapacity float64) RepositoryInterface {
	return &Repository{db: db, defaultCapacity: defaultCapacity}
}

// ListVehiclesWithLoad retrieves all vehicles and their current load.
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

// ListPendingOrders retrieves every unassigned PENDING order.
func (r *Repository) ListPendingOrders(ctx context.Context) ([]*models.Order, error) {
	query := `
        SELECT id, status, assigned_vehicle_id, eta_minutes, total_weight,
               to_address, customer_email, created_at, updated_at
        FROM orders
        WHERE status = 'PENDING' AND assigned_vehicle_id IS NULL
        ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListPendingOrders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(&o.ID, &o.Status, &o.AssignedVehicleID, &o.ETAMinutes,
			&o.TotalWeight, &o.ToAddress, &o.CustomerEmail, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListPendingOrders scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListPendingOrders rows: %w", err)
	}
	return orders, nil
}

// ListAssignedStops retrieves the in-transit orders on a vehicle, in
// assignment order.
func (r *Repository) ListAssignedStops(ctx context.Context, vehicleID int64) ([]*models.Order, error) {
	query := `
        SELECT id, status, assigned_vehicle_id, eta_minutes, total_weight,
               to_address, customer_email, created_at, updated_at
        FROM orders
        WHERE assigned_vehicle_id = $1 AND status = 'IN_TRANSIT'
        ORDER BY id`

	rows, err := r.db.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAssignedStops: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(&o.ID, &o.Status, &o.AssignedVehicleID, &o.ETAMinutes,
			&o.TotalWeight, &o.ToAddress, &o.CustomerEmail, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListAssignedStops scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListAssignedStops rows: %w", err)
	}
	return orders, nil
}

// Deploy commits one vehicle's batch inside a single transaction. Staged
// state is advisory, so everything is re-validated here against the
// persisted rows: the vehicle must still be AVAILABLE, no order may have
// been claimed by a concurrent dispatch, and the batch must fit capacity.
func (r *Repository) Deploy(ctx context.Context, vehicleID int64, orderIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("repository.Deploy begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.VehicleStatus
	var capacity float64
	err = tx.QueryRow(ctx, `
        SELECT status, COALESCE(capacity_weight, $2)
        FROM vehicles
        WHERE id = $1
        FOR UPDATE`, vehicleID, r.defaultCapacity).Scan(&status, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("repository.Deploy vehicle lookup: %w", err)
	}
	if status != models.VehicleAvailable {
		return models.ErrVehicleNotAvailable
	}

	// Optimistic re-check: reject the whole batch if any order was claimed
	// (or left PENDING) since it was staged.
	var claimed int
	err = tx.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM orders
        WHERE id = ANY($1)
          AND (assigned_vehicle_id IS NOT NULL OR status <> 'PENDING')`, orderIDs).Scan(&claimed)
	if err != nil {
		return fmt.Errorf("repository.Deploy claim check: %w", err)
	}
	if claimed > 0 {
		return models.ErrOrderAlreadyClaimed
	}

	var found int
	var batchWeight float64
	err = tx.QueryRow(ctx, `
        SELECT COUNT(*), COALESCE(SUM(total_weight), 0)
        FROM orders
        WHERE id = ANY($1)`, orderIDs).Scan(&found, &batchWeight)
	if err != nil {
		return fmt.Errorf("repository.Deploy weight check: %w", err)
	}
	if found != len(orderIDs) {
		return models.ErrNotFound
	}

	var assignedWeight float64
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(total_weight), 0)
        FROM orders
        WHERE assigned_vehicle_id = $1`, vehicleID).Scan(&assignedWeight)
	if err != nil {
		return fmt.Errorf("repository.Deploy assigned weight: %w", err)
	}
	if WouldExceedCapacity(capacity, assignedWeight, batchWeight) {
		return models.ErrCapacityExceeded
	}

	if _, err := tx.Exec(ctx, `
        UPDATE vehicles
        SET status = 'IN_TRANSIT', updated_at = now()
        WHERE id = $1`, vehicleID); err != nil {
		return fmt.Errorf("repository.Deploy vehicle update: %w", err)
	}

	cmd, err := tx.Exec(ctx, `
        UPDATE orders
        SET status = 'IN_TRANSIT', assigned_vehicle_id = $1, updated_at = now()
        WHERE id = ANY($2)`, vehicleID, orderIDs)
	if err != nil {
		return fmt.Errorf("repository.Deploy order update: %w", err)
	}
	if cmd.RowsAffected() != int64(len(orderIDs)) {
		return models.ErrOrderAlreadyClaimed
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.Deploy commit: %w", err)
	}
	return nil
}
