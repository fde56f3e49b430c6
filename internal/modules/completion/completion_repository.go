package completion

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"grocery-dispatch/internal/models"
)

// DB is the subset of pgxpool.Pool the repository depends on.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// CompletedOrder identifies a reconciled order and who to notify.
type CompletedOrder struct {
	ID            int64
	CustomerEmail string
}

// RepositoryInterface declares the reconciliation transaction. Both
// variants converge on the same end state: stock consumed, orders
// COMPLETE, vehicle AVAILABLE.
type RepositoryInterface interface {
	// CompleteVehicle reconciles the given batch. Orders not in orderIDs or
	// no longer assigned to the vehicle are left untouched.
	CompleteVehicle(ctx context.Context, vehicleID int64, orderIDs []int64) ([]CompletedOrder, error)
	// CompleteVehicleAll reconciles every order currently assigned to the
	// vehicle.
	CompleteVehicleAll(ctx context.Context, vehicleID int64) ([]CompletedOrder, error)
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db DB
}

// NewRepository creates a new completion repository.
func NewRepository(db DB) RepositoryInterface {
	return &Repository{db: db}
}

// CompleteVehicle reconciles the listed orders.
func (r *Repository) CompleteVehicle(ctx context.Context, vehicleID int64, orderIDs []int64) ([]CompletedOrder, error) {
	return r.complete(ctx, vehicleID, orderIDs)
}

// CompleteVehicleAll reconciles all of the vehicle's assigned orders.
func (r *Repository) CompleteVehicleAll(ctx context.Context, vehicleID int64) ([]CompletedOrder, error) {
	return r.complete(ctx, vehicleID, nil)
}

// complete runs the reconciliation transaction. The first write is a
// compare-and-swap on the vehicle status: exactly one reconciliation per
// trip can win it, which keeps the non-idempotent inventory decrement from
// ever being applied twice. The losing caller commits a no-op.
func (r *Repository) complete(ctx context.Context, vehicleID int64, orderIDs []int64) ([]CompletedOrder, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("repository.complete begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, vehicleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("repository.complete vehicle lookup: %w", err)
	}
	if !exists {
		return nil, models.ErrNotFound
	}

	cmd, err := tx.Exec(ctx, `
        UPDATE vehicles
        SET status = 'AVAILABLE', eta_minutes = NULL, updated_at = now()
        WHERE id = $1 AND status = 'IN_TRANSIT'`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("repository.complete vehicle cas: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Another reconciliation already won the trip (or the vehicle was
		// never dispatched). Nothing further to apply.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("repository.complete commit noop: %w", err)
		}
		return nil, nil
	}

	// Only orders still referencing this vehicle are reconciled. Orders
	// cancelled or refunded in the interim fall out of the match here and
	// are left untouched.
	query := `
        SELECT id, customer_email
        FROM orders
        WHERE assigned_vehicle_id = $1 AND status = 'IN_TRANSIT'`
	args := []any{vehicleID}
	if orderIDs != nil {
		query += ` AND id = ANY($2)`
		args = append(args, orderIDs)
	}
	query += ` ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.complete target orders: %w", err)
	}
	var completed []CompletedOrder
	var targetIDs []int64
	for rows.Next() {
		var o CompletedOrder
		if err := rows.Scan(&o.ID, &o.CustomerEmail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("repository.complete scan: %w", err)
		}
		completed = append(completed, o)
		targetIDs = append(targetIDs, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.complete rows: %w", err)
	}

	if len(targetIDs) > 0 {
		// Stock consumed on delivery, clamped at zero: a discrepancy must
		// not strand the vehicle.
		if _, err := tx.Exec(ctx, `
            UPDATE products p
            SET quantity_on_hand = GREATEST(p.quantity_on_hand - consumed.qty, 0),
                updated_at = now()
            FROM (
                SELECT product_id, SUM(quantity) AS qty
                FROM order_items
                WHERE order_id = ANY($1)
                GROUP BY product_id
            ) AS consumed
            WHERE p.id = consumed.product_id`, targetIDs); err != nil {
			return nil, fmt.Errorf("repository.complete inventory: %w", err)
		}

		if _, err := tx.Exec(ctx, `
            UPDATE orders
            SET status = 'COMPLETE', assigned_vehicle_id = NULL, eta_minutes = NULL,
                updated_at = now()
            WHERE id = ANY($1)`, targetIDs); err != nil {
			return nil, fmt.Errorf("repository.complete orders: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.complete commit: %w", err)
	}
	return completed, nil
}
