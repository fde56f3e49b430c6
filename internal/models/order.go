package models

import (
	"database/sql"
	"time"
)

// OrderStatus enumerates the order lifecycle states the dispatch core
// interacts with. Cancellation and refunds happen outside the core but
// must be tolerated by it.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderInTransit OrderStatus = "IN_TRANSIT"
	OrderComplete  OrderStatus = "COMPLETE"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// IsValid reports whether the status is one of the known order states.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderInTransit, OrderComplete, OrderCancelled, OrderRefunded:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order represents a customer order as seen by the dispatch core. Line
// items are only read for weight and stock reconciliation.
type Order struct {
	ID                int64         `json:"id"`
	Status            OrderStatus   `json:"status"`
	AssignedVehicleID sql.NullInt64 `json:"assigned_vehicle_id,omitempty"`
	ETAMinutes        sql.NullInt32 `json:"eta_minutes,omitempty"`
	TotalWeight       float64       `json:"total_weight"`
	ToAddress         string        `json:"to_address"`
	CustomerEmail     string        `json:"customer_email,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OrderItem is one line of an order: a product and the quantity ordered.
type OrderItem struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// ToggleAssignmentRequest stages or unstages one order on one vehicle in
// the operator's planning session.
type ToggleAssignmentRequest struct {
	VehicleID int64 `json:"vehicle_id" validate:"required,gt=0"`
	OrderID   int64 `json:"order_id" validate:"required,gt=0"`
}

// ToggleAssignmentResponse reports the outcome of a toggle. Rejections are
// not errors: the operator needs to see why the order was not staged.
type ToggleAssignmentResponse struct {
	Staged        bool    `json:"staged"`
	Removed       bool    `json:"removed"`
	Reason        string  `json:"reason,omitempty"` // "already_assigned" or "capacity_exceeded"
	StagedWeight  float64 `json:"staged_weight"`
	CapacityLimit float64 `json:"capacity_limit"`
}

// DeployRequest commits one vehicle's staged batch to in-transit.
type DeployRequest struct {
	VehicleID int64   `json:"vehicle_id" validate:"required,gt=0"`
	OrderIDs  []int64 `json:"order_ids" validate:"required,min=1,dive,gt=0"`
}

// DeployResponse is returned once the dispatch transaction, route plan and
// completion timer have all been set up for the batch.
type DeployResponse struct {
	Success bool       `json:"success"`
	Route   *RoutePlan `json:"route,omitempty"`
}

// OrderETA pairs an order with its computed cumulative ETA.
type OrderETA struct {
	OrderID    int64 `json:"order_id" validate:"required,gt=0"`
	ETAMinutes int   `json:"eta_minutes" validate:"gte=0"`
}

// OrderETABatchRequest is the write-back payload used to persist computed
// per-order ETAs.
type OrderETABatchRequest struct {
	OrderETAs []OrderETA `json:"order_etas" validate:"required,min=1,dive"`
}

// CompletionResult reports the outcome of a reconciliation run.
type CompletionResult struct {
	Success      bool `json:"success"`
	UpdatedCount int  `json:"updated_count"`
}

// DispatchBoard is the planning view an operator works from: the fleet with
// current loads, the pending orders, and this session's staged sets.
type DispatchBoard struct {
	SessionID     string             `json:"session_id"`
	Vehicles      []*VehicleWithLoad `json:"vehicles"`
	PendingOrders []*Order           `json:"pending_orders"`
	Staged        map[int64][]int64  `json:"staged"` // vehicleID -> staged order ids
}
