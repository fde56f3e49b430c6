// Package models defines the data structures shared across the dispatch
// backend: vehicles, orders, route plans and the request/response shapes
// bound at the HTTP boundary.
package models

import (
	"database/sql"
	"time"
)

// VehicleStatus enumerates the delivery-vehicle lifecycle states.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "AVAILABLE"
	VehicleInTransit VehicleStatus = "IN_TRANSIT"
)

// IsValid reports whether the status is one of the known vehicle states.
func (s VehicleStatus) IsValid() bool {
	switch s {
	case VehicleAvailable, VehicleInTransit:
		return true
	default:
		return false
	}
}

func (s VehicleStatus) String() string {
	return string(s)
}

// Vehicle represents a delivery vehicle in the fleet.
type Vehicle struct {
	ID             int64         `json:"id"`
	Status         VehicleStatus `json:"status"`
	CapacityWeight float64       `json:"capacity_weight"`
	ETAMinutes     sql.NullInt32 `json:"eta_minutes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// VehicleWithLoad is a fleet-listing view of a vehicle together with the
// aggregate weight and count of the orders currently assigned to it.
type VehicleWithLoad struct {
	Vehicle
	AssignedWeight float64 `json:"assigned_weight"`
	AssignedOrders int     `json:"assigned_orders"`
}

// VehicleStatusUpdateRequest contains fields for the manual vehicle
// status/ETA mutation endpoint. Setting the status back to AVAILABLE
// unassigns all of the vehicle's orders (the abort-dispatch escape hatch).
type VehicleStatusUpdateRequest struct {
	Status     string `json:"status" validate:"required,oneof=AVAILABLE IN_TRANSIT"`
	ETAMinutes *int   `json:"eta_minutes,omitempty" validate:"omitempty,gte=0"`
}
