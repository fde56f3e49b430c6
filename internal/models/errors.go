package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrEmptyBatch is returned when a dispatch is attempted with no orders.
	ErrEmptyBatch = errors.New("dispatch batch must contain at least one order")

	// ErrVehicleNotAvailable is returned when a dispatch targets a vehicle
	// that is already in transit.
	ErrVehicleNotAvailable = errors.New("vehicle is not available for dispatch")

	// ErrOrderAlreadyClaimed is returned when any order in a dispatch batch
	// was assigned to a vehicle (or left the PENDING state) since it was
	// staged. The whole batch is rejected.
	ErrOrderAlreadyClaimed = errors.New("one or more orders were claimed by another dispatch")

	// ErrCapacityExceeded is returned when a batch's total weight exceeds the
	// vehicle's weight capacity.
	ErrCapacityExceeded = errors.New("batch weight exceeds vehicle capacity")

	// ErrNoPlanningSession is returned when a toggle arrives for an operator
	// with no active planning session.
	ErrNoPlanningSession = errors.New("no active planning session")

	// ErrInvalidStatus is returned when a status value is not one of the
	// recognized states.
	ErrInvalidStatus = errors.New("invalid status value")
)

// ErrorResponse is the generic JSON error shape returned by handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}
