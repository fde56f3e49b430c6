package routing

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/maps"
)

// persistAttempts bounds the retry of ETA writes after a successful
// provider call. The route itself is never re-requested here.
const persistAttempts = 3

// ServiceInterface defines the route-planning operations.
type ServiceInterface interface {
	// PlanVehicleRoute computes an optimized route over the vehicle's
	// current stops, persists the derived ETAs and returns the plan.
	PlanVehicleRoute(ctx context.Context, vehicleID int64) (*models.RoutePlan, error)
	// PersistOrderETAs writes a batch of per-order ETAs.
	PersistOrderETAs(ctx context.Context, etas []models.OrderETA) error
}

// Service implements ServiceInterface.
type Service struct {
	repo     RepositoryInterface
	provider maps.Provider
	depot    string
}

// NewService creates a routing service. depot is the address every circuit
// starts and ends at.
func NewService(repo RepositoryInterface, provider maps.Provider, depot string) *Service {
	return &Service{repo: repo, provider: provider, depot: depot}
}

// PlanVehicleRoute asks the provider for an optimized depot-to-depot
// circuit over the vehicle's stops and derives one cumulative ETA per stop.
// Provider failures propagate; no ETA is ever fabricated.
func (s *Service) PlanVehicleRoute(ctx context.Context, vehicleID int64) (*models.RoutePlan, error) {
	stops, err := s.repo.ListVehicleStops(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.PlanVehicleRoute: %w", err)
	}
	if len(stops) == 0 {
		return &models.RoutePlan{VehicleID: vehicleID, Stops: []models.RouteStop{}}, nil
	}

	waypoints := make([]string, len(stops))
	for i, stop := range stops {
		waypoints[i] = stop.Address
	}

	route, err := s.provider.ComputeRoute(ctx, s.depot, s.depot, waypoints, true)
	if err != nil {
		return nil, fmt.Errorf("service.PlanVehicleRoute compute: %w", err)
	}
	if len(route.Legs) < len(stops) {
		return nil, fmt.Errorf("service.PlanVehicleRoute: provider returned %d legs for %d stops", len(route.Legs), len(stops))
	}

	// The optimizer's permutation is best effort. Fall back to the input
	// order whenever it is malformed.
	visiting := route.WaypointOrder
	if !validPermutation(visiting, len(stops)) {
		visiting = make([]int, len(stops))
		for i := range visiting {
			visiting[i] = i
		}
	}

	plan := &models.RoutePlan{
		VehicleID:       vehicleID,
		Stops:           make([]models.RouteStop, 0, len(stops)),
		TotalETAMinutes: roundToMinutes(route.TotalDurationMs),
	}

	// Leg i ends at the i-th visited stop; the cumulative sum is
	// non-decreasing since leg durations are non-negative.
	var cumulativeMs int64
	for i, idx := range visiting {
		cumulativeMs += route.Legs[i].DurationMs
		plan.Stops = append(plan.Stops, models.RouteStop{
			OrderID:    stops[idx].OrderID,
			Address:    stops[idx].Address,
			ETAMinutes: roundToMinutes(cumulativeMs),
		})
	}

	etas := make([]models.OrderETA, len(plan.Stops))
	for i, stop := range plan.Stops {
		etas[i] = models.OrderETA{OrderID: stop.OrderID, ETAMinutes: stop.ETAMinutes}
	}
	if err := retryPersist(ctx, func() error {
		return s.repo.UpdateOrderETAs(ctx, etas)
	}); err != nil {
		return nil, fmt.Errorf("service.PlanVehicleRoute persist order etas: %w", err)
	}
	if err := retryPersist(ctx, func() error {
		return s.repo.UpdateVehicleETA(ctx, vehicleID, plan.TotalETAMinutes)
	}); err != nil {
		return nil, fmt.Errorf("service.PlanVehicleRoute persist vehicle eta: %w", err)
	}

	return plan, nil
}

// PersistOrderETAs writes a batch of ETAs on behalf of the write-back
// endpoint.
func (s *Service) PersistOrderETAs(ctx context.Context, etas []models.OrderETA) error {
	return s.repo.UpdateOrderETAs(ctx, etas)
}

// retryPersist runs fn up to persistAttempts times with a short backoff.
func retryPersist(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == persistAttempts {
			break
		}
		log.Printf("routing: persist attempt %d failed, retrying: %v", attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return err
}

// validPermutation reports whether perm is a permutation of [0, n).
func validPermutation(perm []int, n int) bool {
	if len(perm) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range perm {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// roundToMinutes converts milliseconds to whole minutes, rounded to
// nearest.
func roundToMinutes(ms int64) int {
	return int(math.Round(float64(ms) / 60000.0))
}
