package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/maps"
)

type fakeRouteRepo struct {
	stops []Stop

	orderETAs       []models.OrderETA
	vehicleETA      int
	vehicleETASet   bool
	orderETAFails   int // fail this many UpdateOrderETAs calls before succeeding
	orderETAAttempt int
}

func (f *fakeRouteRepo) ListVehicleStops(ctx context.Context, vehicleID int64) ([]Stop, error) {
	return f.stops, nil
}

func (f *fakeRouteRepo) UpdateOrderETAs(ctx context.Context, etas []models.OrderETA) error {
	f.orderETAAttempt++
	if f.orderETAAttempt <= f.orderETAFails {
		return errors.New("transient write failure")
	}
	f.orderETAs = append([]models.OrderETA{}, etas...)
	return nil
}

func (f *fakeRouteRepo) UpdateVehicleETA(ctx context.Context, vehicleID int64, etaMinutes int) error {
	f.vehicleETA = etaMinutes
	f.vehicleETASet = true
	return nil
}

type fakeProvider struct {
	route *maps.Route
	err   error
	calls int
}

func (f *fakeProvider) ComputeRoute(ctx context.Context, origin, destination string, waypoints []string, optimize bool) (*maps.Route, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func threeStops() []Stop {
	return []Stop{
		{OrderID: 101, Address: "A"},
		{OrderID: 102, Address: "B"},
		{OrderID: 103, Address: "C"},
	}
}

func TestPlanVehicleRouteCumulativeETAs(t *testing.T) {
	// Legs of 5, 10 and 15 minutes produce cumulative ETAs 5, 15 and 30,
	// with the 30-minute circuit total written to the vehicle.
	repo := &fakeRouteRepo{stops: threeStops()}
	provider := &fakeProvider{route: &maps.Route{
		Legs:            []maps.Leg{{DurationMs: 300000}, {DurationMs: 600000}, {DurationMs: 900000}},
		WaypointOrder:   []int{0, 1, 2},
		TotalDurationMs: 1800000,
	}}
	svc := NewService(repo, provider, "depot")

	plan, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, plan.Stops, 3)
	assert.Equal(t, []models.RouteStop{
		{OrderID: 101, Address: "A", ETAMinutes: 5},
		{OrderID: 102, Address: "B", ETAMinutes: 15},
		{OrderID: 103, Address: "C", ETAMinutes: 30},
	}, plan.Stops)
	assert.Equal(t, 30, plan.TotalETAMinutes)

	assert.Equal(t, []models.OrderETA{
		{OrderID: 101, ETAMinutes: 5},
		{OrderID: 102, ETAMinutes: 15},
		{OrderID: 103, ETAMinutes: 30},
	}, repo.orderETAs)
	assert.True(t, repo.vehicleETASet)
	assert.Equal(t, 30, repo.vehicleETA)
}

func TestPlanVehicleRouteUsesOptimizedOrder(t *testing.T) {
	repo := &fakeRouteRepo{stops: threeStops()}
	// The optimizer visits C first, then A, then B.
	provider := &fakeProvider{route: &maps.Route{
		Legs:            []maps.Leg{{DurationMs: 60000}, {DurationMs: 120000}, {DurationMs: 180000}},
		WaypointOrder:   []int{2, 0, 1},
		TotalDurationMs: 600000,
	}}
	svc := NewService(repo, provider, "depot")

	plan, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, plan.Stops, 3)
	assert.Equal(t, int64(103), plan.Stops[0].OrderID)
	assert.Equal(t, int64(101), plan.Stops[1].OrderID)
	assert.Equal(t, int64(102), plan.Stops[2].OrderID)
	assert.Equal(t, []int{1, 3, 6}, []int{
		plan.Stops[0].ETAMinutes, plan.Stops[1].ETAMinutes, plan.Stops[2].ETAMinutes,
	})
}

func TestPlanVehicleRouteFallsBackOnBadPermutation(t *testing.T) {
	cases := []struct {
		name string
		perm []int
	}{
		{"index out of range", []int{0, 1, 5}},
		{"duplicate index", []int{0, 0, 1}},
		{"wrong length", []int{0, 1}},
		{"nil permutation", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRouteRepo{stops: threeStops()}
			provider := &fakeProvider{route: &maps.Route{
				Legs:            []maps.Leg{{DurationMs: 60000}, {DurationMs: 60000}, {DurationMs: 60000}},
				WaypointOrder:   tc.perm,
				TotalDurationMs: 180000,
			}}
			svc := NewService(repo, provider, "depot")

			plan, err := svc.PlanVehicleRoute(context.Background(), 7)
			require.NoError(t, err)

			// Input order is the defensive default.
			require.Len(t, plan.Stops, 3)
			assert.Equal(t, int64(101), plan.Stops[0].OrderID)
			assert.Equal(t, int64(102), plan.Stops[1].OrderID)
			assert.Equal(t, int64(103), plan.Stops[2].OrderID)
		})
	}
}

func TestPlanVehicleRouteETAMonotonicity(t *testing.T) {
	repo := &fakeRouteRepo{stops: threeStops()}
	// Legs short enough that rounding could collapse adjacent stops; the
	// cumulative ETA must still never decrease.
	provider := &fakeProvider{route: &maps.Route{
		Legs:            []maps.Leg{{DurationMs: 20000}, {DurationMs: 10000}, {DurationMs: 2400000}},
		WaypointOrder:   []int{0, 1, 2},
		TotalDurationMs: 2430000,
	}}
	svc := NewService(repo, provider, "depot")

	plan, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.NoError(t, err)

	for i := 1; i < len(plan.Stops); i++ {
		assert.GreaterOrEqual(t, plan.Stops[i].ETAMinutes, plan.Stops[i-1].ETAMinutes)
	}
	assert.GreaterOrEqual(t, plan.TotalETAMinutes, plan.Stops[len(plan.Stops)-1].ETAMinutes)
}

func TestPlanVehicleRouteZeroStops(t *testing.T) {
	repo := &fakeRouteRepo{}
	provider := &fakeProvider{}
	svc := NewService(repo, provider, "depot")

	plan, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.NoError(t, err)

	assert.Empty(t, plan.Stops)
	assert.Zero(t, plan.TotalETAMinutes)
	// No provider call and no persistence for an empty stop set.
	assert.Zero(t, provider.calls)
	assert.False(t, repo.vehicleETASet)
	assert.Zero(t, repo.orderETAAttempt)
}

func TestPlanVehicleRoutePropagatesProviderFailure(t *testing.T) {
	repo := &fakeRouteRepo{stops: threeStops()}
	provider := &fakeProvider{err: errors.New("quota exceeded")}
	svc := NewService(repo, provider, "depot")

	_, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.Error(t, err)

	// No ETA is fabricated on failure.
	assert.False(t, repo.vehicleETASet)
	assert.Zero(t, repo.orderETAAttempt)
}

func TestPlanVehicleRouteRetriesTransientPersistFailure(t *testing.T) {
	repo := &fakeRouteRepo{stops: threeStops(), orderETAFails: 2}
	provider := &fakeProvider{route: &maps.Route{
		Legs:            []maps.Leg{{DurationMs: 60000}, {DurationMs: 60000}, {DurationMs: 60000}},
		WaypointOrder:   []int{0, 1, 2},
		TotalDurationMs: 180000,
	}}
	svc := NewService(repo, provider, "depot")

	plan, err := svc.PlanVehicleRoute(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.orderETAAttempt)
	assert.Len(t, repo.orderETAs, len(plan.Stops))
}

func TestPlanVehicleRouteRejectsShortLegList(t *testing.T) {
	repo := &fakeRouteRepo{stops: threeStops()}
	provider := &fakeProvider{route: &maps.Route{
		Legs:            []maps.Leg{{DurationMs: 60000}},
		WaypointOrder:   []int{0, 1, 2},
		TotalDurationMs: 60000,
	}}
	svc := NewService(repo, provider, "depot")

	_, err := svc.PlanVehicleRoute(context.Background(), 7)
	assert.Error(t, err)
}

func TestRoundToMinutes(t *testing.T) {
	assert.Equal(t, 0, roundToMinutes(0))
	assert.Equal(t, 0, roundToMinutes(29999))
	assert.Equal(t, 1, roundToMinutes(30000))
	assert.Equal(t, 5, roundToMinutes(300000))
	assert.Equal(t, 30, roundToMinutes(1800000))
}
