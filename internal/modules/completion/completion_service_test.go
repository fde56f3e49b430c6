package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-dispatch/internal/models"
)

type fakeCompletionRepo struct {
	completed   []CompletedOrder
	err         error
	batchCalls  [][]int64
	allCalls    []int64
	lastVehicle int64
}

func (f *fakeCompletionRepo) CompleteVehicle(ctx context.Context, vehicleID int64, orderIDs []int64) ([]CompletedOrder, error) {
	f.lastVehicle = vehicleID
	f.batchCalls = append(f.batchCalls, append([]int64{}, orderIDs...))
	return f.completed, f.err
}

func (f *fakeCompletionRepo) CompleteVehicleAll(ctx context.Context, vehicleID int64) ([]CompletedOrder, error) {
	f.lastVehicle = vehicleID
	f.allCalls = append(f.allCalls, vehicleID)
	return f.completed, f.err
}

func TestCompleteVehicleReportsUpdatedCount(t *testing.T) {
	repo := &fakeCompletionRepo{completed: []CompletedOrder{{ID: 101}, {ID: 102}}}
	svc := NewService(repo, nil)

	res, err := svc.CompleteVehicle(context.Background(), 7, []int64{101, 102})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Equal(t, [][]int64{{101, 102}}, repo.batchCalls)
}

func TestCompleteVehicleAllUsesVehicleScopedVariant(t *testing.T) {
	repo := &fakeCompletionRepo{completed: []CompletedOrder{{ID: 101}}}
	svc := NewService(repo, nil)

	res, err := svc.CompleteVehicleAll(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedCount)
	assert.Equal(t, []int64{7}, repo.allCalls)
	assert.Empty(t, repo.batchCalls)
}

func TestCompleteVehicleSecondCallIsNoOp(t *testing.T) {
	// After the first reconciliation wins the vehicle CAS, a repeat returns
	// no completed orders; the service reports success with zero updates.
	repo := &fakeCompletionRepo{completed: nil}
	svc := NewService(repo, nil)

	res, err := svc.CompleteVehicle(context.Background(), 7, []int64{101})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.UpdatedCount)
}

func TestCompleteVehiclePropagatesNotFound(t *testing.T) {
	repo := &fakeCompletionRepo{err: models.ErrNotFound}
	svc := NewService(repo, nil)

	_, err := svc.CompleteVehicleAll(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReconcileOnTimerSwallowsFailures(t *testing.T) {
	// The timer path logs and gives up its single attempt; it must never
	// panic or retry on its own.
	repo := &fakeCompletionRepo{err: errors.New("database unavailable")}
	svc := NewService(repo, nil)

	svc.ReconcileOnTimer(context.Background(), 7, []int64{101})
	assert.Equal(t, [][]int64{{101}}, repo.batchCalls)
}
