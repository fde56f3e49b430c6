package completion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileRecorder struct {
	mu    sync.Mutex
	calls []reconcileCall
	done  chan struct{}
}

type reconcileCall struct {
	vehicleID int64
	orderIDs  []int64
}

func newReconcileRecorder() *reconcileRecorder {
	return &reconcileRecorder{done: make(chan struct{}, 16)}
}

func (r *reconcileRecorder) fn(ctx context.Context, vehicleID int64, orderIDs []int64) {
	r.mu.Lock()
	r.calls = append(r.calls, reconcileCall{vehicleID: vehicleID, orderIDs: orderIDs})
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *reconcileRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *reconcileRecorder) waitForFire(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestSchedulerFiresOnce(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	s.Arm(7, []int64{101, 102}, 10*time.Millisecond)
	require.True(t, s.Armed(7))

	rec.waitForFire(t)
	assert.Equal(t, 1, rec.callCount())
	assert.Equal(t, int64(7), rec.calls[0].vehicleID)
	assert.Equal(t, []int64{101, 102}, rec.calls[0].orderIDs)

	// The entry is removed on fire.
	assert.False(t, s.Armed(7))
}

func TestSchedulerCancelPreventsFire(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	s.Arm(7, []int64{101}, 50*time.Millisecond)
	require.True(t, s.Cancel(7))
	assert.False(t, s.Armed(7))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, rec.callCount())

	// A second cancel reports nothing pending.
	assert.False(t, s.Cancel(7))
}

func TestSchedulerRearmReplacesTimer(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	// The first arming would fire quickly; re-arming must supersede it
	// entirely (last write wins, at most one outstanding timer).
	s.Arm(7, []int64{101}, 20*time.Millisecond)
	s.Arm(7, []int64{101, 102}, 60*time.Millisecond)

	rec.waitForFire(t)
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, rec.callCount())
	assert.Equal(t, []int64{101, 102}, rec.calls[0].orderIDs)
}

func TestSchedulerVehiclesAreIndependent(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	s.Arm(1, []int64{101}, 10*time.Millisecond)
	s.Arm(2, []int64{201}, 10*time.Millisecond)

	rec.waitForFire(t)
	rec.waitForFire(t)
	assert.Equal(t, 2, rec.callCount())
}

func TestSchedulerClampsNonPositiveDelay(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	// A non-positive delay must not fire immediately on the caller's
	// goroutine nor panic; it is clamped to a strictly positive wait.
	s.Arm(7, []int64{101}, 0)
	assert.True(t, s.Armed(7))
	require.True(t, s.Cancel(7))
	assert.Zero(t, rec.callCount())
}

func TestSchedulerArmCopiesOrderIDs(t *testing.T) {
	rec := newReconcileRecorder()
	s := NewScheduler(rec.fn)

	ids := []int64{101, 102}
	s.Arm(7, ids, 10*time.Millisecond)
	ids[0] = 999 // caller mutation must not leak into the armed batch

	rec.waitForFire(t)
	assert.Equal(t, []int64{101, 102}, rec.calls[0].orderIDs)
}
