// Package completion finishes a dispatched trip: a per-vehicle deferred
// timer triggers the reconciliation transaction that consumes stock, marks
// orders complete and frees the vehicle. A manual, staff-triggered path
// reaches the same end state without the timer.
package completion

import (
	"context"
	"sync"
	"time"
)

// ReconcileFunc is invoked when a vehicle's timer fires.
type ReconcileFunc func(ctx context.Context, vehicleID int64, orderIDs []int64)

type pendingCompletion struct {
	timer    *time.Timer
	orderIDs []int64
}

// Scheduler owns the one-timer-per-vehicle registry. Arming a vehicle that
// already has a timer cancels the old one first; cancellation gives a
// synchronous answer, and the fire path revalidates registry ownership so
// a successful cancel guarantees the reconciliation does not run.
//
// Timers are process-local and do not survive a restart. The manual
// completion endpoint is the compensating control for that.
type Scheduler struct {
	mu        sync.Mutex
	pending   map[int64]*pendingCompletion
	reconcile ReconcileFunc
}

// NewScheduler creates a scheduler that invokes fn on fire.
func NewScheduler(fn ReconcileFunc) *Scheduler {
	return &Scheduler{
		pending:   make(map[int64]*pendingCompletion),
		reconcile: fn,
	}
}

// Arm schedules reconciliation of the batch after delay, replacing any
// timer already armed for the vehicle (last write wins). Delays are clamped
// strictly positive.
func (s *Scheduler) Arm(vehicleID int64, orderIDs []int64, delay time.Duration) {
	if delay <= 0 {
		delay = time.Second
	}
	ids := make([]int64, len(orderIDs))
	copy(ids, orderIDs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[vehicleID]; ok {
		old.timer.Stop()
		delete(s.pending, vehicleID)
	}

	entry := &pendingCompletion{orderIDs: ids}
	entry.timer = time.AfterFunc(delay, func() {
		s.fire(vehicleID, entry)
	})
	s.pending[vehicleID] = entry
}

// Cancel removes the vehicle's timer. It returns true when a pending timer
// was cancelled before firing; once Cancel returns true the reconciliation
// callback will not run for that arming.
func (s *Scheduler) Cancel(vehicleID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[vehicleID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, vehicleID)
	return true
}

// Armed reports whether the vehicle currently has a pending timer.
func (s *Scheduler) Armed(vehicleID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[vehicleID]
	return ok
}

// fire runs on the timer goroutine. The registry check under the lock is
// what closes the race between a late fire and a concurrent Cancel or
// re-Arm: only the entry still registered for the vehicle may proceed.
func (s *Scheduler) fire(vehicleID int64, entry *pendingCompletion) {
	s.mu.Lock()
	current, ok := s.pending[vehicleID]
	if !ok || current != entry {
		s.mu.Unlock()
		return
	}
	delete(s.pending, vehicleID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.reconcile(ctx, vehicleID, entry.orderIDs)
}
