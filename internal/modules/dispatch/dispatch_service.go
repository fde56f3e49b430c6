package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/email"
)

// ErrRoutePlanFailed is returned when the dispatch transaction committed
// but the follow-up route planning failed. The vehicle and orders are
// in transit; the operator can retrigger planning or use the manual
// completion path.
var ErrRoutePlanFailed = errors.New("dispatch committed but route planning failed")

// RoutePlanner computes and persists a route for a vehicle's current stop
// set. Implemented by the routing module.
type RoutePlanner interface {
	PlanVehicleRoute(ctx context.Context, vehicleID int64) (*models.RoutePlan, error)
}

// CompletionScheduler arms the deferred completion for a dispatched batch.
// Implemented by the completion module's scheduler.
type CompletionScheduler interface {
	Arm(vehicleID int64, orderIDs []int64, delay time.Duration)
}

// ServiceInterface defines the business operations for assignment planning
// and dispatch.
type ServiceInterface interface {
	// PlanningBoard resets the operator's session and returns a fresh view
	// of the fleet and the pending orders.
	PlanningBoard(ctx context.Context, operatorID string) (*models.DispatchBoard, error)
	// ToggleAssignment stages or unstages one order on one vehicle.
	ToggleAssignment(ctx context.Context, operatorID string, req models.ToggleAssignmentRequest) (*models.ToggleAssignmentResponse, error)
	// Deploy commits a batch, plans its route and arms its completion timer.
	Deploy(ctx context.Context, operatorID string, req models.DeployRequest) (*models.DeployResponse, error)
}

// Service implements ServiceInterface.
type Service struct {
	repo       RepositoryInterface
	planner    *Planner
	routes     RoutePlanner
	scheduler  CompletionScheduler
	mailer     email.ServiceInterface
	delayScale float64
	minDelay   time.Duration
}

// NewService wires the dispatch service. mailer may be nil when email is
// not configured.
func NewService(repo RepositoryInterface, planner *Planner, routes RoutePlanner,
	scheduler CompletionScheduler, mailer email.ServiceInterface,
	delayScale float64, minDelay time.Duration) *Service {
	return &Service{
		repo:       repo,
		planner:    planner,
		routes:     routes,
		scheduler:  scheduler,
		mailer:     mailer,
		delayScale: delayScale,
		minDelay:   minDelay,
	}
}

// PlanningBoard loads the fleet and pending orders and starts a fresh
// planning session for the operator, discarding any previous one.
func (s *Service) PlanningBoard(ctx context.Context, operatorID string) (*models.DispatchBoard, error) {
	vehicles, err := s.repo.ListVehiclesWithLoad(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.PlanningBoard: %w", err)
	}
	pending, err := s.repo.ListPendingOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.PlanningBoard: %w", err)
	}

	sessionID := s.planner.ResetSession(operatorID, vehicles, pending)
	return &models.DispatchBoard{
		SessionID:     sessionID,
		Vehicles:      vehicles,
		PendingOrders: pending,
		Staged:        s.planner.StagedSets(operatorID),
	}, nil
}

// ToggleAssignment applies one toggle to the operator's session. A missing
// session is rebuilt from the database first, so a toggle after a long idle
// period still lands on current data.
func (s *Service) ToggleAssignment(ctx context.Context, operatorID string, req models.ToggleAssignmentRequest) (*models.ToggleAssignmentResponse, error) {
	res, err := s.planner.Toggle(operatorID, req.VehicleID, req.OrderID)
	if errors.Is(err, models.ErrNoPlanningSession) {
		if _, err := s.PlanningBoard(ctx, operatorID); err != nil {
			return nil, err
		}
		res, err = s.planner.Toggle(operatorID, req.VehicleID, req.OrderID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &models.ToggleAssignmentResponse{
		Staged:        res.Staged,
		Removed:       res.Removed,
		Reason:        res.Reason,
		StagedWeight:  res.StagedWeight,
		CapacityLimit: res.Capacity,
	}, nil
}

// Deploy runs the per-batch chain: commit the dispatch transaction, plan
// the route and persist its ETAs, then arm the completion timer with a
// delay derived from the route's total duration. Each step only runs once
// the previous one is durably applied.
func (s *Service) Deploy(ctx context.Context, operatorID string, req models.DeployRequest) (*models.DeployResponse, error) {
	if len(req.OrderIDs) == 0 {
		return nil, models.ErrEmptyBatch
	}

	if err := s.repo.Deploy(ctx, req.VehicleID, req.OrderIDs); err != nil {
		return nil, err
	}
	// The orders are claimed now; drop them from every planning session.
	s.planner.EvictOrders(req.OrderIDs)

	plan, err := s.routes.PlanVehicleRoute(ctx, req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoutePlanFailed, err)
	}

	s.scheduler.Arm(req.VehicleID, req.OrderIDs, s.completionDelay(plan.TotalETAMinutes))

	if s.mailer != nil {
		go s.notifyDispatched(plan)
	}

	return &models.DeployResponse{Success: true, Route: plan}, nil
}

// completionDelay derives the timer delay from the route's total ETA:
// a configured fraction of the real duration, floored at the configured
// minimum, and always strictly positive.
func (s *Service) completionDelay(totalETAMinutes int) time.Duration {
	d := time.Duration(float64(totalETAMinutes) * s.delayScale * float64(time.Minute))
	if d < s.minDelay {
		d = s.minDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// notifyDispatched emails each customer that their order left the depot.
// Best effort: failures are logged and never affect the dispatch.
func (s *Service) notifyDispatched(plan *models.RoutePlan) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stops, err := s.repo.ListAssignedStops(ctx, plan.VehicleID)
	if err != nil {
		log.Printf("dispatch: load stops for notification: %v", err)
		return
	}
	etas := make(map[int64]int, len(plan.Stops))
	for _, stop := range plan.Stops {
		etas[stop.OrderID] = stop.ETAMinutes
	}
	for _, o := range stops {
		if o.CustomerEmail == "" {
			continue
		}
		subject, text, html := email.OrderDispatchedEmail(o.ID, etas[o.ID])
		if err := s.mailer.SendEmail(ctx, o.CustomerEmail, subject, text, html); err != nil {
			log.Printf("dispatch: send dispatched email for order %d: %v", o.ID, err)
		}
	}
}
