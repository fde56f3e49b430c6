package completion

import (
	"context"
	"fmt"
	"log"
	"time"

	"grocery-dispatch/internal/models"
	"grocery-dispatch/pkg/email"
)

// ServiceInterface defines the reconciliation entry points. The scheduler
// uses the fixed-batch variant; the manual endpoint the vehicle-scoped one.
type ServiceInterface interface {
	CompleteVehicle(ctx context.Context, vehicleID int64, orderIDs []int64) (*models.CompletionResult, error)
	CompleteVehicleAll(ctx context.Context, vehicleID int64) (*models.CompletionResult, error)
}

// Service implements ServiceInterface.
type Service struct {
	repo   RepositoryInterface
	mailer email.ServiceInterface
}

// NewService creates a completion service. mailer may be nil.
func NewService(repo RepositoryInterface, mailer email.ServiceInterface) *Service {
	return &Service{repo: repo, mailer: mailer}
}

// CompleteVehicle reconciles a fixed dispatch batch.
func (s *Service) CompleteVehicle(ctx context.Context, vehicleID int64, orderIDs []int64) (*models.CompletionResult, error) {
	completed, err := s.repo.CompleteVehicle(ctx, vehicleID, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("service.CompleteVehicle: %w", err)
	}
	s.notifyDelivered(completed)
	return &models.CompletionResult{Success: true, UpdatedCount: len(completed)}, nil
}

// CompleteVehicleAll reconciles every order currently on the vehicle.
func (s *Service) CompleteVehicleAll(ctx context.Context, vehicleID int64) (*models.CompletionResult, error) {
	completed, err := s.repo.CompleteVehicleAll(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.CompleteVehicleAll: %w", err)
	}
	s.notifyDelivered(completed)
	return &models.CompletionResult{Success: true, UpdatedCount: len(completed)}, nil
}

// ReconcileOnTimer adapts the service to the scheduler's callback. A
// persistence failure here is logged and the single attempt is abandoned;
// the manual completion endpoint is the recovery path.
func (s *Service) ReconcileOnTimer(ctx context.Context, vehicleID int64, orderIDs []int64) {
	res, err := s.CompleteVehicle(ctx, vehicleID, orderIDs)
	if err != nil {
		log.Printf("completion: timer reconciliation for vehicle %d failed: %v", vehicleID, err)
		return
	}
	log.Printf("completion: vehicle %d reconciled on timer, %d orders completed", vehicleID, res.UpdatedCount)
}

// notifyDelivered emails each completed order's customer. Best effort.
func (s *Service) notifyDelivered(completed []CompletedOrder) {
	if s.mailer == nil || len(completed) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, o := range completed {
			if o.CustomerEmail == "" {
				continue
			}
			subject, text, html := email.OrderDeliveredEmail(o.ID)
			if err := s.mailer.SendEmail(ctx, o.CustomerEmail, subject, text, html); err != nil {
				log.Printf("completion: send delivered email for order %d: %v", o.ID, err)
			}
		}
	}()
}
