package fleet

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-dispatch/internal/models"
)

type fakeFleetRepo struct {
	lastVehicle int64
	lastStatus  models.VehicleStatus
	lastETA     *int
	err         error
}

func (f *fakeFleetRepo) ListVehiclesWithLoad(ctx context.Context) ([]*models.VehicleWithLoad, error) {
	return nil, f.err
}

func (f *fakeFleetRepo) SetStatus(ctx context.Context, vehicleID int64, status models.VehicleStatus, etaMinutes *int) error {
	f.lastVehicle = vehicleID
	f.lastStatus = status
	f.lastETA = etaMinutes
	return f.err
}

type fakeCanceller struct {
	cancelled []int64
}

func (f *fakeCanceller) Cancel(vehicleID int64) bool {
	f.cancelled = append(f.cancelled, vehicleID)
	return true
}

func TestSetVehicleStatusAvailableCancelsTimer(t *testing.T) {
	repo := &fakeFleetRepo{}
	timers := &fakeCanceller{}
	svc := NewService(repo, timers)

	err := svc.SetVehicleStatus(context.Background(), 7, models.VehicleStatusUpdateRequest{Status: "AVAILABLE"})
	require.NoError(t, err)

	assert.Equal(t, int64(7), repo.lastVehicle)
	assert.Equal(t, models.VehicleAvailable, repo.lastStatus)
	// Aborting a dispatch drops the pending completion timer.
	assert.Equal(t, []int64{7}, timers.cancelled)
}

func TestSetVehicleStatusInTransitKeepsTimer(t *testing.T) {
	repo := &fakeFleetRepo{}
	timers := &fakeCanceller{}
	svc := NewService(repo, timers)

	eta := 25
	err := svc.SetVehicleStatus(context.Background(), 7, models.VehicleStatusUpdateRequest{Status: "IN_TRANSIT", ETAMinutes: &eta})
	require.NoError(t, err)

	assert.Equal(t, models.VehicleInTransit, repo.lastStatus)
	require.NotNil(t, repo.lastETA)
	assert.Equal(t, 25, *repo.lastETA)
	assert.Empty(t, timers.cancelled)
}

func TestSetVehicleStatusRejectsUnknownStatus(t *testing.T) {
	repo := &fakeFleetRepo{}
	svc := NewService(repo, &fakeCanceller{})

	err := svc.SetVehicleStatus(context.Background(), 7, models.VehicleStatusUpdateRequest{Status: "PARKED"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
	assert.Zero(t, repo.lastVehicle)
}

type stubFleetService struct {
	err error
}

func (s *stubFleetService) ListFleet(ctx context.Context) ([]*models.VehicleWithLoad, error) {
	return nil, s.err
}

func (s *stubFleetService) SetVehicleStatus(ctx context.Context, vehicleID int64, req models.VehicleStatusUpdateRequest) error {
	return s.err
}

func TestSetVehicleStatusHandlerMapsInvalidStatusToBadRequest(t *testing.T) {
	h := NewHandler(&stubFleetService{err: fmt.Errorf("service.SetVehicleStatus %q: %w", "PARKED", models.ErrInvalidStatus)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/admin/fleet/7/status",
		strings.NewReader(`{"status":"AVAILABLE"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("vehicleId")
	c.SetParamValues("7")

	require.NoError(t, h.SetVehicleStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
