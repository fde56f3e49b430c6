package dispatch

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"grocery-dispatch/internal/models"
)

// Reasons a toggle-on can be rejected. They are surfaced to the operator,
// not treated as errors.
const (
	ReasonAlreadyAssigned  = "already_assigned"
	ReasonCapacityExceeded = "capacity_exceeded"
)

// ToggleResult describes what a toggle did to the session.
type ToggleResult struct {
	Staged       bool
	Removed      bool
	Reason       string
	StagedWeight float64 // total staged+persisted weight on the vehicle after the toggle
	Capacity     float64
}

type sessionVehicle struct {
	capacity   float64
	baseWeight float64 // weight of orders already persistently assigned
	staged     map[int64]struct{}
}

type session struct {
	id           string
	vehicles     map[int64]*sessionVehicle
	orderWeights map[int64]float64
	stagedOn     map[int64]int64 // orderID -> vehicleID it is staged on
}

// Planner holds the per-operator planning sessions. Sessions are advisory
// and process-local: each board load replaces the operator's session
// wholesale, and nothing here touches the database.
type Planner struct {
	mu       sync.RWMutex
	sessions map[string]*session // operatorID -> session
}

// NewPlanner creates an empty planner.
func NewPlanner() *Planner {
	return &Planner{sessions: make(map[string]*session)}
}

// ResetSession discards any previous session for the operator and starts a
// fresh one from the given fleet and pending-order snapshot. It returns the
// new session id.
func (p *Planner) ResetSession(operatorID string, vehicles []*models.VehicleWithLoad, pending []*models.Order) string {
	s := &session{
		id:           uuid.New().String(),
		vehicles:     make(map[int64]*sessionVehicle, len(vehicles)),
		orderWeights: make(map[int64]float64, len(pending)),
		stagedOn:     make(map[int64]int64),
	}
	for _, v := range vehicles {
		s.vehicles[v.ID] = &sessionVehicle{
			capacity:   v.CapacityWeight,
			baseWeight: v.AssignedWeight,
			staged:     make(map[int64]struct{}),
		}
	}
	for _, o := range pending {
		s.orderWeights[o.ID] = o.TotalWeight
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[operatorID] = s
	return s.id
}

// Toggle stages or unstages one order on one vehicle. Unstaging is always
// allowed; staging is rejected when the order is staged on another vehicle
// or when it would breach the vehicle's remaining capacity.
func (p *Planner) Toggle(operatorID string, vehicleID, orderID int64) (ToggleResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[operatorID]
	if !ok {
		return ToggleResult{}, models.ErrNoPlanningSession
	}
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return ToggleResult{}, models.ErrNotFound
	}
	weight, ok := s.orderWeights[orderID]
	if !ok {
		return ToggleResult{}, models.ErrNotFound
	}

	res := ToggleResult{Capacity: v.capacity}

	if _, staged := v.staged[orderID]; staged {
		delete(v.staged, orderID)
		delete(s.stagedOn, orderID)
		res.Removed = true
		res.StagedWeight = s.vehicleLoad(v)
		return res, nil
	}

	if _, elsewhere := s.stagedOn[orderID]; elsewhere {
		res.Reason = ReasonAlreadyAssigned
		res.StagedWeight = s.vehicleLoad(v)
		return res, nil
	}

	if WouldExceedCapacity(v.capacity, s.vehicleLoad(v), weight) {
		res.Reason = ReasonCapacityExceeded
		res.StagedWeight = s.vehicleLoad(v)
		return res, nil
	}

	v.staged[orderID] = struct{}{}
	s.stagedOn[orderID] = vehicleID
	res.Staged = true
	res.StagedWeight = s.vehicleLoad(v)
	return res, nil
}

// StagedOrders returns the order ids currently staged on the vehicle in the
// operator's session, sorted for stable output.
func (p *Planner) StagedOrders(operatorID string, vehicleID int64) []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.sessions[operatorID]
	if !ok {
		return nil
	}
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(v.staged))
	for id := range v.staged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StagedSets returns every vehicle's staged set in the operator's session.
func (p *Planner) StagedSets(operatorID string) map[int64][]int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sets := make(map[int64][]int64)
	s, ok := p.sessions[operatorID]
	if !ok {
		return sets
	}
	for vid, v := range s.vehicles {
		if len(v.staged) == 0 {
			continue
		}
		ids := make([]int64, 0, len(v.staged))
		for id := range v.staged {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		sets[vid] = ids
	}
	return sets
}

// EvictOrders removes the given orders from every session. Called after a
// successful dispatch so stale staged entries do not linger on other
// operators' boards.
func (p *Planner) EvictOrders(orderIDs []int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.sessions {
		for _, id := range orderIDs {
			if vid, ok := s.stagedOn[id]; ok {
				delete(s.vehicles[vid].staged, id)
				delete(s.stagedOn, id)
			}
			delete(s.orderWeights, id)
		}
	}
}

// vehicleLoad sums the persisted and staged weight on a vehicle. Caller
// holds the planner lock.
func (s *session) vehicleLoad(v *sessionVehicle) float64 {
	load := v.baseWeight
	for id := range v.staged {
		load += s.orderWeights[id]
	}
	return load
}
