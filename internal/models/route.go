package models

// RouteStop is one delivery address in a planned route, in visiting order,
// with the cumulative ETA from the depot.
type RouteStop struct {
	OrderID    int64  `json:"order_id"`
	Address    string `json:"address"`
	ETAMinutes int    `json:"eta_minutes"`
}

// RoutePlan is the result of planning one vehicle's current stop set. It is
// not persisted as a whole; its ETAs are written back onto the orders and
// the vehicle.
type RoutePlan struct {
	VehicleID       int64       `json:"vehicle_id"`
	Stops           []RouteStop `json:"stops"`
	TotalETAMinutes int         `json:"total_eta_minutes"`
}
