package model

import "time"

// Wire types of the solve API. Field names follow the original rider-routing clients.

// SolveRequest is one single-vehicle pickup-and-delivery problem. Node 0 is the start depot
// and the last row of TimeMatrix the end depot.
type SolveRequest struct {
	TimeMatrix       [][]int64  `json:"time_matrix" validate:"required,min=2"`
	TimeWindows      [][2]int64 `json:"time_windows" validate:"required"`
	Demand           []int64    `json:"no_of_riders_per_request" validate:"required"`
	VehicleCapacity  int64      `json:"vehicle_capacity" validate:"required"`
	PickupsDropoffs  [][2]int   `json:"pickup_and_dropoffs"`
	MaxRouteDuration int64      `json:"max_route_duration" validate:"required"`

	// Tuning. Omitted fields take the tenant defaults, then the service defaults.
	Timeout                 *int64 `json:"timeout,omitempty" validate:"omitempty,gte=0"`
	Method                  string `json:"method,omitempty" validate:"max=64"`
	EnableGuidedLocalSearch *bool  `json:"enable_guided_local_search,omitempty"`
}

// Stop is one visited node and the earliest time the vehicle can be there.
type Stop struct {
	Node        int   `json:"node"`
	ArrivalTime int64 `json:"arrival_time"`
}

// SolveResponse is the answer to a SolveRequest. Route is empty when Success is false.
type SolveResponse struct {
	Success bool   `json:"success"`
	Route   []Stop `json:"route"`
}

// OptimizerConfig holds the tenant defaults applied to requests that omit tuning fields.
type OptimizerConfig struct {
	Method                  string    `json:"method" yaml:"method" validate:"omitempty,oneof=parallel_cheapest_insertion path_cheapest_arc global_cheapest_arch global_cheapest_arc automatic"`
	Timeout                 int64     `json:"timeout" yaml:"timeout" validate:"gte=0"`
	EnableGuidedLocalSearch bool      `json:"enable_guided_local_search" yaml:"enable_guided_local_search"`
	UpdatedAt               time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// SolveEvent is published after every solve attempt that reached the engine.
type SolveEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Success    bool      `json:"success"`
	Stops      int       `json:"stops"`
	Objective  int64     `json:"objective"`
	DurationMs int64     `json:"durationMs"`
	Method     string    `json:"method"`
	At         time.Time `json:"at"`
}
