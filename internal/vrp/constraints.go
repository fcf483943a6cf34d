package vrp

import (
	"fmt"

	"pdptw/internal/routing"
)

// Dimension names registered on every model.
const (
	TimeDimension     = "Time"
	CapacityDimension = "Capacity"
)

// NewIndexManager builds the traversal space of the single vehicle: it leaves the start depot
// and finishes at the end depot.
func NewIndexManager(p *Problem) (*routing.IndexManager, error) {
	return routing.NewIndexManager(p.NumNodes(), 1, []int{p.Start()}, []int{p.End()})
}

// BuildModel declares the routing cost, the time and capacity dimensions and the pairing
// constraints of p. Infeasible problems build fine; the search reports them.
func BuildModel(p *Problem, mgr *routing.IndexManager, opts ...routing.Option) (*routing.Model, error) {
	m := routing.NewModel(mgr, opts...)

	travel := m.RegisterTransitCallback(func(from, to int) int64 {
		return p.TravelTime(mgr.IndexToNode(from), mgr.IndexToNode(to))
	})
	if err := m.SetArcCostEvaluatorOfAllVehicles(travel); err != nil {
		return nil, err
	}
	if err := m.AddDimension(travel, 0, p.MaxRouteDuration(), true, TimeDimension); err != nil {
		return nil, fmt.Errorf("time dimension: %w", err)
	}
	timeDim := m.MustDimension(TimeDimension)
	for node := 0; node < p.NumNodes(); node++ {
		// depot windows are accepted on the wire but never enforced
		if node == p.Start() || node == p.End() {
			continue
		}
		w := p.Window(node)
		timeDim.CumulVar(mgr.NodeToIndex(node)).SetRange(w.Earliest, w.Latest)
	}

	riders := m.RegisterUnaryTransitCallback(func(from int) int64 {
		return p.Demand(mgr.IndexToNode(from))
	})
	capacities := make([]int64, mgr.NumVehicles())
	for v := range capacities {
		capacities[v] = p.Capacity()
	}
	if err := m.AddDimensionWithVehicleCapacity(riders, 0, capacities, true, CapacityDimension); err != nil {
		return nil, fmt.Errorf("capacity dimension: %w", err)
	}

	for _, pr := range p.Pairs() {
		pickup, dropoff := mgr.NodeToIndex(pr.Pickup), mgr.NodeToIndex(pr.Dropoff)
		if err := m.AddPickupAndDelivery(pickup, dropoff); err != nil {
			return nil, fmt.Errorf("pair %d->%d: %w", pr.Pickup, pr.Dropoff, err)
		}
		if err := m.AddConstraint(routing.Equal(m.VehicleVar(pickup), m.VehicleVar(dropoff))); err != nil {
			return nil, err
		}
		if err := m.AddConstraint(routing.LessOrEqual(timeDim.CumulVar(pickup), timeDim.CumulVar(dropoff))); err != nil {
			return nil, err
		}
	}
	return m, nil
}
