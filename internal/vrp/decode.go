package vrp

import (
	"fmt"

	"pdptw/internal/model"
	"pdptw/internal/routing"
)

// Decode walks the vehicle's route from the start index to the end index and reports every
// stop with its earliest feasible arrival time.
func Decode(mgr *routing.IndexManager, m *routing.Model, a *routing.Assignment) ([]model.Stop, error) {
	timeDim, ok := m.Dimension(TimeDimension)
	if !ok {
		return nil, fmt.Errorf("decode: model has no %s dimension", TimeDimension)
	}
	stops := make([]model.Stop, 0, mgr.NumIndices())
	index := mgr.Start(0)
	for {
		stops = append(stops, model.Stop{
			Node:        mgr.IndexToNode(index),
			ArrivalTime: a.Min(timeDim.CumulVar(index)),
		})
		if index == mgr.End(0) {
			return stops, nil
		}
		index = a.Next(index)
		if index < 0 || len(stops) >= mgr.NumIndices() {
			return nil, fmt.Errorf("decode: route does not reach the end depot")
		}
	}
}
