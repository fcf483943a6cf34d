package routing

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrNoSolution is returned when the search ends without a feasible assignment.
	ErrNoSolution = errors.New("routing: no solution found")
	// ErrModelSolved is returned when a model is modified or solved a second time.
	ErrModelSolved = errors.New("routing: model already solved")
)

// TransitCallback returns the quantity accumulated when travelling from one index to another.
type TransitCallback func(fromIndex, toIndex int) int64

// UnaryTransitCallback returns the quantity accumulated when leaving an index.
type UnaryTransitCallback func(fromIndex int) int64

// PickupDelivery couples two indices that must be served by one vehicle, pickup first.
type PickupDelivery struct {
	Pickup   int
	Delivery int
}

// Model holds everything the search needs: the index space, the cost evaluator, the
// dimensions and the coupling constraints. A model is solved at most once.
type Model struct {
	manager     *IndexManager
	transits    []TransitCallback
	arcCost     int
	dims        []*Dimension
	dimByName   map[string]*Dimension
	pairs       []PickupDelivery
	pairOf      map[int]int // index -> position in pairs
	constraints []Constraint
	log         *zap.Logger
	solved      bool
}

// Option customises a Model.
type Option func(*Model)

// WithLogger sets the logger used when SearchParameters.LogSearch is enabled.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// NewModel creates an empty model over the manager's index space.
func NewModel(manager *IndexManager, opts ...Option) *Model {
	m := &Model{
		manager:   manager,
		arcCost:   -1,
		dimByName: map[string]*Dimension{},
		pairOf:    map[int]int{},
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Manager returns the index manager the model was built on.
func (m *Model) Manager() *IndexManager { return m.manager }

// RegisterTransitCallback stores cb and returns its id.
func (m *Model) RegisterTransitCallback(cb TransitCallback) int {
	m.transits = append(m.transits, cb)
	return len(m.transits) - 1
}

// RegisterUnaryTransitCallback stores cb, evaluated on the departure index, and returns its id.
func (m *Model) RegisterUnaryTransitCallback(cb UnaryTransitCallback) int {
	return m.RegisterTransitCallback(func(from, _ int) int64 { return cb(from) })
}

// SetArcCostEvaluatorOfAllVehicles makes the registered transit the routing cost of every arc.
func (m *Model) SetArcCostEvaluatorOfAllVehicles(callbackID int) error {
	if err := m.checkCallback(callbackID); err != nil {
		return err
	}
	m.arcCost = callbackID
	return nil
}

// AddDimension declares a cumulative quantity with the same capacity for every vehicle.
func (m *Model) AddDimension(callbackID int, slack, capacity int64, fixStartCumulToZero bool, name string) error {
	caps := make([]int64, m.manager.NumVehicles())
	for i := range caps {
		caps[i] = capacity
	}
	return m.AddDimensionWithVehicleCapacity(callbackID, slack, caps, fixStartCumulToZero, name)
}

// AddDimensionWithVehicleCapacity declares a cumulative quantity with one capacity per vehicle.
func (m *Model) AddDimensionWithVehicleCapacity(callbackID int, slack int64, capacities []int64, fixStartCumulToZero bool, name string) error {
	if m.solved {
		return ErrModelSolved
	}
	if err := m.checkCallback(callbackID); err != nil {
		return err
	}
	if _, dup := m.dimByName[name]; dup {
		return fmt.Errorf("routing: dimension %q already exists", name)
	}
	if slack < 0 {
		return fmt.Errorf("routing: dimension %q: negative slack", name)
	}
	if len(capacities) != m.manager.NumVehicles() {
		return fmt.Errorf("routing: dimension %q: need %d capacities, got %d", name, m.manager.NumVehicles(), len(capacities))
	}
	for _, c := range capacities {
		if c < 0 {
			return fmt.Errorf("routing: dimension %q: negative capacity", name)
		}
	}
	d := &Dimension{
		id:                  len(m.dims),
		name:                name,
		transit:             callbackID,
		slack:               slack,
		capacities:          append([]int64(nil), capacities...),
		fixStartCumulToZero: fixStartCumulToZero,
		ranges:              map[int]cumulRange{},
	}
	m.dims = append(m.dims, d)
	m.dimByName[name] = d
	return nil
}

// Dimension looks up a dimension by name.
func (m *Model) Dimension(name string) (*Dimension, bool) {
	d, ok := m.dimByName[name]
	return d, ok
}

// MustDimension looks up a dimension by name and panics if it was never declared.
func (m *Model) MustDimension(name string) *Dimension {
	d, ok := m.dimByName[name]
	if !ok {
		panic(fmt.Sprintf("routing: unknown dimension %q", name))
	}
	return d
}

// AddPickupAndDelivery couples pickup and delivery: both are visited by the same vehicle and
// the pickup comes first on the route.
func (m *Model) AddPickupAndDelivery(pickup, delivery int) error {
	if m.solved {
		return ErrModelSolved
	}
	for _, idx := range []int{pickup, delivery} {
		if !m.isVisit(idx) {
			return fmt.Errorf("routing: index %d cannot be part of a pickup and delivery", idx)
		}
		if _, dup := m.pairOf[idx]; dup {
			return fmt.Errorf("routing: index %d already belongs to a pickup and delivery", idx)
		}
	}
	if pickup == delivery {
		return fmt.Errorf("routing: pickup and delivery share index %d", pickup)
	}
	m.pairOf[pickup] = len(m.pairs)
	m.pairOf[delivery] = len(m.pairs)
	m.pairs = append(m.pairs, PickupDelivery{Pickup: pickup, Delivery: delivery})
	return nil
}

// PickupAndDeliveryPairs returns the declared couplings.
func (m *Model) PickupAndDeliveryPairs() []PickupDelivery {
	return append([]PickupDelivery(nil), m.pairs...)
}

// AddConstraint adds a constraint checked on every complete assignment.
func (m *Model) AddConstraint(c Constraint) error {
	if m.solved {
		return ErrModelSolved
	}
	if c.left == nil || c.right == nil {
		return errors.New("routing: constraint with missing operand")
	}
	m.constraints = append(m.constraints, c)
	return nil
}

// VehicleVar is the vehicle serving index.
func (m *Model) VehicleVar(index int) VehicleVar { return VehicleVar{index: index} }

// Start returns the start index of vehicle v.
func (m *Model) Start(v int) int { return m.manager.Start(v) }

// End returns the end index of vehicle v.
func (m *Model) End(v int) int { return m.manager.End(v) }

// IsEnd reports whether index is a vehicle end.
func (m *Model) IsEnd(index int) bool { return m.manager.IsEnd(index) }

func (m *Model) checkCallback(id int) error {
	if id < 0 || id >= len(m.transits) {
		return fmt.Errorf("routing: unknown transit callback %d", id)
	}
	return nil
}

// isVisit reports whether index is a regular stop rather than a vehicle start or end.
func (m *Model) isVisit(index int) bool {
	if index < 0 || index >= m.manager.NumIndices() {
		return false
	}
	return !m.manager.IsStart(index) && !m.manager.IsEnd(index)
}

// visits lists every regular stop index; all of them must be routed.
func (m *Model) visits() []int {
	out := make([]int, 0, m.manager.NumIndices())
	for i := 0; i < m.manager.NumIndices(); i++ {
		if m.isVisit(i) {
			out = append(out, i)
		}
	}
	return out
}

func (m *Model) arcCostOf(from, to int) int64 {
	if m.arcCost < 0 {
		return 0
	}
	return m.transits[m.arcCost](from, to)
}
