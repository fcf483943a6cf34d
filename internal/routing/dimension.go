package routing

// Dimension is a quantity accumulated along each route, for example elapsed time or load.
// cumul(next) lies in [cumul(i)+transit(i,next), cumul(i)+transit(i,next)+slack] and every
// cumul lies in [0, capacity of the vehicle].
type Dimension struct {
	id                  int
	name                string
	transit             int
	slack               int64
	capacities          []int64
	fixStartCumulToZero bool
	ranges              map[int]cumulRange
}

type cumulRange struct{ min, max int64 }

// Name returns the dimension name.
func (d *Dimension) Name() string { return d.name }

// CumulVar is the cumulative value of the dimension at index.
func (d *Dimension) CumulVar(index int) CumulVar { return CumulVar{dim: d, index: index} }

// rangeAt returns the allowed cumul interval at index for vehicle v.
func (d *Dimension) rangeAt(index, v int) (int64, int64) {
	lo, hi := int64(0), d.capacities[v]
	if r, ok := d.ranges[index]; ok {
		if r.min > lo {
			lo = r.min
		}
		if r.max < hi {
			hi = r.max
		}
	}
	return lo, hi
}

// CumulVar refers to one cumul value. It is an IntExpr and can be restricted with SetRange.
type CumulVar struct {
	dim   *Dimension
	index int
}

// Index returns the traversal index of the variable.
func (c CumulVar) Index() int { return c.index }

// SetRange intersects the allowed values of the variable with [min, max].
func (c CumulVar) SetRange(min, max int64) {
	r, ok := c.dim.ranges[c.index]
	if !ok {
		c.dim.ranges[c.index] = cumulRange{min: min, max: max}
		return
	}
	if min > r.min {
		r.min = min
	}
	if max < r.max {
		r.max = max
	}
	c.dim.ranges[c.index] = r
}

func (c CumulVar) valueIn(e *evaluation) (int64, bool) {
	if e.vehicle[c.index] < 0 {
		return 0, false
	}
	return e.lo[c.dim.id][c.index], true
}

// VehicleVar is the vehicle serving an index, -1 when the index is not routed.
type VehicleVar struct{ index int }

// Index returns the traversal index of the variable.
func (v VehicleVar) Index() int { return v.index }

func (v VehicleVar) valueIn(e *evaluation) (int64, bool) {
	veh := e.vehicle[v.index]
	if veh < 0 {
		return 0, false
	}
	return int64(veh), true
}

// IntExpr is an operand of a Constraint.
type IntExpr interface {
	valueIn(e *evaluation) (int64, bool)
}

type constraintKind int

const (
	kindEqual constraintKind = iota
	kindLessOrEqual
)

// Constraint relates two expressions. It holds vacuously while either side is unassigned.
type Constraint struct {
	kind        constraintKind
	left, right IntExpr
}

// Equal requires a == b.
func Equal(a, b IntExpr) Constraint { return Constraint{kind: kindEqual, left: a, right: b} }

// LessOrEqual requires a <= b.
func LessOrEqual(a, b IntExpr) Constraint { return Constraint{kind: kindLessOrEqual, left: a, right: b} }

func (c Constraint) satisfied(e *evaluation) bool {
	l, ok := c.left.valueIn(e)
	if !ok {
		return true
	}
	r, ok := c.right.valueIn(e)
	if !ok {
		return true
	}
	switch c.kind {
	case kindEqual:
		return l == r
	default:
		return l <= r
	}
}
