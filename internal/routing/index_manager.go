// Package routing is an in-process vehicle-routing engine. Callers describe a model over a
// traversal index space (arc costs, cumulative dimensions, pickup-and-delivery couplings and
// extra constraints) and ask for an assignment within a time budget.
package routing

import "fmt"

// IndexManager maps domain node numbers to traversal indices. Regular nodes and vehicle starts
// keep one index each; every vehicle end gets its own index appended after them, so a depot
// used as both start and end is visible twice in the index space.
type IndexManager struct {
	numNodes    int
	numVehicles int
	indexToNode []int
	nodeToIndex []int
	starts      []int
	ends        []int
	isEnd       []bool
}

// NewIndexManager builds the index space for numNodes nodes and numVehicles vehicles. starts
// and ends hold one depot node per vehicle.
func NewIndexManager(numNodes, numVehicles int, starts, ends []int) (*IndexManager, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("index manager: numNodes must be > 0, got %d", numNodes)
	}
	if numVehicles <= 0 {
		return nil, fmt.Errorf("index manager: numVehicles must be > 0, got %d", numVehicles)
	}
	if len(starts) != numVehicles || len(ends) != numVehicles {
		return nil, fmt.Errorf("index manager: need %d starts and ends, got %d and %d", numVehicles, len(starts), len(ends))
	}
	for v := 0; v < numVehicles; v++ {
		if starts[v] < 0 || starts[v] >= numNodes {
			return nil, fmt.Errorf("index manager: start node %d out of range", starts[v])
		}
		if ends[v] < 0 || ends[v] >= numNodes {
			return nil, fmt.Errorf("index manager: end node %d out of range", ends[v])
		}
	}

	isStartNode := make([]bool, numNodes)
	isEndNode := make([]bool, numNodes)
	for v := 0; v < numVehicles; v++ {
		isStartNode[starts[v]] = true
		isEndNode[ends[v]] = true
	}

	m := &IndexManager{
		numNodes:    numNodes,
		numVehicles: numVehicles,
		nodeToIndex: make([]int, numNodes),
		starts:      make([]int, numVehicles),
		ends:        make([]int, numVehicles),
	}
	for i := range m.nodeToIndex {
		m.nodeToIndex[i] = -1
	}
	for node := 0; node < numNodes; node++ {
		// end-only depots are materialised per vehicle below
		if isEndNode[node] && !isStartNode[node] {
			continue
		}
		m.nodeToIndex[node] = len(m.indexToNode)
		m.indexToNode = append(m.indexToNode, node)
	}
	claimed := make(map[int]bool, numVehicles)
	for v := 0; v < numVehicles; v++ {
		node := starts[v]
		if !claimed[node] {
			claimed[node] = true
			m.starts[v] = m.nodeToIndex[node]
			continue
		}
		m.starts[v] = len(m.indexToNode)
		m.indexToNode = append(m.indexToNode, node)
	}
	for v := 0; v < numVehicles; v++ {
		node := ends[v]
		m.ends[v] = len(m.indexToNode)
		m.indexToNode = append(m.indexToNode, node)
		if m.nodeToIndex[node] == -1 {
			m.nodeToIndex[node] = m.ends[v]
		}
	}
	m.isEnd = make([]bool, len(m.indexToNode))
	for _, e := range m.ends {
		m.isEnd[e] = true
	}
	return m, nil
}

// NumNodes returns the number of domain nodes.
func (m *IndexManager) NumNodes() int { return m.numNodes }

// NumVehicles returns the number of vehicles.
func (m *IndexManager) NumVehicles() int { return m.numVehicles }

// NumIndices returns the size of the traversal index space, end indices included.
func (m *IndexManager) NumIndices() int { return len(m.indexToNode) }

// NodeToIndex returns the traversal index of node, or -1 for an unknown node. For a depot
// shared by several vehicles it returns the first vehicle's index.
func (m *IndexManager) NodeToIndex(node int) int {
	if node < 0 || node >= m.numNodes {
		return -1
	}
	return m.nodeToIndex[node]
}

// IndexToNode returns the domain node behind a traversal index, or -1 when out of range.
func (m *IndexManager) IndexToNode(index int) int {
	if index < 0 || index >= len(m.indexToNode) {
		return -1
	}
	return m.indexToNode[index]
}

// Start returns the start index of vehicle v.
func (m *IndexManager) Start(v int) int { return m.starts[v] }

// End returns the end index of vehicle v.
func (m *IndexManager) End(v int) int { return m.ends[v] }

// IsStart reports whether index is the start index of some vehicle.
func (m *IndexManager) IsStart(index int) bool {
	for _, s := range m.starts {
		if s == index {
			return true
		}
	}
	return false
}

// IsEnd reports whether index is the end index of some vehicle.
func (m *IndexManager) IsEnd(index int) bool {
	return index >= 0 && index < len(m.isEnd) && m.isEnd[index]
}
