// Package mesh provides per-LOD cloth topology (triangles, adjacency,
// islands) and the adapter contract through which skinned animation poses
// reach the solver.
package mesh

import "sort"

// Topology is the derived triangle-mesh structure for one LOD. Indices are
// local (zero-based); the owning cloth shifts constraint tuples by its
// solver-assigned particle offset when building constraints.
type Topology struct {
	NumPoints int
	Indices   []int32 // triangle list, 3 indices per triangle

	Edges     [][2]int32 // unique edges, lower index first
	Adjacency [][]int32  // sorted neighbour lists per particle
}

// NewTopology builds the edge list and adjacency structure for a triangle
// mesh. It is recomputed only when topology changes and cached by the caller.
func NewTopology(numPoints int, indices []int32) *Topology {
	t := &Topology{
		NumPoints: numPoints,
		Indices:   indices,
		Adjacency: make([][]int32, numPoints),
	}

	seen := make(map[[2]int32]struct{})
	addEdge := func(a, b int32) {
		if a > b {
			a, b = b, a
		}
		key := [2]int32{a, b}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		t.Edges = append(t.Edges, key)
		t.Adjacency[a] = append(t.Adjacency[a], b)
		t.Adjacency[b] = append(t.Adjacency[b], a)
	}

	for i := 0; i+2 < len(indices); i += 3 {
		addEdge(indices[i], indices[i+1])
		addEdge(indices[i+1], indices[i+2])
		addEdge(indices[i+2], indices[i])
	}

	// Deterministic edge ordering regardless of triangle order
	sort.Slice(t.Edges, func(i, j int) bool {
		if t.Edges[i][0] != t.Edges[j][0] {
			return t.Edges[i][0] < t.Edges[j][0]
		}
		return t.Edges[i][1] < t.Edges[j][1]
	})
	for i := range t.Adjacency {
		sort.Slice(t.Adjacency[i], func(a, b int) bool {
			return t.Adjacency[i][a] < t.Adjacency[i][b]
		})
	}
	return t
}

// NumTriangles returns the triangle count.
func (t *Topology) NumTriangles() int {
	return len(t.Indices) / 3
}

// Triangle returns the three indices of triangle i.
func (t *Topology) Triangle(i int) (int32, int32, int32) {
	return t.Indices[3*i], t.Indices[3*i+1], t.Indices[3*i+2]
}

// BendingElements returns one 4-tuple per interior edge: the two shared edge
// vertices followed by the two wing vertices of the adjacent triangles.
// Boundary edges (single adjacent triangle) produce no element.
func (t *Topology) BendingElements() [][4]int32 {
	wings := t.edgeWings()

	var elems [][4]int32
	for _, e := range t.Edges {
		w := wings[e]
		if len(w) < 2 {
			continue
		}
		// Non-manifold edges contribute consecutive wing pairs
		for i := 0; i+1 < len(w); i += 2 {
			elems = append(elems, [4]int32{e[0], e[1], w[i], w[i+1]})
		}
	}
	return elems
}

// CrossEdges returns one index pair per interior edge connecting the wing
// vertices of the adjacent triangles. These drive the fast edge-angle form
// of the bending constraint.
func (t *Topology) CrossEdges() [][2]int32 {
	var cross [][2]int32
	for _, elem := range t.BendingElements() {
		a, b := elem[2], elem[3]
		if a > b {
			a, b = b, a
		}
		cross = append(cross, [2]int32{a, b})
	}
	return cross
}

// edgeWings maps each edge to the opposite vertices of its adjacent
// triangles, in deterministic triangle order.
func (t *Topology) edgeWings() map[[2]int32][]int32 {
	wings := make(map[[2]int32][]int32)
	add := func(a, b, opposite int32) {
		if a > b {
			a, b = b, a
		}
		key := [2]int32{a, b}
		wings[key] = append(wings[key], opposite)
	}
	for i := 0; i+2 < len(t.Indices); i += 3 {
		i0, i1, i2 := t.Indices[i], t.Indices[i+1], t.Indices[i+2]
		add(i0, i1, i2)
		add(i1, i2, i0)
		add(i2, i0, i1)
	}
	return wings
}
