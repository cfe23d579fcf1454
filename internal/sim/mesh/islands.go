package mesh

import (
	"container/heap"

	"github.com/drapesim/drape/pkg/math"
)

// IndexNone marks an unreachable particle in island and geodesic results.
const IndexNone = -1

// Islands partitions particles into connected components that contain at
// least one kinematic particle. The result maps each particle to its island
// id, or IndexNone for particles not reachable from any kinematic anchor.
// The partition is recomputed whenever topology changes; debug visualisation
// uses it to colour-code which anchor set drives which region.
func (t *Topology) Islands(kinematic []bool) (ids []int, numIslands int) {
	ids = make([]int, t.NumPoints)
	for i := range ids {
		ids[i] = IndexNone
	}

	var queue []int32
	for seed := 0; seed < t.NumPoints; seed++ {
		if !kinematic[seed] || ids[seed] != IndexNone {
			continue
		}

		// Flood the whole component from this anchor; further anchors
		// found inside it join the same island.
		ids[seed] = numIslands
		queue = append(queue[:0], int32(seed))
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range t.Adjacency[cur] {
				if ids[next] == IndexNone {
					ids[next] = numIslands
					queue = append(queue, next)
				}
			}
		}
		numIslands++
	}
	return ids, numIslands
}

// Ring returns all particles within n adjacency rings of start, excluding
// start itself, in ascending index order. Because adjacency is undirected
// the resulting neighbourhood relation is symmetric: if b is within n rings
// of a then a is within n rings of b.
func (t *Topology) Ring(start int32, n int) []int32 {
	depth := make(map[int32]int, 16)
	depth[start] = 0
	queue := []int32{start}

	var out []int32
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := depth[cur]
		if d == n {
			continue
		}
		for _, next := range t.Adjacency[cur] {
			if _, ok := depth[next]; ok {
				continue
			}
			depth[next] = d + 1
			out = append(out, next)
			queue = append(queue, next)
		}
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Geodesic computes shortest-path distances along mesh edges from the given
// seed set, with Euclidean edge lengths taken from positions. It returns the
// distance from the nearest seed and that seed's index for every particle
// (IndexNone and +Inf for unreachable ones).
//
// When several shortest paths tie, the lowest particle index wins: the
// priority queue orders equal distances by particle index, so results are
// deterministic for any triangle ordering.
func (t *Topology) Geodesic(positions []math.Vec3, seeds []int32) (dist []float32, src []int32) {
	const inf = float32(3.4e38)

	dist = make([]float32, t.NumPoints)
	src = make([]int32, t.NumPoints)
	for i := range dist {
		dist[i] = inf
		src[i] = IndexNone
	}

	pq := &geoHeap{}
	heap.Init(pq)
	for _, s := range seeds {
		dist[s] = 0
		src[s] = s
		heap.Push(pq, geoNode{index: s, dist: 0})
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(geoNode)
		if cur.dist > dist[cur.index] {
			continue // stale entry
		}
		for _, next := range t.Adjacency[cur.index] {
			d := cur.dist + positions[cur.index].Distance(positions[next])
			if d < dist[next] || (d == dist[next] && src[cur.index] < src[next]) {
				dist[next] = d
				src[next] = src[cur.index]
				heap.Push(pq, geoNode{index: next, dist: d})
			}
		}
	}
	return dist, src
}

type geoNode struct {
	index int32
	dist  float32
}

type geoHeap []geoNode

func (h geoHeap) Len() int { return len(h) }
func (h geoHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].index < h[j].index
}
func (h geoHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *geoHeap) Push(x interface{}) {
	*h = append(*h, x.(geoNode))
}

func (h *geoHeap) Pop() interface{} {
	old := *h
	n := len(old)
	node := old[n-1]
	*h = old[:n-1]
	return node
}
