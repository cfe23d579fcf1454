package constraints

import "github.com/drapesim/drape/internal/sim/mesh"

// DefaultSelfCollisionRings is how many adjacency rings around a particle
// are excluded from self-collision. Folded-over geometry adjacent in the
// mesh would otherwise generate spurious repulsion at the seams.
const DefaultSelfCollisionRings = 5

// SelfCollision pushes apart non-adjacent particle pairs that come closer
// than twice the self-collision thickness. Candidate pairs come from a
// spatial hash over predicted positions; topologically adjacent pairs
// (within the configured ring count) are excluded, and the exclusion set is
// symmetric by construction.
type SelfCollision struct {
	groupBase

	offset    int
	count     int
	thickness float32
	excluded  map[uint64]struct{} // packed local pairs, lower index first

	cells map[[3]int32][]int32 // scratch spatial hash
}

// NewSelfCollision builds the self-collision constraint for one particle
// range, excluding all pairs within rings adjacency rings of each other.
func NewSelfCollision(topo *mesh.Topology, offset int, thickness float32, rings int) *SelfCollision {
	sc := &SelfCollision{
		groupBase: groupBase{enabled: true},
		offset:    offset,
		count:     topo.NumPoints,
		thickness: thickness,
		excluded:  make(map[uint64]struct{}),
		cells:     make(map[[3]int32][]int32),
	}
	for i := 0; i < topo.NumPoints; i++ {
		for _, j := range topo.Ring(int32(i), rings) {
			sc.excluded[packPair(int32(i), j)] = struct{}{}
		}
	}
	return sc
}

// Excluded reports whether the local pair (i, j) is excluded from
// self-collision.
func (sc *SelfCollision) Excluded(i, j int32) bool {
	_, ok := sc.excluded[packPair(i, j)]
	return ok
}

// Apply resolves self-collisions over the predicted positions.
func (sc *SelfCollision) Apply(p Particles, dt float32) {
	diameter := 2 * sc.thickness
	if diameter <= 0 {
		return
	}

	// Rebuild the hash each pass; cells are keyed by quantized position.
	for k := range sc.cells {
		delete(sc.cells, k)
	}
	inv := 1 / diameter
	for i := 0; i < sc.count; i++ {
		pos := p.P[sc.offset+i]
		key := [3]int32{int32(pos.X * inv), int32(pos.Y * inv), int32(pos.Z * inv)}
		sc.cells[key] = append(sc.cells[key], int32(i))
	}

	for i := 0; i < sc.count; i++ {
		idx := sc.offset + i
		pos := p.P[idx]
		cx := int32(pos.X * inv)
		cy := int32(pos.Y * inv)
		cz := int32(pos.Z * inv)

		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, j := range sc.cells[[3]int32{cx + dx, cy + dy, cz + dz}] {
						if j <= int32(i) {
							continue
						}
						if _, skip := sc.excluded[packPair(int32(i), j)]; skip {
							continue
						}
						sc.resolve(p, idx, sc.offset+int(j), diameter)
					}
				}
			}
		}
	}
}

func (sc *SelfCollision) resolve(p Particles, i, j int, diameter float32) {
	wi, wj := p.InvM[i], p.InvM[j]
	w := wi + wj
	if w == 0 {
		return
	}
	d := p.P[j].Sub(p.P[i])
	distSq := d.LengthSq()
	if distSq >= diameter*diameter || distSq < 1e-12 {
		return
	}
	dist := d.Length()
	corr := d.Scale((dist - diameter) / (dist * w))
	p.P[i] = p.P[i].Add(corr.Scale(wi))
	p.P[j] = p.P[j].Sub(corr.Scale(wj))
}

func packPair(i, j int32) uint64 {
	if i > j {
		i, j = j, i
	}
	return uint64(uint32(i))<<32 | uint64(uint32(j))
}
