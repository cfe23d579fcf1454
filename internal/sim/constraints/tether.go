package constraints

import (
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

// TetherMode selects how long-range tethers pick their kinematic anchor and
// measure their rest length. Accurate modes follow mesh topology
// (geodesics); fast modes use straight-line distance. The mode trades
// compute cost at build time for geodesic accuracy.
type TetherMode int

const (
	// FastTetherFastLength picks the Euclidean-nearest anchor and uses the
	// Euclidean rest distance.
	FastTetherFastLength TetherMode = iota
	// AccurateTetherFastLength picks the geodesic-nearest anchor but keeps
	// the Euclidean rest distance.
	AccurateTetherFastLength
	// AccurateTetherAccurateLength picks the geodesic-nearest anchor and
	// uses the geodesic rest length.
	AccurateTetherAccurateLength
)

// LongRange limits each dynamic particle's distance from a kinematic anchor
// reached through mesh topology, preventing unbounded stretch. Anchors are
// assigned island by island; ties between equally near anchors resolve to
// the lowest particle index.
type LongRange struct {
	groupBase

	anchors   []int32 // pool-absolute kinematic anchor per tether
	particles []int32 // pool-absolute dynamic particle per tether
	lengths   []float32
	stiffness float32
	fused     bool
}

// NewLongRange builds tether constraints for one particle range. rest and
// invM are local to the range; indices in the result are shifted by offset.
// limitScale scales every tether's rest length.
func NewLongRange(topo *mesh.Topology, offset int, rest []math.Vec3, invM []float32, mode TetherMode, stiffness, limitScale float32, fused bool) *LongRange {
	lr := &LongRange{
		groupBase: groupBase{enabled: true},
		stiffness: stiffness,
		fused:     fused,
	}

	kinematic := make([]bool, len(invM))
	var seeds []int32
	for i, w := range invM {
		if w == 0 {
			kinematic[i] = true
			seeds = append(seeds, int32(i))
		}
	}
	if len(seeds) == 0 {
		return lr
	}

	islandIDs, _ := topo.Islands(kinematic)

	var geoDist []float32
	var geoSrc []int32
	if mode != FastTetherFastLength {
		geoDist, geoSrc = topo.Geodesic(rest, seeds)
	}

	for i := range invM {
		if kinematic[i] || islandIDs[i] == mesh.IndexNone {
			continue
		}

		var anchor int32
		var length float32
		switch mode {
		case FastTetherFastLength:
			anchor = nearestSeed(rest, seeds, islandIDs, int32(i))
			if anchor == mesh.IndexNone {
				continue
			}
			length = rest[i].Distance(rest[anchor])
		case AccurateTetherFastLength:
			anchor = geoSrc[i]
			if anchor == mesh.IndexNone {
				continue
			}
			length = rest[i].Distance(rest[anchor])
		case AccurateTetherAccurateLength:
			anchor = geoSrc[i]
			if anchor == mesh.IndexNone {
				continue
			}
			length = geoDist[i]
		}

		lr.anchors = append(lr.anchors, anchor+int32(offset))
		lr.particles = append(lr.particles, int32(i)+int32(offset))
		lr.lengths = append(lr.lengths, length*limitScale)
	}
	return lr
}

// NumTethers returns the number of tether constraints built.
func (lr *LongRange) NumTethers() int { return len(lr.particles) }

// SetStiffness updates the tether stiffness.
func (lr *LongRange) SetStiffness(stiffness float32) { lr.stiffness = stiffness }

// Apply pulls over-stretched particles back toward their anchors.
func (lr *LongRange) Apply(p Particles, dt float32) {
	for c, particle := range lr.particles {
		anchor := lr.anchors[c]
		d := p.P[particle].Sub(p.P[anchor])
		length := d.Length()
		excess := length - lr.lengths[c]
		if excess <= 0 || length < 1e-12 {
			continue
		}
		p.P[particle] = p.P[particle].Sub(d.Scale(lr.stiffness * excess / length))
	}
}

// nearestSeed returns the Euclidean-nearest kinematic seed in the same
// island, breaking distance ties by lowest index (seeds are scanned in
// ascending order with a strict comparison).
func nearestSeed(rest []math.Vec3, seeds []int32, islandIDs []int, particle int32) int32 {
	best := int32(mesh.IndexNone)
	bestDistSq := float32(0)
	for _, s := range seeds {
		if islandIDs[s] != islandIDs[particle] {
			continue
		}
		dSq := rest[particle].Sub(rest[s]).LengthSq()
		if best == mesh.IndexNone || dSq < bestDistSq {
			best = s
			bestDistSq = dSq
		}
	}
	return best
}
