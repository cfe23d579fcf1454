package constraints

import (
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

// Set is the full constraint collection of one cloth at one bound particle
// offset. Groups are configured with the Set* builder methods, then
// CreateRules commits them in their fixed execution order. Index tuples are
// pool-absolute and only valid while the LOD stays bound at this offset; an
// LOD switch rebuilds the whole Set.
type Set struct {
	topo   *mesh.Topology
	offset int
	rest   []math.Vec3 // local rest positions at build time
	invM   []float32   // local inverse masses
	kern   Kernels

	Edge          *Spring
	BendingFast   *Spring // cross-edge form, exclusive with BendingExact
	BendingExact  *Bending
	Area          *AxialSpring
	SurfaceVolume *Volume // exclusive with ThinShellVolume
	ThinShell     *Spring
	Tether        *LongRange
	MaxDistance   *Spherical
	BackstopGroup *Backstop
	Drive         *AnimDrive
	Shape         *ShapeTarget
	SelfCollide   *SelfCollision

	rules   []Group
	created bool
}

// NewSet prepares a constraint builder for one particle range. rest and
// invM are local to the range (length topo.NumPoints).
func NewSet(topo *mesh.Topology, offset int, rest []math.Vec3, invM []float32, kern Kernels) *Set {
	return &Set{
		topo:   topo,
		offset: offset,
		rest:   rest,
		invM:   invM,
		kern:   kern,
	}
}

// Offset returns the pool offset this set was built for.
func (s *Set) Offset() int { return s.offset }

// SetEdgeConstraints configures distance springs over every mesh edge.
func (s *Set) SetEdgeConstraints(stiffness float32) {
	s.Edge = NewSpring(s.shiftPairs(s.topo.Edges), s.absRest(), stiffness, s.kern.Spring)
}

// SetBendingConstraints configures bending, either the fast cross-edge
// spring form or the exact 4-particle dihedral form.
func (s *Set) SetBendingConstraints(stiffness float32, useBendingElements bool) {
	if useBendingElements {
		s.BendingExact = NewBending(s.shiftQuads(s.topo.BendingElements()), s.absRest(), stiffness)
		return
	}
	s.BendingFast = NewSpring(s.shiftPairs(s.topo.CrossEdges()), s.absRest(), stiffness, s.kern.Spring)
}

// SetAreaConstraints configures axial springs over every triangle.
func (s *Set) SetAreaConstraints(stiffness float32) {
	s.Area = NewAxialSpring(s.shiftTris(), s.absRest(), stiffness, s.kern.AxialSpring)
}

// SetVolumeConstraints configures volume preservation: the triangle-surface
// form, or the thin-shell double-bending form when thinShell is set.
func (s *Set) SetVolumeConstraints(stiffness float32, thinShell bool) {
	if thinShell {
		s.ThinShell = NewSpring(s.shiftPairs(s.topo.CrossEdges()), s.absRest(), stiffness, s.kern.Spring)
		return
	}
	s.SurfaceVolume = NewVolume(s.shiftTris(), s.absRest(), stiffness)
}

// SetLongRangeConstraints configures tether constraints from kinematic
// anchors in the given mode.
func (s *Set) SetLongRangeConstraints(mode TetherMode, stiffness, limitScale float32) {
	s.Tether = NewLongRange(s.topo, s.offset, s.rest, s.invM, mode, stiffness, limitScale, s.kern.LongRange)
}

// SetMaximumDistanceConstraints configures the max-distance sphere
// constraint from its weight map.
func (s *Set) SetMaximumDistanceConstraints(maxDistances []float32, scale float32) {
	s.MaxDistance = NewSpherical(s.offset, maxDistances, scale, s.kern.Spherical)
}

// SetBackstopConstraints configures the backstop sphere constraint from its
// weight maps.
func (s *Set) SetBackstopConstraints(distances, radii []float32, legacy bool) {
	s.BackstopGroup = NewBackstop(s.offset, distances, radii, legacy)
}

// SetAnimDriveConstraints configures the anim-drive pose spring from its
// weight map.
func (s *Set) SetAnimDriveConstraints(multipliers []float32, stiffness float32) {
	s.Drive = NewAnimDrive(s.offset, multipliers, stiffness)
}

// SetShapeTargetConstraints configures the uniform shape-target pose spring.
func (s *Set) SetShapeTargetConstraints(stiffness float32) {
	s.Shape = NewShapeTarget(s.offset, s.topo.NumPoints, stiffness)
}

// SetSelfCollisionConstraints configures self-collision with an N-ring
// topological exclusion set.
func (s *Set) SetSelfCollisionConstraints(thickness float32, rings int) {
	s.SelfCollide = NewSelfCollision(s.topo, s.offset, thickness, rings)
}

// CreateRules commits the configured groups into the execution list, in the
// fixed order the solver will apply them. Calling it twice panics: the set
// must be rebuilt, not re-committed.
func (s *Set) CreateRules() {
	if s.created {
		panic("constraints: CreateRules called twice for the same set")
	}
	s.created = true

	if s.Edge != nil {
		s.rules = append(s.rules, s.Edge)
	}
	if s.BendingFast != nil {
		s.rules = append(s.rules, s.BendingFast)
	}
	if s.BendingExact != nil {
		s.rules = append(s.rules, s.BendingExact)
	}
	if s.Area != nil {
		s.rules = append(s.rules, s.Area)
	}
	if s.SurfaceVolume != nil {
		s.rules = append(s.rules, s.SurfaceVolume)
	}
	if s.ThinShell != nil {
		s.rules = append(s.rules, s.ThinShell)
	}
	if s.Tether != nil {
		s.rules = append(s.rules, s.Tether)
	}
	if s.MaxDistance != nil {
		s.rules = append(s.rules, s.MaxDistance)
	}
	if s.BackstopGroup != nil {
		s.rules = append(s.rules, s.BackstopGroup)
	}
	if s.Drive != nil {
		s.rules = append(s.rules, s.Drive)
	}
	if s.Shape != nil {
		s.rules = append(s.rules, s.Shape)
	}
}

// Rules returns the committed constraint groups in execution order.
// Self-collision is not part of this list; it resolves with integration.
func (s *Set) Rules() []Group { return s.rules }

// PostRule returns the self-collision group, or nil if not configured.
func (s *Set) PostRule() Group {
	if s.SelfCollide == nil {
		return nil
	}
	return s.SelfCollide
}

// Enable toggles every committed group at once without rebuilding.
func (s *Set) Enable(enabled bool) {
	for _, r := range s.rules {
		r.SetEnabled(enabled)
	}
	if s.SelfCollide != nil {
		s.SelfCollide.SetEnabled(enabled)
	}
}

// absRest returns a pool-absolute view of the rest positions so groups can
// measure rest lengths with the same indices they solve with.
func (s *Set) absRest() []math.Vec3 {
	abs := make([]math.Vec3, s.offset+len(s.rest))
	copy(abs[s.offset:], s.rest)
	return abs
}

func (s *Set) shiftPairs(pairs [][2]int32) [][2]int32 {
	out := make([][2]int32, len(pairs))
	off := int32(s.offset)
	for i, p := range pairs {
		out[i] = [2]int32{p[0] + off, p[1] + off}
	}
	return out
}

func (s *Set) shiftTris() [][3]int32 {
	n := s.topo.NumTriangles()
	out := make([][3]int32, n)
	off := int32(s.offset)
	for i := 0; i < n; i++ {
		a, b, c := s.topo.Triangle(i)
		out[i] = [3]int32{a + off, b + off, c + off}
	}
	return out
}

func (s *Set) shiftQuads(quads [][4]int32) [][4]int32 {
	out := make([][4]int32, len(quads))
	off := int32(s.offset)
	for i, q := range quads {
		out[i] = [4]int32{q[0] + off, q[1] + off, q[2] + off, q[3] + off}
	}
	return out
}
