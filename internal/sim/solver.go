package sim

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/drapesim/drape/internal/sim/collision"
	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/internal/sim/pool"
	"github.com/drapesim/drape/pkg/math"
)

// groupProperties is the per-group-id row of the solver's property table.
// Cloths push their resolved per-frame values here; the substep loop reads
// them back by group id.
type groupProperties struct {
	gravity      math.Vec3
	windVelocity math.Vec3
	windAdaption float32
	drag, lift   float32
	legacyWind   bool

	damping            float32
	collisionThickness float32
	friction           float32

	refDelta      math.Transform
	applyRef      bool
	velocityScale float32

	// frozen pins the group to the animation pose for the rest of the
	// frame; set on reset so the step lands exactly on the skinned pose.
	frozen bool
}

// Solver owns the particle pool and the animation pose buffers, and steps
// every bound cloth with a fixed substep phase order: forces, iterated
// constraint projection in registration order, collision response, then
// integration with self-collision. All positions are local to the floating
// origin; world space is localSpaceLocation + X.
type Solver struct {
	pool  *pool.Pool
	animX []math.Vec3
	animN []math.Vec3

	cloths []*Cloth
	groups map[int]*groupProperties

	numSubsteps   int
	numIterations int

	gravity            math.Vec3
	useGravityOverride bool
	gravityOverride    math.Vec3

	windVelocity math.Vec3
	windAdaption float32

	localSpace     math.Vec3
	prevLocalSpace math.Vec3

	kern constraints.Kernels
}

// NewSolver creates a solver with the given substep and iteration counts.
func NewSolver(numSubsteps, numIterations int, kern constraints.Kernels) *Solver {
	if numSubsteps < 1 {
		numSubsteps = 1
	}
	if numIterations < 1 {
		numIterations = 1
	}
	return &Solver{
		pool:          pool.New(),
		groups:        make(map[int]*groupProperties),
		numSubsteps:   numSubsteps,
		numIterations: numIterations,
		gravity:       math.Vec3{Z: -980},
		kern:          kern,
	}
}

// NumSubsteps returns the configured substep count.
func (s *Solver) NumSubsteps() int { return s.numSubsteps }

// NumIterations returns the configured constraint iteration count.
func (s *Solver) NumIterations() int { return s.numIterations }

// Kernels returns the kernel toggle configuration.
func (s *Solver) Kernels() constraints.Kernels { return s.kern }

// SetGravity sets the solver-level gravity cloths scale by their own factor.
func (s *Solver) SetGravity(g math.Vec3) { s.gravity = g }

// Gravity returns the solver-level gravity.
func (s *Solver) Gravity() math.Vec3 { return s.gravity }

// SetGravityOverride forces every cloth's effective gravity to g while
// enabled, regardless of per-cloth settings.
func (s *Solver) SetGravityOverride(g math.Vec3, enabled bool) {
	s.gravityOverride = g
	s.useGravityOverride = enabled
}

// SetWind sets the frame's wind velocity and adaption factor.
func (s *Solver) SetWind(velocity math.Vec3, adaption float32) {
	s.windVelocity = velocity
	s.windAdaption = adaption
}

// SetLocalSpaceLocation re-anchors the floating origin. With reset the
// particle history snaps to the new origin; without it the origin shift is
// compensated next step so world-space positions are preserved.
func (s *Solver) SetLocalSpaceLocation(location math.Vec3, reset bool) {
	s.localSpace = location
	if reset {
		s.prevLocalSpace = location
	}
}

// LocalSpaceLocation implements mesh.PoseBuffers.
func (s *Solver) LocalSpaceLocation() math.Vec3 { return s.localSpace }

// AnimationPositions implements mesh.PoseBuffers.
func (s *Solver) AnimationPositions(offset, count int) []math.Vec3 {
	return s.animX[offset : offset+count]
}

// AnimationNormals implements mesh.PoseBuffers.
func (s *Solver) AnimationNormals(offset, count int) []math.Vec3 {
	return s.animN[offset : offset+count]
}

// AddCloth binds a cloth: allocates particle ranges for every LOD and builds
// its constraint rules. Adding the same cloth twice is a programming error
// and panics.
func (s *Solver) AddCloth(c *Cloth) {
	for _, bound := range s.cloths {
		if bound == c {
			panic(fmt.Sprintf("sim: cloth group %d already added to solver", c.groupID))
		}
	}
	c.add(s)
	s.cloths = append(s.cloths, c)
}

// Cloths returns the bound cloths in registration order.
func (s *Solver) Cloths() []*Cloth { return s.cloths }

// RemoveCloths unbinds every cloth and discards all particle storage.
func (s *Solver) RemoveCloths() {
	for _, c := range s.cloths {
		c.unbind(s)
	}
	s.cloths = nil
	s.pool.Reset()
	s.animX = nil
	s.animN = nil
	s.groups = make(map[int]*groupProperties)
}

// RefreshCloths rebuilds every bound cloth from scratch. Used when shared
// configuration changes in a way that invalidates existing topology.
func (s *Solver) RefreshCloths() {
	list := s.cloths
	s.RemoveCloths()
	for _, c := range list {
		s.AddCloth(c)
	}
}

// Update advances the simulation by dt seconds.
func (s *Solver) Update(dt float32) {
	if dt <= 0 {
		return
	}

	for _, c := range s.cloths {
		c.update(s)
	}
	s.applyOriginShift()
	s.applyReferenceDeltas()

	sdt := dt / float32(s.numSubsteps)
	for i := 0; i < s.numSubsteps; i++ {
		s.substep(sdt)
	}

	for _, props := range s.groups {
		props.frozen = false
	}
}

// CalculateBounds returns the world-space bounding box over all enabled
// particles.
func (s *Solver) CalculateBounds() math.AABB {
	box := math.EmptyAABB()
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		for i := r.Offset; i < r.Offset+r.Count; i++ {
			box = box.Grow(s.pool.X[i])
		}
	}
	return box.Translate(s.localSpace)
}

func (s *Solver) allocate(count, groupID int) int {
	offset := s.pool.AllocateRange(count, groupID)
	s.animX = append(s.animX, make([]math.Vec3, count)...)
	s.animN = append(s.animN, make([]math.Vec3, count)...)
	return offset
}

func (s *Solver) groupProps(groupID int) *groupProperties {
	props, ok := s.groups[groupID]
	if !ok {
		props = &groupProperties{velocityScale: 1, refDelta: math.TransformIdentity()}
		s.groups[groupID] = props
	}
	return props
}

func (s *Solver) particles() constraints.Particles {
	return constraints.Particles{
		X:             s.pool.X,
		P:             s.pool.P,
		V:             s.pool.V,
		InvM:          s.pool.InvM,
		AnimPositions: s.animX,
		AnimNormals:   s.animN,
	}
}

// applyOriginShift compensates a moved floating origin so world-space
// particle positions are preserved across the move.
func (s *Solver) applyOriginShift() {
	delta := s.prevLocalSpace.Sub(s.localSpace)
	if delta.LengthSq() > 0 {
		for i := range s.pool.X {
			s.pool.X[i] = s.pool.X[i].Add(delta)
			s.pool.P[i] = s.pool.P[i].Add(delta)
		}
	}
	s.prevLocalSpace = s.localSpace
}

// applyReferenceDeltas moves each group's particles by its reference frame
// delta, carrying velocity through the rotation scaled by the group's
// velocity-scale. A zero scale discards inherited momentum (teleport).
func (s *Solver) applyReferenceDeltas() {
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		props, ok := s.groups[r.GroupID]
		if !ok || !props.applyRef {
			continue
		}
		for i := r.Offset; i < r.Offset+r.Count; i++ {
			if s.pool.InvM[i] == 0 {
				continue
			}
			s.pool.X[i] = props.refDelta.TransformPoint(s.pool.X[i])
			s.pool.P[i] = s.pool.X[i]
			s.pool.V[i] = props.refDelta.TransformVector(s.pool.V[i]).Scale(props.velocityScale)
		}
	}
	for _, props := range s.groups {
		props.applyRef = false
	}
}

func (s *Solver) substep(sdt float32) {
	p := s.particles()

	// Forces and prediction
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		props := s.groupProps(r.GroupID)
		if !props.frozen {
			s.applyForces(r, props, sdt)
		}
	}
	for _, c := range s.cloths {
		lod := c.binding[s]
		if lod == IndexNone {
			continue
		}
		props := s.groupProps(c.groupID)
		if !props.frozen && !props.legacyWind && (props.drag != 0 || props.lift != 0) {
			s.applyTriangleWind(&c.lodData[lod], props, sdt)
		}
	}
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		frozen := s.groupProps(r.GroupID).frozen
		for i := r.Offset; i < r.Offset+r.Count; i++ {
			if frozen || s.pool.InvM[i] == 0 {
				s.pool.P[i] = s.animX[i] // track the pose
				continue
			}
			s.pool.P[i] = s.pool.X[i].Add(s.pool.V[i].Scale(sdt))
		}
	}

	// Constraint projection, fixed registration order
	for it := 0; it < s.numIterations; it++ {
		for _, c := range s.cloths {
			lod := c.binding[s]
			if lod == IndexNone || s.groupProps(c.groupID).frozen {
				continue
			}
			for _, rule := range c.lodData[lod].set.Rules() {
				if rule.Enabled() {
					rule.Apply(p, sdt)
				}
			}
		}
	}

	// Collision response
	for _, c := range s.cloths {
		lod := c.binding[s]
		if lod == IndexNone || c.collider == nil {
			continue
		}
		props := s.groupProps(c.groupID)
		if props.frozen {
			continue
		}
		geom := c.collider.CollisionData(lod, true)
		if geom.NumPrimitives() == 0 {
			continue
		}
		d := &c.lodData[lod]
		collision.Resolve(s.pool.P, s.pool.X, s.pool.InvM, d.offset, d.count,
			geom, props.collisionThickness, props.friction)
	}

	// Self-collision resolves with integration
	for _, c := range s.cloths {
		lod := c.binding[s]
		if lod == IndexNone || s.groupProps(c.groupID).frozen {
			continue
		}
		if post := c.lodData[lod].set.PostRule(); post != nil && post.Enabled() {
			post.Apply(p, sdt)
		}
	}
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		frozen := s.groupProps(r.GroupID).frozen
		inv := 1 / sdt
		for i := r.Offset; i < r.Offset+r.Count; i++ {
			if frozen {
				s.pool.X[i] = s.pool.P[i]
				s.pool.V[i] = math.Vec3{}
				continue
			}
			s.pool.V[i] = s.pool.P[i].Sub(s.pool.X[i]).Scale(inv)
			s.pool.X[i] = s.pool.P[i]
		}
	}

	// Normals follow the new positions
	for _, c := range s.cloths {
		lod := c.binding[s]
		if lod != IndexNone {
			s.recomputeNormals(&c.lodData[lod])
		}
	}
}

// applyForces integrates gravity, damping and the legacy point wind into one
// range's velocities.
func (s *Solver) applyForces(r pool.Range, props *groupProperties, sdt float32) {
	var avg math.Vec3
	dynamic := 0
	for i := r.Offset; i < r.Offset+r.Count; i++ {
		if s.pool.InvM[i] > 0 {
			avg = avg.Add(s.pool.V[i])
			dynamic++
		}
	}
	if dynamic > 0 {
		avg = avg.Scale(1 / float32(dynamic))
	}

	legacyBlend := clamp01(props.windAdaption * sdt)
	for i := r.Offset; i < r.Offset+r.Count; i++ {
		if s.pool.InvM[i] == 0 {
			continue
		}
		v := s.pool.V[i].Add(props.gravity.Scale(sdt))
		if props.damping > 0 {
			v = v.Sub(v.Sub(avg).Scale(props.damping))
		}
		if props.legacyWind && legacyBlend > 0 {
			v = v.Add(props.windVelocity.Sub(v).Scale(legacyBlend))
		}
		s.pool.V[i] = v
	}
}

// applyTriangleWind accumulates per-triangle drag and lift from the relative
// wind into vertex velocities.
func (s *Solver) applyTriangleWind(d *lodDatum, props *groupProperties, sdt float32) {
	off := int32(d.offset)
	for t := 0; t < d.topo.NumTriangles(); t++ {
		ia, ib, ic := d.topo.Triangle(t)
		a, b, c := int(ia+off), int(ib+off), int(ic+off)

		vAvg := s.pool.V[a].Add(s.pool.V[b]).Add(s.pool.V[c]).Scale(1.0 / 3)
		rel := props.windVelocity.Sub(vAvg)
		if rel.LengthSq() < 1e-12 {
			continue
		}

		n := s.pool.X[b].Sub(s.pool.X[a]).Cross(s.pool.X[c].Sub(s.pool.X[a]))
		twoArea := n.Length()
		if twoArea < 1e-12 {
			continue
		}
		n = n.Scale(1 / twoArea)
		area := twoArea / 2

		vn := rel.Dot(n)
		tangential := rel.Sub(n.Scale(vn))
		force := n.Scale(props.drag * area * vn).
			Add(tangential.Scale(props.lift * area))

		for _, i := range [3]int{a, b, c} {
			if w := s.pool.InvM[i]; w > 0 {
				s.pool.V[i] = s.pool.V[i].Add(force.Scale(sdt * w / 3))
			}
		}
	}
}

// recomputeNormals rebuilds area-weighted vertex normals for one LOD range.
func (s *Solver) recomputeNormals(d *lodDatum) {
	for i := d.offset; i < d.offset+d.count; i++ {
		s.pool.N[i] = math.Vec3{}
	}
	off := int32(d.offset)
	for t := 0; t < d.topo.NumTriangles(); t++ {
		ia, ib, ic := d.topo.Triangle(t)
		a, b, c := int(ia+off), int(ib+off), int(ic+off)
		n := s.pool.X[b].Sub(s.pool.X[a]).Cross(s.pool.X[c].Sub(s.pool.X[a]))
		s.pool.N[a] = s.pool.N[a].Add(n)
		s.pool.N[b] = s.pool.N[b].Add(n)
		s.pool.N[c] = s.pool.N[c].Add(n)
	}
	for i := d.offset; i < d.offset+d.count; i++ {
		if l := s.pool.N[i].Length(); l > 1e-12 {
			s.pool.N[i] = s.pool.N[i].Scale(1 / l)
		}
	}
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
