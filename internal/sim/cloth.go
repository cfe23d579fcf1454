package sim

import (
	"fmt"

	"github.com/drapesim/drape/internal/sim/collision"
	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

// lodDatum is one LOD level of a bound cloth: its particle range, topology
// and committed constraint set.
type lodDatum struct {
	count  int
	offset int
	topo   *mesh.Topology
	set    *constraints.Set

	maxDistances []float32
	numKinematic int
	numDynamic   int
}

// Cloth owns one LOD ladder of constraint and topology data, binds a mesh
// adapter and an optional collider, and tracks per-cloth animatable
// parameters plus the reset and teleport flags. A cloth binds to at most one
// solver at a time; the binding map holds the active LOD index per solver,
// IndexNone until the adapter reports a valid LOD.
type Cloth struct {
	groupID  int
	mesh     mesh.Adapter
	collider *collision.Collider
	params   ClothParams

	lodData []lodDatum
	binding map[*Solver]int

	needsReset    bool
	needsTeleport bool

	refTransform math.Transform
	hasRef       bool

	componentToWorld math.Transform
	maxDistanceScale float32
}

// NewCloth creates an unbound cloth. collider may be nil for a cloth that
// collides with nothing.
func NewCloth(groupID int, adapter mesh.Adapter, collider *collision.Collider, params ClothParams) *Cloth {
	return &Cloth{
		groupID:          groupID,
		mesh:             adapter,
		collider:         collider,
		params:           params,
		binding:          make(map[*Solver]int),
		componentToWorld: math.TransformIdentity(),
		maxDistanceScale: 1,
	}
}

// GroupID returns the cloth's group id, the key of its readback data and of
// the solver's property table.
func (c *Cloth) GroupID() int { return c.groupID }

// Params returns the mutable parameter set. Changes that alter topology
// (mass mode, constraint selection) need a RefreshCloths to take effect;
// animatable multipliers apply next frame.
func (c *Cloth) Params() *ClothParams { return &c.params }

// Collider returns the bound collider, or nil.
func (c *Cloth) Collider() *collision.Collider { return c.collider }

// Mesh returns the bound mesh adapter.
func (c *Cloth) Mesh() mesh.Adapter { return c.mesh }

// Reset requests a snap back to the animation pose on the next step.
func (c *Cloth) Reset() { c.needsReset = true }

// Teleport requests that the next step discard inherited momentum while
// keeping the simulated shape.
func (c *Cloth) Teleport() { c.needsTeleport = true }

// SetComponentToWorld updates the owning component's transform for this
// frame.
func (c *Cloth) SetComponentToWorld(tr math.Transform) { c.componentToWorld = tr }

// SetMaxDistanceScale sets the host-driven multiplier on every max-distance
// radius.
func (c *Cloth) SetMaxDistanceScale(scale float32) { c.maxDistanceScale = scale }

// ActiveLOD returns the LOD bound on the solver, or IndexNone.
func (c *Cloth) ActiveLOD(s *Solver) int {
	if lod, ok := c.binding[s]; ok {
		return lod
	}
	return IndexNone
}

// NumActiveParticles returns the kinematic and dynamic particle counts of
// the active LOD, both zero while no LOD is active.
func (c *Cloth) NumActiveParticles(s *Solver) (kinematic, dynamic int) {
	lod := c.ActiveLOD(s)
	if lod == IndexNone {
		return 0, 0
	}
	return c.lodData[lod].numKinematic, c.lodData[lod].numDynamic
}

// ReferenceTransform returns the last pushed reference bone transform.
func (c *Cloth) ReferenceTransform() math.Transform { return c.refTransform }

// add allocates particle ranges and builds constraint rules for every LOD.
// Called by Solver.AddCloth.
func (c *Cloth) add(s *Solver) {
	if _, ok := c.binding[s]; ok {
		panic(fmt.Sprintf("sim: cloth group %d already bound", c.groupID))
	}

	numLODs := c.mesh.NumLODs()
	c.lodData = make([]lodDatum, 0, numLODs)
	for lod := 0; lod < numLODs; lod++ {
		count := c.mesh.NumPoints(lod)
		offset := s.allocate(count, c.groupID)

		// Skin the initial pose; it doubles as the constraint rest state.
		c.mesh.Update(s, IndexNone, lod, IndexNone, offset)
		rest := append([]math.Vec3(nil), s.animX[offset:offset+count]...)

		topo := mesh.NewTopology(count, c.mesh.Indices(lod))
		maxDistances := c.mesh.WeightMap(lod, mesh.WeightMaxDistance)
		invM := c.buildInverseMasses(topo, rest, maxDistances)

		x, pred, _, n, im, err := s.pool.View(offset, count)
		if err != nil {
			panic(fmt.Sprintf("sim: freshly allocated range invalid: %v", err))
		}
		copy(x, rest)
		copy(pred, rest)
		copy(n, s.animN[offset:offset+count])
		copy(im, invM)

		numKinematic := 0
		for _, w := range invM {
			if w == 0 {
				numKinematic++
			}
		}

		d := lodDatum{
			count:        count,
			offset:       offset,
			topo:         topo,
			maxDistances: maxDistances,
			numKinematic: numKinematic,
			numDynamic:   count - numKinematic,
		}
		d.set = c.buildConstraints(s, topo, offset, rest, invM, maxDistances, lod)
		c.lodData = append(c.lodData, d)

		// Inactive until the adapter reports a valid LOD
		s.pool.EnableRange(offset, false)
	}

	c.binding[s] = IndexNone
	c.hasRef = false
}

// unbind drops the solver binding. The pool storage is reclaimed by the
// solver's own reset.
func (c *Cloth) unbind(s *Solver) {
	delete(c.binding, s)
	c.lodData = nil
}

// buildInverseMasses derives per-particle inverse masses from the mass mode
// and marks kinematic particles from the max-distance weight map.
func (c *Cloth) buildInverseMasses(topo *mesh.Topology, rest []math.Vec3, maxDistances []float32) []float32 {
	count := topo.NumPoints
	masses := make([]float32, count)

	switch c.params.MassMode {
	case MassModeUniform:
		for i := range masses {
			masses[i] = c.params.MassValue
		}
	case MassModeTotalMass:
		per := c.params.MassValue / float32(count)
		for i := range masses {
			masses[i] = per
		}
	case MassModeDensity:
		for t := 0; t < topo.NumTriangles(); t++ {
			a, b, cc := topo.Triangle(t)
			area := rest[b].Sub(rest[a]).Cross(rest[cc].Sub(rest[a])).Length() / 2
			share := c.params.MassValue * area / 3
			masses[a] += share
			masses[b] += share
			masses[cc] += share
		}
	}

	invM := make([]float32, count)
	for i, m := range masses {
		if m < c.params.MinPerParticleMass {
			m = c.params.MinPerParticleMass
		}
		invM[i] = 1 / m
	}
	if maxDistances != nil {
		for i := range invM {
			if maxDistances[i] < KinematicDistanceThreshold {
				invM[i] = 0
			}
		}
	}
	return invM
}

// buildConstraints configures and commits the constraint set for one LOD.
func (c *Cloth) buildConstraints(s *Solver, topo *mesh.Topology, offset int, rest []math.Vec3, invM []float32, maxDistances []float32, lod int) *constraints.Set {
	p := &c.params
	set := constraints.NewSet(topo, offset, rest, invM, s.kern)

	if p.EdgeStiffness > 0 {
		set.SetEdgeConstraints(p.EdgeStiffness)
	}
	if p.BendingStiffness > 0 {
		set.SetBendingConstraints(p.BendingStiffness, p.UseBendingElements)
	}
	if p.AreaStiffness > 0 {
		set.SetAreaConstraints(p.AreaStiffness)
	}
	if p.VolumeStiffness > 0 {
		set.SetVolumeConstraints(p.VolumeStiffness, p.UseThinShellVolume)
	}
	if p.TetherStiffness > 0 {
		set.SetLongRangeConstraints(p.TetherMode, p.TetherStiffness, p.LimitScale)
	}
	if maxDistances != nil {
		set.SetMaximumDistanceConstraints(maxDistances, p.MaxDistancesMultiplier)
	}
	distances := c.mesh.WeightMap(lod, mesh.WeightBackstopDistance)
	radii := c.mesh.WeightMap(lod, mesh.WeightBackstopRadius)
	if distances != nil && radii != nil {
		set.SetBackstopConstraints(distances, radii, p.UseLegacyBackstop)
	}
	if p.AnimDriveStiffness > 0 {
		multipliers := c.mesh.WeightMap(lod, mesh.WeightAnimDrive)
		if multipliers == nil {
			multipliers = make([]float32, topo.NumPoints)
			for i := range multipliers {
				multipliers[i] = 1
			}
		}
		set.SetAnimDriveConstraints(multipliers, p.AnimDriveStiffness)
	}
	if p.ShapeTargetStiffness > 0 {
		set.SetShapeTargetConstraints(p.ShapeTargetStiffness)
	}
	if p.UseSelfCollisions && p.SelfCollisionThickness > 0 {
		rings := p.SelfCollisionRings
		if rings <= 0 {
			rings = constraints.DefaultSelfCollisionRings
		}
		set.SetSelfCollisionConstraints(p.SelfCollisionThickness, rings)
	}

	set.CreateRules()
	return set
}

// update runs the cloth's per-frame step against its bound solver: LOD
// resolution, collider refresh, pose skinning, LOD switch with wrap or
// reset, property push and the reference frame delta.
func (c *Cloth) update(s *Solver) {
	prev, ok := c.binding[s]
	if !ok {
		return
	}

	// 1. Resolve the desired LOD.
	lod := c.params.LODOverride
	if lod == IndexNone {
		lod = c.mesh.LODIndex()
	}
	if lod < 0 || lod >= len(c.lodData) {
		lod = IndexNone
	}

	// 2. Refresh collider geometry into solver local space.
	if c.collider != nil {
		tr := c.componentToWorld
		tr.Translation = tr.Translation.Sub(s.LocalSpaceLocation())
		c.collider.Update(tr)
	}

	// 3. Skin the pose for both the previous and the new LOD range.
	prevOffset, offset := IndexNone, IndexNone
	if prev != IndexNone {
		prevOffset = c.lodData[prev].offset
	}
	if lod != IndexNone {
		offset = c.lodData[lod].offset
	}
	c.mesh.Update(s, prev, lod, prevOffset, offset)

	// 4. LOD switch: flip enabled ranges and wrap or reset.
	if lod != prev {
		if prev != IndexNone {
			s.pool.EnableRange(prevOffset, false)
		}
		if lod != IndexNone {
			s.pool.EnableRange(offset, true)
			if !c.wrapLOD(s, prev, lod) {
				c.needsReset = true
			}
		}
		c.binding[s] = lod
	}
	if lod == IndexNone {
		return
	}

	// 5. Push resolved per-frame properties into the group table.
	d := &c.lodData[lod]
	props := s.groupProps(c.groupID)
	props.gravity = c.effectiveGravity(s)
	props.windVelocity = s.windVelocity
	props.windAdaption = s.windAdaption
	props.drag = c.params.Drag
	props.lift = c.params.Lift
	props.legacyWind = c.params.UseLegacyWind
	props.damping = c.params.DampingCoefficient
	props.collisionThickness = c.params.CollisionThickness
	props.friction = c.params.FrictionCoefficient

	if d.set.MaxDistance != nil {
		d.set.MaxDistance.SetScale(c.maxDistanceScale * c.params.MaxDistancesMultiplier)
	}
	if d.set.Drive != nil {
		d.set.Drive.SetStiffness(c.params.AnimDriveStiffness)
	}
	if d.set.Tether != nil {
		d.set.Tether.SetStiffness(c.params.TetherStiffness)
	}

	// 6. Reference frame delta with velocity-carry, or a full reset.
	ref := c.mesh.ReferenceBoneTransform()
	if c.needsReset {
		c.snapToPose(s, d)
		props.applyRef = false
		props.velocityScale = 1
		props.frozen = true
	} else {
		props.velocityScale = c.params.LinearVelocityScale
		if c.needsTeleport {
			props.velocityScale = 0
		}
		props.refDelta = math.TransformIdentity()
		props.applyRef = c.needsTeleport
		if c.hasRef {
			delta := ref.Mul(c.refTransform.Inverse())
			if !transformNearIdentity(delta) {
				props.refDelta = delta
				props.applyRef = true
			}
		}
	}
	c.refTransform = ref
	c.hasRef = true

	// 7. Flags are one-shot.
	c.needsReset = false
	c.needsTeleport = false
}

// effectiveGravity resolves the gravity precedence: a solver override beats
// a cloth override beats gravity scale.
func (c *Cloth) effectiveGravity(s *Solver) math.Vec3 {
	if s.useGravityOverride {
		return s.gravityOverride
	}
	if c.params.UseGravityOverride {
		return c.params.GravityOverride
	}
	return s.gravity.Scale(c.params.GravityScale)
}

// wrapLOD projects the previous LOD's positions and velocities onto the new
// topology. Returns false when no usable previous state exists or the
// adapter refuses the transition.
func (c *Cloth) wrapLOD(s *Solver, prev, lod int) bool {
	if prev == IndexNone {
		return false
	}
	pd := &c.lodData[prev]
	nd := &c.lodData[lod]

	prevX := append([]math.Vec3(nil), s.pool.X[pd.offset:pd.offset+pd.count]...)
	prevV := append([]math.Vec3(nil), s.pool.V[pd.offset:pd.offset+pd.count]...)

	x, pred, v, _, _, err := s.pool.View(nd.offset, nd.count)
	if err != nil {
		return false
	}
	if !c.mesh.WrapDeformLOD(prev, lod, prevX, prevV, x, v) {
		return false
	}
	copy(pred, x)
	return true
}

// snapToPose overwrites the range's state with the freshly skinned pose.
func (c *Cloth) snapToPose(s *Solver, d *lodDatum) {
	x, pred, v, n, _, err := s.pool.View(d.offset, d.count)
	if err != nil {
		return
	}
	copy(x, s.animX[d.offset:d.offset+d.count])
	copy(pred, x)
	copy(n, s.animN[d.offset:d.offset+d.count])
	for i := range v {
		v[i] = math.Vec3{}
	}
}

func transformNearIdentity(tr math.Transform) bool {
	const eps = 1e-6
	if tr.Translation.LengthSq() > eps {
		return false
	}
	d := tr.Rotation.Dot(math.QuatIdentity())
	return d > 1-eps || d < -(1-eps)
}
