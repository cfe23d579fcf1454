package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

// quietParams keeps only edge constraints and disables wind and damping so
// tests can reason about exact velocities.
func quietParams() ClothParams {
	p := DefaultClothParams()
	p.MassMode = MassModeUniform
	p.MassValue = 1
	p.BendingStiffness = 0
	p.AreaStiffness = 0
	p.TetherStiffness = 0
	p.Drag = 0
	p.Lift = 0
	p.DampingCoefficient = 0
	p.LinearVelocityScale = 1
	return p
}

func newBoundCloth(t *testing.T, grid *mesh.Grid, params ClothParams) (*Solver, *Cloth) {
	t.Helper()
	s := NewSolver(1, 1, constraints.DefaultKernels())
	c := NewCloth(0, grid, nil, params)
	s.AddCloth(c)
	// First update binds the LOD and resets to the pose
	s.Update(1.0 / 60)
	require.Equal(t, 0, c.ActiveLOD(s))
	return s, c
}

func TestKinematicMassInvariant(t *testing.T) {
	grid := mesh.NewGrid(10, 10, 10, 1)
	s, c := newBoundCloth(t, grid, quietParams())

	d := &c.lodData[0]
	maxD := grid.WeightMap(0, mesh.WeightMaxDistance)
	for i := 0; i < d.count; i++ {
		kinematic := maxD[i] < KinematicDistanceThreshold
		if kinematic {
			assert.Zero(t, s.pool.InvM[d.offset+i], "particle %d should be kinematic", i)
		} else {
			assert.Positive(t, s.pool.InvM[d.offset+i], "particle %d should be dynamic", i)
		}
	}

	// Kinematic particles track the pose exactly through a falling step
	s.SetGravity(math.Vec3{Z: -980})
	s.Update(1.0 / 60)
	for i := 0; i < d.count; i++ {
		if s.pool.InvM[d.offset+i] == 0 {
			assert.Equal(t, s.animX[d.offset+i], s.pool.X[d.offset+i],
				"kinematic particle %d drifted off the pose", i)
		}
	}

	kin, dyn := c.NumActiveParticles(s)
	assert.Equal(t, 10, kin, "pinned top row")
	assert.Equal(t, 90, dyn)
}

func TestLODRangesDisjoint(t *testing.T) {
	grid := mesh.NewGrid(9, 9, 10, 3)
	s, c := newBoundCloth(t, grid, quietParams())

	next := 0
	for lod := range c.lodData {
		d := &c.lodData[lod]
		assert.Equal(t, next, d.offset, "ranges must be contiguous in allocation order")
		_, _, _, _, _, err := s.pool.View(d.offset, d.count)
		assert.NoError(t, err)
		next += d.count
	}
}

func TestGravityStepAfterBind(t *testing.T) {
	grid := mesh.NewGrid(10, 10, 10, 1)
	s, c := newBoundCloth(t, grid, quietParams())

	const dt = 1.0 / 60
	s.SetGravity(math.Vec3{Z: -980})
	s.Update(dt)

	d := &c.lodData[0]
	// The bottom row is far from the pinned row; constraint corrections do
	// not reach it in one iteration.
	for col := 0; col < 10; col++ {
		i := d.offset + 9*10 + col
		assert.InDelta(t, -980*dt, s.pool.V[i].Z, 0.5, "free-fall velocity at col %d", col)
	}
	// Every dynamic particle gained downward velocity
	for i := d.offset; i < d.offset+d.count; i++ {
		if s.pool.InvM[i] > 0 {
			assert.Negative(t, s.pool.V[i].Z)
		}
	}
}

func TestLODSwitchWrap(t *testing.T) {
	grid := mesh.NewGrid(9, 9, 10, 2)
	s, c := newBoundCloth(t, grid, quietParams())

	d0 := &c.lodData[0]
	d1 := &c.lodData[1]
	assert.True(t, s.pool.RangeEnabled(d0.offset))
	assert.False(t, s.pool.RangeEnabled(d1.offset))

	grid.SetLODIndex(1)
	s.Update(1.0 / 60)

	assert.Equal(t, 1, c.ActiveLOD(s))
	assert.False(t, s.pool.RangeEnabled(d0.offset), "previous LOD stays allocated but disabled")
	assert.True(t, s.pool.RangeEnabled(d1.offset))

	// Wrap succeeded: every coarse vertex matches its fine counterpart from
	// before the switch, modulo the one solver step after wrapping.
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			coarse := s.pool.X[d1.offset+row*5+col]
			fine := s.pool.X[d0.offset+row*2*9+col*2]
			assert.InDelta(t, fine.X, coarse.X, 1.0)
			assert.InDelta(t, fine.Z, coarse.Z, 1.0)
		}
	}
}

func TestLODSwitchTooFarResets(t *testing.T) {
	grid := mesh.NewGrid(9, 9, 10, 3)
	s, c := newBoundCloth(t, grid, quietParams())

	// Let it fall away from the pose first
	s.SetGravity(math.Vec3{Z: -980})
	for i := 0; i < 10; i++ {
		s.Update(1.0 / 60)
	}

	grid.SetLODIndex(2) // two levels at once, wrap must refuse
	s.Update(1.0 / 60)

	require.Equal(t, 2, c.ActiveLOD(s))
	d := &c.lodData[2]
	for i := d.offset; i < d.offset+d.count; i++ {
		assert.Equal(t, s.animX[i], s.pool.X[i], "reset pose must match skinning exactly")
		assert.Equal(t, math.Vec3{}, s.pool.V[i])
	}
}

func TestGravityPrecedence(t *testing.T) {
	grid := mesh.NewGrid(4, 4, 10, 1)
	params := quietParams()
	params.GravityScale = 2
	s, c := newBoundCloth(t, grid, params)
	s.SetGravity(math.Vec3{Z: -100})

	assert.Equal(t, float32(-200), c.effectiveGravity(s).Z, "gravity scale applies")

	c.Params().UseGravityOverride = true
	c.Params().GravityOverride = math.Vec3{Z: -50}
	assert.Equal(t, float32(-50), c.effectiveGravity(s).Z, "cloth override beats scale")

	s.SetGravityOverride(math.Vec3{Z: -10}, true)
	assert.Equal(t, float32(-10), c.effectiveGravity(s).Z, "solver override beats everything")

	s.SetGravityOverride(math.Vec3{}, false)
	assert.Equal(t, float32(-50), c.effectiveGravity(s).Z)
}

func TestBoundsContainAllParticles(t *testing.T) {
	grid := mesh.NewGrid(8, 8, 10, 1)
	s, _ := newBoundCloth(t, grid, quietParams())
	s.SetGravity(math.Vec3{Z: -980})
	s.SetLocalSpaceLocation(math.Vec3{X: 100}, true)

	for i := 0; i < 30; i++ {
		s.Update(1.0 / 60)
	}

	bounds := s.CalculateBounds()
	assert.False(t, bounds.IsEmpty())
	for _, r := range s.pool.Ranges() {
		if !r.Enabled {
			continue
		}
		for i := r.Offset; i < r.Offset+r.Count; i++ {
			world := s.pool.X[i].Add(s.LocalSpaceLocation())
			assert.True(t, bounds.Contains(world), "particle %d outside bounds", i)
		}
	}
}

func TestOriginShiftPreservesWorldPositions(t *testing.T) {
	grid := mesh.NewGrid(4, 4, 10, 1)
	s, c := newBoundCloth(t, grid, quietParams())
	s.SetGravity(math.Vec3{})

	d := &c.lodData[0]
	before := make([]math.Vec3, d.count)
	for i := range before {
		before[i] = s.pool.X[d.offset+i].Add(s.LocalSpaceLocation())
	}

	s.SetLocalSpaceLocation(math.Vec3{X: 500, Y: -200}, false)
	s.Update(1.0 / 60)

	for i := range before {
		after := s.pool.X[d.offset+i].Add(s.LocalSpaceLocation())
		if s.pool.InvM[d.offset+i] > 0 {
			assert.InDelta(t, before[i].X, after.X, 1e-3, "particle %d moved in world space", i)
			assert.InDelta(t, before[i].Y, after.Y, 1e-3)
		}
	}
}

func TestTeleportDiscardsMomentumKeepsShape(t *testing.T) {
	grid := mesh.NewGrid(6, 6, 10, 1)
	grid.SetMaxDistance(1e6) // keep the max-distance clamp out of the way
	s, c := newBoundCloth(t, grid, quietParams())
	const dt = 1.0 / 60
	s.SetGravity(math.Vec3{Z: -980})
	for i := 0; i < 5; i++ {
		s.Update(dt)
	}

	d := &c.lodData[0]
	shift := math.Vec3{X: 1000}
	relBefore := make([]math.Vec3, d.count)
	for i := range relBefore {
		relBefore[i] = s.pool.X[d.offset+i].Sub(s.pool.X[d.offset])
	}
	fallSpeed := s.pool.V[d.offset+30].Z
	require.Less(t, fallSpeed, float32(-30), "cloth should be falling before the teleport")

	grid.SetReferenceBoneTransform(math.Transform{
		Rotation:    math.QuatIdentity(),
		Translation: shift,
	})
	c.Teleport()
	s.Update(dt)

	for i := range relBefore {
		rel := s.pool.X[d.offset+i].Sub(s.pool.X[d.offset])
		assert.InDelta(t, relBefore[i].X, rel.X, 2.0, "shape changed at %d", i)
		assert.InDelta(t, relBefore[i].Z, rel.Z, 2.0, "shape changed at %d", i)
	}
	// Inherited momentum gone: only this frame's gravity and constraint
	// corrections remain on the free bottom corner.
	assert.InDelta(t, -980*dt, s.pool.V[d.offset+30].Z, 10.0, "velocity carry not zeroed")
	// The whole cloth followed the reference frame
	assert.InDelta(t, shift.X, s.pool.X[d.offset+30].X-relBefore[30].X, 25.0)
}

func TestAddClothTwicePanics(t *testing.T) {
	grid := mesh.NewGrid(4, 4, 10, 1)
	s := NewSolver(1, 1, constraints.DefaultKernels())
	c := NewCloth(0, grid, nil, quietParams())
	s.AddCloth(c)
	assert.Panics(t, func() { s.AddCloth(c) })
}

func TestRemoveAndRefreshCloths(t *testing.T) {
	grid := mesh.NewGrid(4, 4, 10, 1)
	s, c := newBoundCloth(t, grid, quietParams())

	s.RefreshCloths()
	s.Update(1.0 / 60)
	assert.Equal(t, 0, c.ActiveLOD(s), "refresh rebinds the cloth")

	s.RemoveCloths()
	assert.Empty(t, s.Cloths())
	assert.Zero(t, s.pool.Size())
	assert.Equal(t, IndexNone, c.ActiveLOD(s))
}
