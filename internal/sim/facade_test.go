package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drapesim/drape/internal/sim/collision"
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

type fakeComponent struct {
	numBones int
	tr       math.Transform
}

func (f *fakeComponent) BoneTransform(index int) (math.Transform, bool) {
	if index < 0 || index >= f.numBones {
		return math.Transform{}, false
	}
	return math.TransformIdentity(), true
}

func (f *fakeComponent) ComponentToWorld() math.Transform { return f.tr }

func testAsset(cols, rows, numLODs int) *Asset {
	params := quietParams()
	return &Asset{
		Name:   "test-sheet",
		Mesh:   mesh.NewGrid(cols, rows, 10, numLODs),
		Params: &params,
	}
}

func newTestSimulation(t *testing.T) *Simulation {
	t.Helper()
	settings := DefaultSettings()
	s := NewSimulation(settings)
	s.Initialize()
	return s
}

func simContext(dt float32) Context {
	return Context{
		DeltaSeconds:     dt,
		WorldGravity:     math.Vec3{Z: -980},
		MaxDistanceScale: 1,
		ComponentToWorld: math.TransformIdentity(),
	}
}

func TestCreateActorMissingConfig(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()

	s.CreateActor(nil, nil, 0)
	s.CreateActor(nil, &Asset{Name: "no-params", Mesh: mesh.NewGrid(4, 4, 10, 1)}, 0)

	assert.Zero(t, s.NumCloths(), "assets without config are skipped silently")
	assert.False(t, s.ShouldSimulate())
}

func TestSimulateAndStats(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(10, 10, 1), 7)
	require.True(t, s.ShouldSimulate())

	s.Simulate(simContext(1.0 / 60))

	assert.Equal(t, 1, s.NumCloths())
	assert.Equal(t, 10, s.NumKinematicParticles())
	assert.Equal(t, 90, s.NumDynamicParticles())
	assert.False(t, s.IsTeleported())
	assert.GreaterOrEqual(t, s.SimulationTime(), float32(0))

	out := make(map[int]ClothSimulData)
	s.GetSimulationData(out, nil, nil)
	require.Contains(t, out, 7)
	assert.Len(t, out[7].Positions, 100)
	assert.Len(t, out[7].Normals, 100)
}

func TestTeleportAndResetSnapsToPose(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(8, 8, 1), 0)

	// Let the cloth drift well away from the pose
	for i := 0; i < 20; i++ {
		s.Simulate(simContext(1.0 / 60))
	}

	ctx := simContext(1.0 / 60)
	ctx.TeleportMode = TeleportModeTeleportAndReset
	s.Simulate(ctx)
	assert.True(t, s.IsTeleported())

	solver := s.Solver()
	c := solver.Cloths()[0]
	d := &c.lodData[0]
	for i := d.offset; i < d.offset+d.count; i++ {
		assert.Equal(t, solver.animX[i], solver.pool.X[i], "position %d off the pose", i)
		assert.Equal(t, solver.animX[i], solver.pool.P[i])
		assert.Equal(t, math.Vec3{}, solver.pool.V[i], "velocity %d not zeroed", i)
	}
}

func TestSimulationDataInvalidBoneClearsAll(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(6, 6, 1), 0)
	s.Simulate(simContext(1.0 / 60))

	out := map[int]ClothSimulData{99: {}} // stale entry must also go
	s.GetSimulationData(out, &fakeComponent{numBones: 0}, nil)
	assert.Empty(t, out, "output must be all-or-nothing")

	// A valid component produces data again
	s.GetSimulationData(out, &fakeComponent{numBones: 4}, nil)
	assert.Len(t, out, 1)
}

func TestSimulationDataOverrideComponentWins(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(4, 4, 1), 0)
	s.Simulate(simContext(1.0 / 60))

	out := make(map[int]ClothSimulData)
	owner := &fakeComponent{numBones: 4}
	broken := &fakeComponent{numBones: 0}
	s.GetSimulationData(out, owner, broken)
	assert.Empty(t, out, "override component is consulted instead of the owner")
}

func TestExternalCollisions(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(4, 4, 1), 0)

	sphere := collision.Sphere{Center: math.Vec3{Z: -30}, Radius: 15}
	s.AddExternalCollisions(collision.Geometry{Spheres: []collision.Sphere{sphere}})
	s.Simulate(simContext(1.0 / 60))

	with := s.GetCollisions(true)
	without := s.GetCollisions(false)
	assert.Equal(t, 1, with.NumPrimitives())
	assert.Zero(t, without.NumPrimitives())

	s.ClearExternalCollisions()
	assert.Zero(t, s.GetCollisions(true).NumPrimitives())
}

func TestDestroyActorsHardReset(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(4, 4, 1), 0)
	s.Simulate(simContext(1.0 / 60))
	require.Equal(t, 1, s.NumCloths())

	s.DestroyActors()
	assert.Zero(t, s.NumCloths())
	assert.False(t, s.ShouldSimulate())
	assert.NotNil(t, s.Solver(), "hard reset leaves a fresh solver behind")

	// The simulation is usable again after the reset
	s.CreateActor(nil, testAsset(4, 4, 1), 0)
	s.Simulate(simContext(1.0 / 60))
	assert.Equal(t, 1, s.NumCloths())
}

func TestGetBounds(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(5, 5, 1), 0)
	for i := 0; i < 5; i++ {
		s.Simulate(simContext(1.0 / 60))
	}

	bounds := s.GetBounds(nil)
	assert.False(t, bounds.IsEmpty())
	// The sheet spans 40 units of X at rest
	assert.InDelta(t, 0, bounds.Min.X, 5)
	assert.InDelta(t, 40, bounds.Max.X, 5)
}

func TestSimulationTimeSmoothing(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	s.CreateActor(nil, testAsset(4, 4, 1), 0)

	for i := 0; i < 10; i++ {
		s.Simulate(simContext(1.0 / 60))
	}
	first := s.SimulationTime()
	assert.GreaterOrEqual(t, first, float32(0))

	// The average is decayed, not a raw last-frame value: it stays finite
	// and non-negative across many frames.
	for i := 0; i < 10; i++ {
		s.Simulate(simContext(1.0 / 60))
	}
	assert.GreaterOrEqual(t, s.SimulationTime(), float32(0))
}

func TestRefreshClothConfig(t *testing.T) {
	s := newTestSimulation(t)
	defer s.Shutdown()
	asset := testAsset(5, 5, 1)
	s.CreateActor(nil, asset, 0)
	s.Simulate(simContext(1.0 / 60))

	asset.Params.EdgeStiffness = 0.25
	s.RefreshClothConfig()
	s.Simulate(simContext(1.0 / 60))

	c := s.Solver().Cloths()[0]
	assert.Equal(t, float32(0.25), c.Params().EdgeStiffness)
	assert.Equal(t, 0, c.ActiveLOD(s.Solver()), "cloth rebound after refresh")
}
