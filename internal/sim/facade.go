package sim

import (
	stdmath "math"
	"sync/atomic"
	"time"

	"github.com/drapesim/drape/internal/logger"
	"github.com/drapesim/drape/internal/sim/collision"
	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/pkg/math"
)

// simTimeSmoothing is the exponential smoothing factor of the running
// simulation-time average.
const simTimeSmoothing = 0.03

// Settings is the shared per-simulation configuration the facade creates its
// solver from.
type Settings struct {
	NumSubsteps   int
	NumIterations int

	LocalSpaceSimulation bool

	UseGravityOverride bool
	GravityOverride    math.Vec3

	Kernels constraints.Kernels
}

// DefaultSettings returns the facade configuration a simulation starts from.
func DefaultSettings() Settings {
	return Settings{
		NumSubsteps:          1,
		NumIterations:        1,
		LocalSpaceSimulation: true,
		Kernels:              constraints.DefaultKernels(),
	}
}

// Simulation is the per-character facade the host animation system drives.
// It owns the solver and every live cloth, accumulates external collision
// geometry, and keeps race-free aggregate statistics: the physics thread
// writes them during Simulate, arbitrary threads read them for display.
type Simulation struct {
	settings Settings

	solver *Solver
	cloths []*Cloth
	assets []*Asset

	external collision.Geometry

	numCloths    atomic.Int32
	numKinematic atomic.Int32
	numDynamic   atomic.Int32
	simTimeBits  atomic.Uint32 // float32 bits, milliseconds
	teleported   atomic.Bool
}

// NewSimulation creates an uninitialized simulation. Call Initialize before
// the first Simulate.
func NewSimulation(settings Settings) *Simulation {
	return &Simulation{settings: settings}
}

// Initialize creates the solver. Cloths created before Initialize are lost;
// the canonical hard reset is Shutdown followed by Initialize.
func (s *Simulation) Initialize() {
	s.solver = NewSolver(s.settings.NumSubsteps, s.settings.NumIterations, s.settings.Kernels)
	if s.settings.UseGravityOverride {
		s.solver.SetGravityOverride(s.settings.GravityOverride, true)
	}
}

// Shutdown tears the solver and all cloths down.
func (s *Simulation) Shutdown() {
	if s.solver != nil {
		s.solver.RemoveCloths()
		s.solver = nil
	}
	s.cloths = nil
	s.assets = nil
	s.external.Reset()
	s.numCloths.Store(0)
	s.numKinematic.Store(0)
	s.numDynamic.Store(0)
}

// DestroyActors is the hard reset path: full teardown and a fresh solver.
func (s *Simulation) DestroyActors() {
	s.Shutdown()
	s.Initialize()
}

// CreateActor builds one cloth from an asset and binds it to the solver.
// An asset without usable cloth parameters is skipped with a warning; this
// is not an error.
func (s *Simulation) CreateActor(owner SkinnedComponent, asset *Asset, simDataIndex int) {
	if s.solver == nil {
		warnf("CreateActor before Initialize, ignoring asset %q", assetName(asset))
		return
	}
	if asset == nil || asset.Mesh == nil || asset.Params == nil {
		warnf("asset %q has no usable cloth config, skipping", assetName(asset))
		return
	}

	collider := collision.NewCollider()
	collider.SetGeometry(collision.DataLODIndependent, 0, asset.Physics)
	if s.external.NumPrimitives() > 0 {
		collider.SetGeometry(collision.DataExternal, 0, s.external)
	}

	cloth := NewCloth(simDataIndex, asset.Mesh, collider, *asset.Params)
	if owner != nil {
		cloth.SetComponentToWorld(owner.ComponentToWorld())
	}
	s.solver.AddCloth(cloth)
	s.cloths = append(s.cloths, cloth)
	s.assets = append(s.assets, asset)
	s.numCloths.Store(int32(len(s.cloths)))
}

// ShouldSimulate reports whether a Simulate call would do any work.
func (s *Simulation) ShouldSimulate() bool {
	return s.solver != nil && len(s.cloths) > 0
}

// Simulate advances the simulation by the context's delta time, after
// resolving teleport flags and pushing the frame's animatable parameters.
func (s *Simulation) Simulate(ctx Context) {
	if !s.ShouldSimulate() || ctx.DeltaSeconds <= 0 {
		return
	}
	start := time.Now()

	switch ctx.TeleportMode {
	case TeleportModeTeleport:
		for _, c := range s.cloths {
			c.Teleport()
		}
	case TeleportModeTeleportAndReset:
		for _, c := range s.cloths {
			c.Teleport()
			c.Reset()
		}
	}
	s.teleported.Store(ctx.TeleportMode != TeleportModeNone)

	s.solver.SetGravity(ctx.WorldGravity)
	s.solver.SetWind(ctx.WindVelocity, ctx.WindAdaption)
	if s.settings.LocalSpaceSimulation {
		s.solver.SetLocalSpaceLocation(ctx.ComponentToWorld.Translation,
			ctx.TeleportMode != TeleportModeNone)
	}
	for _, c := range s.cloths {
		c.SetComponentToWorld(ctx.ComponentToWorld)
		c.SetMaxDistanceScale(ctx.MaxDistanceScale)
	}

	s.solver.Update(ctx.DeltaSeconds)

	kinematic, dynamic := 0, 0
	for _, c := range s.cloths {
		k, d := c.NumActiveParticles(s.solver)
		kinematic += k
		dynamic += d
	}
	s.numKinematic.Store(int32(kinematic))
	s.numDynamic.Store(int32(dynamic))

	ms := float32(time.Since(start).Seconds() * 1000)
	prev := s.SimulationTime()
	s.storeSimTime(prev + simTimeSmoothing*(ms-prev))
}

// GetSimulationData reads back final particle positions and normals for
// every active cloth into out, keyed by group id, transformed into each
// cloth's reference space. On any invalid reference bone the whole map is
// cleared rather than serving partial data.
func (s *Simulation) GetSimulationData(out map[int]ClothSimulData, owner, override SkinnedComponent) {
	for k := range out {
		delete(out, k)
	}
	if s.solver == nil {
		return
	}
	comp := owner
	if override != nil {
		comp = override
	}

	for _, c := range s.cloths {
		lod := c.ActiveLOD(s.solver)
		if lod == IndexNone {
			continue
		}
		refIndex := c.mesh.ReferenceBoneIndex()
		if comp != nil {
			if _, ok := comp.BoneTransform(refIndex); !ok {
				warnf("cloth group %d reference bone %d out of range, clearing simulation data",
					c.groupID, refIndex)
				for k := range out {
					delete(out, k)
				}
				return
			}
		}

		d := &c.lodData[lod]
		x, _, _, n, _, err := s.solver.pool.View(d.offset, d.count)
		if err != nil {
			warnf("cloth group %d readback failed: %v", c.groupID, err)
			for k := range out {
				delete(out, k)
			}
			return
		}

		inv := c.refTransform.Inverse()
		origin := s.solver.LocalSpaceLocation()
		data := ClothSimulData{
			Positions: make([]math.Vec3, d.count),
			Normals:   make([]math.Vec3, d.count),
			Transform: c.componentToWorld,
		}
		for i := 0; i < d.count; i++ {
			data.Positions[i] = inv.TransformPoint(x[i].Add(origin))
			// Normal flip matches the winding convention of the skinned mesh
			data.Normals[i] = inv.TransformVector(n[i]).Neg()
		}
		out[c.groupID] = data
	}
}

// GetBounds returns the world-space bounds of all simulated particles.
func (s *Simulation) GetBounds(component SkinnedComponent) math.AABB {
	if s.solver == nil {
		return math.EmptyAABB()
	}
	return s.solver.CalculateBounds()
}

// AddExternalCollisions appends per-frame collision geometry pushed by the
// host, shared by every cloth.
func (s *Simulation) AddExternalCollisions(geom collision.Geometry) {
	s.external.Append(geom)
	for _, c := range s.cloths {
		if col := c.Collider(); col != nil {
			col.SetGeometry(collision.DataExternal, 0, s.external)
		}
	}
}

// ClearExternalCollisions drops all external geometry.
func (s *Simulation) ClearExternalCollisions() {
	s.external.Reset()
	for _, c := range s.cloths {
		if col := c.Collider(); col != nil {
			col.ClearExternal()
		}
	}
}

// GetCollisions returns the combined collision geometry of every cloth at
// its active LOD.
func (s *Simulation) GetCollisions(includeExternal bool) collision.Geometry {
	var out collision.Geometry
	if s.solver == nil {
		return out
	}
	for _, c := range s.cloths {
		col := c.Collider()
		if col == nil {
			continue
		}
		out.Append(col.CollisionData(c.ActiveLOD(s.solver), false))
	}
	if includeExternal {
		out.Append(s.external)
	}
	return out
}

// RefreshClothConfig reapplies every asset's parameters and rebuilds all
// constraint topology. Asset-edit-time entry point.
func (s *Simulation) RefreshClothConfig() {
	if s.solver == nil {
		return
	}
	for i, c := range s.cloths {
		if i < len(s.assets) && s.assets[i].Params != nil {
			*c.Params() = *s.assets[i].Params
		}
	}
	s.solver.RefreshCloths()
}

// RefreshPhysicsAsset re-extracts collision geometry from every asset.
func (s *Simulation) RefreshPhysicsAsset() {
	for i, c := range s.cloths {
		col := c.Collider()
		if col == nil || i >= len(s.assets) {
			continue
		}
		col.SetGeometry(collision.DataLODIndependent, 0, s.assets[i].Physics)
	}
}

// NumCloths returns the live cloth count.
func (s *Simulation) NumCloths() int { return int(s.numCloths.Load()) }

// NumKinematicParticles returns the active kinematic particle count of the
// last simulated frame.
func (s *Simulation) NumKinematicParticles() int { return int(s.numKinematic.Load()) }

// NumDynamicParticles returns the active dynamic particle count of the last
// simulated frame.
func (s *Simulation) NumDynamicParticles() int { return int(s.numDynamic.Load()) }

// SimulationTime returns the smoothed per-frame simulation time in
// milliseconds.
func (s *Simulation) SimulationTime() float32 {
	return stdmath.Float32frombits(s.simTimeBits.Load())
}

// IsTeleported reports whether the last frame was a teleport frame.
func (s *Simulation) IsTeleported() bool { return s.teleported.Load() }

// Solver exposes the underlying solver, mainly for tests and debug tooling.
func (s *Simulation) Solver() *Solver { return s.solver }

func (s *Simulation) storeSimTime(ms float32) {
	s.simTimeBits.Store(stdmath.Float32bits(ms))
}

func assetName(a *Asset) string {
	if a == nil {
		return "<nil>"
	}
	return a.Name
}

func warnf(format string, args ...any) {
	if logger.Sugar != nil {
		logger.Sugar.Warnf(format, args...)
	}
}
