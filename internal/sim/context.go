// Package sim ties the particle pool, constraint sets, mesh adapters and
// colliders together into cloth objects, a position-based-dynamics solver
// and the per-character simulation facade the host animation system talks
// to.
package sim

import (
	"github.com/drapesim/drape/internal/sim/collision"
	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

// IndexNone marks an unassigned LOD index or particle offset.
const IndexNone = -1

// TeleportMode is the host's per-frame teleport request.
type TeleportMode int

const (
	// TeleportModeNone continues the simulation normally.
	TeleportModeNone TeleportMode = iota
	// TeleportModeTeleport moves the cloth with the character, keeping its
	// simulated shape but discarding inherited momentum.
	TeleportModeTeleport
	// TeleportModeTeleportAndReset additionally snaps the cloth back to the
	// skinned animation pose.
	TeleportModeTeleportAndReset
)

// Context carries the per-frame inputs of one Simulate call.
type Context struct {
	DeltaSeconds     float32
	TeleportMode     TeleportMode
	WorldGravity     math.Vec3
	WindVelocity     math.Vec3
	WindAdaption     float32
	MaxDistanceScale float32
	ComponentToWorld math.Transform
}

// SkinnedComponent is the host-side mesh component a simulation is attached
// to. Readback resolves the cloth's reference bone through it.
type SkinnedComponent interface {
	// BoneTransform returns the component-space transform of a bone, or
	// false if the index is outside the component's bone array.
	BoneTransform(index int) (math.Transform, bool)
	ComponentToWorld() math.Transform
}

// Asset bundles everything needed to spawn one cloth: the mesh adapter, the
// physics-asset collision geometry and the cloth parameters. A nil Params
// marks an asset without a usable cloth config.
type Asset struct {
	Name    string
	Mesh    mesh.Adapter
	Physics collision.Geometry
	Params  *ClothParams
}

// ClothSimulData is the per-cloth readback payload: final particle positions
// and normals in the cloth's reference space.
type ClothSimulData struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	// Transform is the component-to-world transform the data was captured
	// under.
	Transform math.Transform
}
