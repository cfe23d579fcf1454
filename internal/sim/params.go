package sim

import (
	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/pkg/math"
)

// KinematicDistanceThreshold is the max-distance weight below which a
// particle is treated as kinematic: driven by the animation pose only, never
// moved by forces or constraints.
const KinematicDistanceThreshold = 0.1

// MassMode selects how per-particle mass is derived from the mass value.
type MassMode int

const (
	// MassModeUniform uses the mass value directly as each particle's mass.
	MassModeUniform MassMode = iota
	// MassModeTotalMass divides the mass value evenly over all particles.
	MassModeTotalMass
	// MassModeDensity multiplies the mass value by each particle's share of
	// the rest surface area.
	MassModeDensity
)

// ClothParams is the full per-cloth physical parameter set. Zero stiffness
// disables the corresponding constraint group; weight-map-driven groups are
// built only when the adapter provides their maps.
type ClothParams struct {
	MassMode           MassMode
	MassValue          float32
	MinPerParticleMass float32

	EdgeStiffness      float32
	BendingStiffness   float32
	UseBendingElements bool // exact dihedral form instead of cross-edge springs
	AreaStiffness      float32
	VolumeStiffness    float32
	UseThinShellVolume bool

	TetherStiffness float32 // zero disables long-range constraints
	TetherMode      constraints.TetherMode
	LimitScale      float32

	MaxDistancesMultiplier float32
	UseLegacyBackstop      bool
	AnimDriveStiffness     float32
	ShapeTargetStiffness   float32

	UseSelfCollisions      bool
	SelfCollisionThickness float32
	SelfCollisionRings     int
	CollisionThickness     float32
	FrictionCoefficient    float32

	DampingCoefficient float32

	GravityScale       float32
	UseGravityOverride bool
	GravityOverride    math.Vec3

	Drag          float32
	Lift          float32
	UseLegacyWind bool

	// LinearVelocityScale damps the velocity carried through reference
	// frame motion. Teleports force it to zero for one step.
	LinearVelocityScale float32

	LODOverride int // IndexNone follows the adapter's reported LOD
}

// DefaultClothParams returns the parameter set a cloth starts from.
func DefaultClothParams() ClothParams {
	return ClothParams{
		MassMode:           MassModeDensity,
		MassValue:          0.35,
		MinPerParticleMass: 0.0001,

		EdgeStiffness:    1,
		BendingStiffness: 1,
		AreaStiffness:    1,

		TetherStiffness: 1,
		TetherMode:      constraints.AccurateTetherAccurateLength,
		LimitScale:      1,

		MaxDistancesMultiplier: 1,

		SelfCollisionThickness: 2,
		SelfCollisionRings:     constraints.DefaultSelfCollisionRings,
		CollisionThickness:     1,
		FrictionCoefficient:    0.8,

		DampingCoefficient: 0.01,

		GravityScale: 1,

		Drag: 0.035,
		Lift: 0.035,

		LinearVelocityScale: 0.75,

		LODOverride: IndexNone,
	}
}
