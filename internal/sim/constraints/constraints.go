// Package constraints implements the per-cloth constraint groups of the
// position-based-dynamics solver: distance springs, bending, area, volume,
// long-range tethers, max-distance, backstop, anim-drive, shape-target and
// self-collision. Groups store pool-absolute index tuples and are rebuilt
// whenever their LOD is rebound; enable flags and animatable multipliers can
// be changed every frame without a rebuild.
package constraints

import "github.com/drapesim/drape/pkg/math"

// Particles is the view of solver state a constraint group operates on.
// All slices are pool-absolute: a group indexes them with the tuples it was
// built with.
type Particles struct {
	X    []math.Vec3 // current positions
	P    []math.Vec3 // predicted positions
	V    []math.Vec3 // velocities
	InvM []float32   // inverse masses, 0 = kinematic

	AnimPositions []math.Vec3 // skinned animation pose
	AnimNormals   []math.Vec3
}

// Group is one constraint group in the solver's execution list. The set of
// implementations is closed (sealed by the unexported marker), so the solve
// loop is a dispatch over a known set of kinds.
type Group interface {
	// Apply runs one projection pass over the group's constraints.
	Apply(p Particles, dt float32)
	// SetEnabled toggles the group without rebuilding it.
	SetEnabled(enabled bool)
	// Enabled reports whether the group participates in solving.
	Enabled() bool

	group()
}

// Kernels selects batched inner loops for specific constraint types and for
// simulation-data readback. All fields default to on; the switch is purely a
// performance path and functionally transparent.
type Kernels struct {
	Spring        bool
	AxialSpring   bool
	LongRange     bool
	Spherical     bool
	DampVelocity  bool
	Collision     bool
	VelocityField bool
	SimData       bool
}

// DefaultKernels returns the all-on kernel configuration.
func DefaultKernels() Kernels {
	return Kernels{
		Spring:        true,
		AxialSpring:   true,
		LongRange:     true,
		Spherical:     true,
		DampVelocity:  true,
		Collision:     true,
		VelocityField: true,
		SimData:       true,
	}
}

type groupBase struct {
	enabled bool
}

func (g *groupBase) SetEnabled(enabled bool) { g.enabled = enabled }
func (g *groupBase) Enabled() bool           { return g.enabled }
func (g *groupBase) group()                  {}
