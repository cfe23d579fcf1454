// Package config handles simulation configuration loading and management.
package config

import (
	"github.com/drapesim/drape/internal/sim"
	"github.com/drapesim/drape/internal/sim/constraints"
	"github.com/drapesim/drape/pkg/math"
)

// Config holds all simulation settings.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Cloth   ClothConfig   `yaml:"cloth"`
	Kernels KernelsConfig `yaml:"kernels"`
	Demo    DemoConfig    `yaml:"demo"`
	Logging LoggingConfig `yaml:"logging"`
}

// SolverConfig holds solver-wide stepping and space settings.
type SolverConfig struct {
	NumSubsteps          int       `yaml:"num_substeps"`
	NumIterations        int       `yaml:"num_iterations"`
	LocalSpaceSimulation bool      `yaml:"local_space_simulation"`
	UseGravityOverride   bool      `yaml:"use_gravity_override"`
	GravityOverride      []float32 `yaml:"gravity_override"` // x, y, z
}

// ClothConfig holds the default per-cloth material parameters.
type ClothConfig struct {
	MassMode           string  `yaml:"mass_mode"` // uniform, total, density
	MassValue          float32 `yaml:"mass_value"`
	MinPerParticleMass float32 `yaml:"min_per_particle_mass"`

	EdgeStiffness      float32 `yaml:"edge_stiffness"`
	BendingStiffness   float32 `yaml:"bending_stiffness"`
	UseBendingElements bool    `yaml:"use_bending_elements"`
	AreaStiffness      float32 `yaml:"area_stiffness"`
	VolumeStiffness    float32 `yaml:"volume_stiffness"`
	UseThinShellVolume bool    `yaml:"use_thin_shell_volume"`

	TetherStiffness float32 `yaml:"tether_stiffness"`
	TetherMode      string  `yaml:"tether_mode"` // fast, accurate, accurate_length
	LimitScale      float32 `yaml:"limit_scale"`

	MaxDistancesMultiplier float32 `yaml:"max_distances_multiplier"`
	UseLegacyBackstop      bool    `yaml:"use_legacy_backstop"`
	AnimDriveStiffness     float32 `yaml:"anim_drive_stiffness"`
	ShapeTargetStiffness   float32 `yaml:"shape_target_stiffness"`

	UseSelfCollisions      bool    `yaml:"use_self_collisions"`
	SelfCollisionThickness float32 `yaml:"self_collision_thickness"`
	SelfCollisionRings     int     `yaml:"self_collision_rings"`
	CollisionThickness     float32 `yaml:"collision_thickness"`
	FrictionCoefficient    float32 `yaml:"friction_coefficient"`

	DampingCoefficient float32 `yaml:"damping_coefficient"`

	GravityScale       float32   `yaml:"gravity_scale"`
	UseGravityOverride bool      `yaml:"use_gravity_override"`
	GravityOverride    []float32 `yaml:"gravity_override"`

	Drag          float32 `yaml:"drag"`
	Lift          float32 `yaml:"lift"`
	UseLegacyWind bool    `yaml:"use_legacy_wind"`

	LinearVelocityScale float32 `yaml:"linear_velocity_scale"`
}

// KernelsConfig toggles batched inner loops per constraint type. All on by
// default; purely a performance path.
type KernelsConfig struct {
	Spring        bool `yaml:"spring"`
	AxialSpring   bool `yaml:"axial_spring"`
	LongRange     bool `yaml:"long_range"`
	Spherical     bool `yaml:"spherical"`
	DampVelocity  bool `yaml:"damp_velocity"`
	Collision     bool `yaml:"collision"`
	VelocityField bool `yaml:"velocity_field"`
	SimData       bool `yaml:"sim_data"`
}

// DemoConfig holds the demo binary's scene settings.
type DemoConfig struct {
	GridCols    int     `yaml:"grid_cols"`
	GridRows    int     `yaml:"grid_rows"`
	GridSpacing float32 `yaml:"grid_spacing"`
	NumLODs     int     `yaml:"num_lods"`
	Frames      int     `yaml:"frames"`
	DeltaTime   float32 `yaml:"delta_time"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	p := sim.DefaultClothParams()
	return &Config{
		Solver: SolverConfig{
			NumSubsteps:          1,
			NumIterations:        2,
			LocalSpaceSimulation: true,
		},
		Cloth: ClothConfig{
			MassMode:           "density",
			MassValue:          p.MassValue,
			MinPerParticleMass: p.MinPerParticleMass,

			EdgeStiffness:    p.EdgeStiffness,
			BendingStiffness: p.BendingStiffness,
			AreaStiffness:    p.AreaStiffness,

			TetherStiffness: p.TetherStiffness,
			TetherMode:      "accurate_length",
			LimitScale:      p.LimitScale,

			MaxDistancesMultiplier: p.MaxDistancesMultiplier,

			SelfCollisionThickness: p.SelfCollisionThickness,
			SelfCollisionRings:     p.SelfCollisionRings,
			CollisionThickness:     p.CollisionThickness,
			FrictionCoefficient:    p.FrictionCoefficient,

			DampingCoefficient: p.DampingCoefficient,
			GravityScale:       p.GravityScale,

			Drag: p.Drag,
			Lift: p.Lift,

			LinearVelocityScale: p.LinearVelocityScale,
		},
		Kernels: KernelsConfig{
			Spring:        true,
			AxialSpring:   true,
			LongRange:     true,
			Spherical:     true,
			DampVelocity:  true,
			Collision:     true,
			VelocityField: true,
			SimData:       true,
		},
		Demo: DemoConfig{
			GridCols:    17,
			GridRows:    17,
			GridSpacing: 10,
			NumLODs:     2,
			Frames:      300,
			DeltaTime:   1.0 / 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Settings converts the solver section into facade settings.
func (c *Config) Settings() sim.Settings {
	s := sim.Settings{
		NumSubsteps:          c.Solver.NumSubsteps,
		NumIterations:        c.Solver.NumIterations,
		LocalSpaceSimulation: c.Solver.LocalSpaceSimulation,
		UseGravityOverride:   c.Solver.UseGravityOverride,
		GravityOverride:      vec3(c.Solver.GravityOverride),
		Kernels:              c.Kernels.Kernels(),
	}
	return s
}

// ClothParams converts the cloth section into simulation parameters.
func (c *Config) ClothParams() sim.ClothParams {
	cc := c.Cloth
	p := sim.DefaultClothParams()

	switch cc.MassMode {
	case "uniform":
		p.MassMode = sim.MassModeUniform
	case "total":
		p.MassMode = sim.MassModeTotalMass
	default:
		p.MassMode = sim.MassModeDensity
	}
	p.MassValue = cc.MassValue
	p.MinPerParticleMass = cc.MinPerParticleMass

	p.EdgeStiffness = cc.EdgeStiffness
	p.BendingStiffness = cc.BendingStiffness
	p.UseBendingElements = cc.UseBendingElements
	p.AreaStiffness = cc.AreaStiffness
	p.VolumeStiffness = cc.VolumeStiffness
	p.UseThinShellVolume = cc.UseThinShellVolume

	p.TetherStiffness = cc.TetherStiffness
	switch cc.TetherMode {
	case "fast":
		p.TetherMode = constraints.FastTetherFastLength
	case "accurate":
		p.TetherMode = constraints.AccurateTetherFastLength
	default:
		p.TetherMode = constraints.AccurateTetherAccurateLength
	}
	p.LimitScale = cc.LimitScale

	p.MaxDistancesMultiplier = cc.MaxDistancesMultiplier
	p.UseLegacyBackstop = cc.UseLegacyBackstop
	p.AnimDriveStiffness = cc.AnimDriveStiffness
	p.ShapeTargetStiffness = cc.ShapeTargetStiffness

	p.UseSelfCollisions = cc.UseSelfCollisions
	p.SelfCollisionThickness = cc.SelfCollisionThickness
	p.SelfCollisionRings = cc.SelfCollisionRings
	p.CollisionThickness = cc.CollisionThickness
	p.FrictionCoefficient = cc.FrictionCoefficient

	p.DampingCoefficient = cc.DampingCoefficient

	p.GravityScale = cc.GravityScale
	p.UseGravityOverride = cc.UseGravityOverride
	p.GravityOverride = vec3(cc.GravityOverride)

	p.Drag = cc.Drag
	p.Lift = cc.Lift
	p.UseLegacyWind = cc.UseLegacyWind

	p.LinearVelocityScale = cc.LinearVelocityScale

	return p
}

// Kernels converts the kernel toggles.
func (k KernelsConfig) Kernels() constraints.Kernels {
	return constraints.Kernels{
		Spring:        k.Spring,
		AxialSpring:   k.AxialSpring,
		LongRange:     k.LongRange,
		Spherical:     k.Spherical,
		DampVelocity:  k.DampVelocity,
		Collision:     k.Collision,
		VelocityField: k.VelocityField,
		SimData:       k.SimData,
	}
}

func vec3(v []float32) math.Vec3 {
	if len(v) != 3 {
		return math.Vec3{}
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}
