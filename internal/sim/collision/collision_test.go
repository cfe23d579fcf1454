package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drapesim/drape/pkg/math"
)

func TestSphereProject(t *testing.T) {
	s := Sphere{Center: math.Vec3{}, Radius: 1}

	proj, n, hit := s.project(math.Vec3{X: 0.5, Y: 0, Z: 0}, 0)
	require.True(t, hit)
	assert.InDelta(t, 1.0, proj.X, 1e-5)
	assert.InDelta(t, 1.0, n.X, 1e-5)

	_, _, hit = s.project(math.Vec3{X: 2, Y: 0, Z: 0}, 0)
	assert.False(t, hit)

	// Margin widens the contact shell
	proj, _, hit = s.project(math.Vec3{X: 1.2, Y: 0, Z: 0}, 0.5)
	require.True(t, hit)
	assert.InDelta(t, 1.5, proj.X, 1e-5)

	// Dead center still resolves to a point on the surface
	proj, _, hit = s.project(math.Vec3{}, 0)
	require.True(t, hit)
	assert.InDelta(t, 1.0, proj.Length(), 1e-5)
}

func TestCapsuleProject(t *testing.T) {
	c := Capsule{A: math.Vec3{X: -1, Y: 0, Z: 0}, B: math.Vec3{X: 1, Y: 0, Z: 0}, Radius: 0.5}

	// Against the cylindrical side
	proj, n, hit := c.project(math.Vec3{X: 0, Y: 0.2, Z: 0}, 0)
	require.True(t, hit)
	assert.InDelta(t, 0.5, proj.Y, 1e-5)
	assert.InDelta(t, 1.0, n.Y, 1e-5)

	// Against an end cap
	proj, _, hit = c.project(math.Vec3{X: 1.3, Y: 0, Z: 0}, 0)
	require.True(t, hit)
	assert.InDelta(t, 1.5, proj.X, 1e-5)

	_, _, hit = c.project(math.Vec3{X: 0, Y: 2, Z: 0}, 0)
	assert.False(t, hit)
}

func TestConvexProject(t *testing.T) {
	// Unit box around the origin
	box := Convex{Planes: []Plane{
		{Normal: math.Vec3{X: 1}, Distance: 1},
		{Normal: math.Vec3{X: -1}, Distance: 1},
		{Normal: math.Vec3{Y: 1}, Distance: 1},
		{Normal: math.Vec3{Y: -1}, Distance: 1},
		{Normal: math.Vec3{Z: 1}, Distance: 1},
		{Normal: math.Vec3{Z: -1}, Distance: 1},
	}}

	// Inside, nearest face is +X
	proj, n, hit := box.project(math.Vec3{X: 0.9, Y: 0.1, Z: 0}, 0)
	require.True(t, hit)
	assert.InDelta(t, 1.0, proj.X, 1e-5)
	assert.InDelta(t, 1.0, n.X, 1e-5)

	_, _, hit = box.project(math.Vec3{X: 1.5, Y: 0, Z: 0}, 0)
	assert.False(t, hit)
}

func TestGeometryAppendReset(t *testing.T) {
	var g Geometry
	g.Append(Geometry{Spheres: []Sphere{{Radius: 1}}})
	g.Append(Geometry{Capsules: []Capsule{{Radius: 1}}, Convexes: []Convex{{}}})
	assert.Equal(t, 3, g.NumPrimitives())

	g.Reset()
	assert.Equal(t, 0, g.NumPrimitives())
}

func TestColliderSlots(t *testing.T) {
	c := NewCollider()
	c.SetGeometry(DataLODIndependent, 0, Geometry{Spheres: []Sphere{{Radius: 1}}})
	c.SetGeometry(DataExternal, 0, Geometry{Spheres: []Sphere{{Radius: 2}}})
	c.SetGeometry(DataLODSpecific, 0, Geometry{Capsules: []Capsule{{Radius: 1}}})
	c.SetGeometry(DataLODSpecific, 1, Geometry{Capsules: []Capsule{{Radius: 2}}})
	c.Update(math.TransformIdentity())

	all := c.CollisionData(0, true)
	assert.Equal(t, 2, len(all.Spheres))
	assert.Equal(t, 1, len(all.Capsules))
	assert.InDelta(t, 1.0, all.Capsules[0].Radius, 1e-6)

	noExternal := c.CollisionData(1, false)
	assert.Equal(t, 1, len(noExternal.Spheres))
	assert.InDelta(t, 2.0, noExternal.Capsules[0].Radius, 1e-6)

	noLOD := c.CollisionData(IndexNone, false)
	assert.Equal(t, 0, len(noLOD.Capsules))

	c.ClearExternal()
	c.Update(math.TransformIdentity())
	assert.Equal(t, 1, len(c.CollisionData(0, true).Spheres))
}

func TestColliderTransforms(t *testing.T) {
	c := NewCollider()
	c.SetGeometry(DataLODIndependent, 0, Geometry{
		Spheres: []Sphere{{Center: math.Vec3{X: 1, Y: 0, Z: 0}, Radius: 0.5}},
	})

	tr := math.Transform{
		Rotation:    math.QuatIdentity(),
		Translation: math.Vec3{X: 0, Y: 5, Z: 0},
	}
	c.Update(tr)

	got := c.CollisionData(IndexNone, false)
	require.Len(t, got.Spheres, 1)
	assert.Equal(t, math.Vec3{X: 1, Y: 5, Z: 0}, got.Spheres[0].Center)
}

func TestResolvePushesOut(t *testing.T) {
	p := []math.Vec3{{X: 0, Y: 0.5, Z: 0}, {X: 0, Y: 0.5, Z: 0}}
	x := []math.Vec3{{X: 0, Y: 0.5, Z: 0}, {X: 0, Y: 0.5, Z: 0}}
	invM := []float32{1, 0} // second particle kinematic

	geom := Geometry{Spheres: []Sphere{{Center: math.Vec3{}, Radius: 1}}}
	Resolve(p, x, invM, 0, 2, geom, 0.1, 0)

	assert.InDelta(t, 1.1, p[0].Length(), 1e-5, "dynamic particle projected to shell")
	assert.Equal(t, math.Vec3{X: 0, Y: 0.5, Z: 0}, p[1], "kinematic particle untouched")
}

func TestResolveFrictionDampsSlide(t *testing.T) {
	geom := Geometry{Spheres: []Sphere{{Center: math.Vec3{X: 0, Y: -10, Z: 0}, Radius: 10}}}

	run := func(friction float32) float32 {
		p := []math.Vec3{{X: 0.5, Y: -0.05, Z: 0}} // slid along the surface, slightly sunk
		x := []math.Vec3{{X: 0, Y: 0, Z: 0}}
		Resolve(p, x, []float32{1}, 0, 1, geom, 0, friction)
		return p[0].X
	}

	slidNoFriction := run(0)
	slidFriction := run(2)
	assert.Less(t, slidFriction, slidNoFriction, "friction removes tangential motion")
	assert.GreaterOrEqual(t, slidFriction, float32(0), "friction never reverses motion")
}
