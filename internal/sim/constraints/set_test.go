package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drapesim/drape/internal/sim/mesh"
	"github.com/drapesim/drape/pkg/math"
)

func quadSet(offset int) (*Set, []math.Vec3, []float32) {
	// Two triangles sharing edge (1,2)
	rest := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}}
	invM := []float32{0, 1, 1, 1}
	topo := mesh.NewTopology(4, []int32{0, 1, 2, 1, 3, 2})
	return NewSet(topo, offset, rest, invM, DefaultKernels()), rest, invM
}

func TestSetRuleOrder(t *testing.T) {
	s, _, _ := quadSet(0)
	s.SetMaximumDistanceConstraints([]float32{0, 1, 1, 1}, 1)
	s.SetEdgeConstraints(1)
	s.SetAnimDriveConstraints([]float32{1, 1, 1, 1}, 0.5)
	s.SetBendingConstraints(1, false)
	s.CreateRules()

	rules := s.Rules()
	require.Len(t, rules, 4)
	// Fixed execution order regardless of configuration order
	assert.Same(t, Group(s.Edge), rules[0])
	assert.Same(t, Group(s.BendingFast), rules[1])
	assert.Same(t, Group(s.MaxDistance), rules[2])
	assert.Same(t, Group(s.Drive), rules[3])
}

func TestSetCreateRulesTwicePanics(t *testing.T) {
	s, _, _ := quadSet(0)
	s.SetEdgeConstraints(1)
	s.CreateRules()
	assert.Panics(t, func() { s.CreateRules() })
}

func TestSetOffsetShifting(t *testing.T) {
	const offset = 32
	s, rest, invM := quadSet(offset)
	s.SetEdgeConstraints(1)
	s.CreateRules()

	// Build a pool-sized particle view with the cloth placed at its offset
	n := offset + len(rest)
	p := Particles{
		X:             make([]math.Vec3, n),
		P:             make([]math.Vec3, n),
		V:             make([]math.Vec3, n),
		InvM:          make([]float32, n),
		AnimPositions: make([]math.Vec3, n),
		AnimNormals:   make([]math.Vec3, n),
	}
	copy(p.P[offset:], rest)
	copy(p.X[offset:], rest)
	copy(p.InvM[offset:], invM)

	// Stretch one free particle; only pool indices at or above the offset move
	p.P[offset+1] = math.Vec3{X: 2, Y: 0, Z: 0}
	for i := 0; i < 50; i++ {
		for _, r := range s.Rules() {
			r.Apply(p, 1.0/60)
		}
	}

	for i := 0; i < offset; i++ {
		assert.Equal(t, math.Vec3{}, p.P[i], "particle %d outside the range moved", i)
	}
	assert.InDelta(t, 1.0, p.P[offset].Distance(p.P[offset+1]), 1e-3)
}

func TestSetBendingVariants(t *testing.T) {
	s, _, _ := quadSet(0)
	s.SetBendingConstraints(1, true)
	assert.NotNil(t, s.BendingExact)
	assert.Nil(t, s.BendingFast)

	s2, _, _ := quadSet(0)
	s2.SetBendingConstraints(1, false)
	assert.Nil(t, s2.BendingExact)
	assert.NotNil(t, s2.BendingFast)
}

func TestSetVolumeVariants(t *testing.T) {
	s, _, _ := quadSet(0)
	s.SetVolumeConstraints(1, false)
	assert.NotNil(t, s.SurfaceVolume)
	assert.Nil(t, s.ThinShell)

	s2, _, _ := quadSet(0)
	s2.SetVolumeConstraints(1, true)
	assert.Nil(t, s2.SurfaceVolume)
	assert.NotNil(t, s2.ThinShell)
}

func TestSetEnableToggle(t *testing.T) {
	s, rest, invM := quadSet(0)
	s.SetEdgeConstraints(1)
	s.SetSelfCollisionConstraints(0.01, 1)
	s.CreateRules()

	s.Enable(false)
	for _, r := range s.Rules() {
		assert.False(t, r.Enabled())
	}
	assert.False(t, s.PostRule().Enabled())

	// Disabled groups still expose Apply; the caller checks Enabled first.
	p := particlesFor(rest, invM)
	p.P[1] = math.Vec3{X: 5, Y: 0, Z: 0}

	s.Enable(true)
	for _, r := range s.Rules() {
		assert.True(t, r.Enabled())
	}
}

func TestSetPostRule(t *testing.T) {
	s, _, _ := quadSet(0)
	s.SetEdgeConstraints(1)
	s.CreateRules()
	assert.Nil(t, s.PostRule(), "no self-collision configured")

	s2, _, _ := quadSet(0)
	s2.SetSelfCollisionConstraints(0.01, 2)
	s2.CreateRules()
	require.NotNil(t, s2.PostRule())
	assert.Empty(t, s2.Rules(), "self-collision is not part of the rule list")
}
