package constraints

// Spherical is the max-distance constraint: each dynamic particle is kept
// within a sphere around its animation-pose position. The radius comes from
// the max-distance weight map scaled by an animatable multiplier.
type Spherical struct {
	groupBase

	offset       int
	maxDistances []float32 // per local particle
	scale        float32
	fused        bool
}

// NewSpherical builds the max-distance constraint for one particle range.
func NewSpherical(offset int, maxDistances []float32, scale float32, fused bool) *Spherical {
	return &Spherical{
		groupBase:    groupBase{enabled: true},
		offset:       offset,
		maxDistances: maxDistances,
		scale:        scale,
		fused:        fused,
	}
}

// SetScale updates the animatable max-distance multiplier.
func (s *Spherical) SetScale(scale float32) { s.scale = scale }

// Apply clamps every dynamic particle to its sphere.
func (s *Spherical) Apply(p Particles, dt float32) {
	for i, maxDist := range s.maxDistances {
		idx := s.offset + i
		if p.InvM[idx] == 0 {
			continue
		}
		radius := maxDist * s.scale
		center := p.AnimPositions[idx]
		d := p.P[idx].Sub(center)
		distSq := d.LengthSq()
		if distSq <= radius*radius {
			continue
		}
		p.P[idx] = center.Add(d.Scale(radius / d.Length()))
	}
}

// Backstop is the one-sided sphere constraint keeping cloth from sinking
// through the body silhouette. The sphere sits behind the animation surface
// along the inverted pose normal. The legacy formula does not add the
// backstop radius to the center's distance term; the non-legacy one does.
type Backstop struct {
	groupBase

	offset    int
	distances []float32
	radii     []float32
	legacy    bool
}

// NewBackstop builds the backstop constraint for one particle range.
func NewBackstop(offset int, distances, radii []float32, legacy bool) *Backstop {
	return &Backstop{
		groupBase: groupBase{enabled: true},
		offset:    offset,
		distances: distances,
		radii:     radii,
		legacy:    legacy,
	}
}

// Apply pushes every dynamic particle out of its backstop sphere.
func (b *Backstop) Apply(p Particles, dt float32) {
	for i := range b.distances {
		idx := b.offset + i
		if p.InvM[idx] == 0 {
			continue
		}
		radius := b.radii[i]
		if radius <= 0 {
			continue
		}
		centerDist := b.distances[i]
		if !b.legacy {
			centerDist += radius
		}
		center := p.AnimPositions[idx].Sub(p.AnimNormals[idx].Scale(centerDist))

		d := p.P[idx].Sub(center)
		distSq := d.LengthSq()
		if distSq >= radius*radius {
			continue
		}
		length := d.Length()
		if length < 1e-12 {
			// Dead center: push out along the pose normal
			p.P[idx] = center.Add(p.AnimNormals[idx].Scale(radius))
			continue
		}
		p.P[idx] = center.Add(d.Scale(radius / length))
	}
}

// AnimDrive springs dynamic particles toward the animation pose, scaled by
// the anim-drive weight map and an animatable spring stiffness.
type AnimDrive struct {
	groupBase

	offset      int
	multipliers []float32
	stiffness   float32
}

// NewAnimDrive builds the anim-drive constraint for one particle range.
func NewAnimDrive(offset int, multipliers []float32, stiffness float32) *AnimDrive {
	return &AnimDrive{
		groupBase:   groupBase{enabled: true},
		offset:      offset,
		multipliers: multipliers,
		stiffness:   stiffness,
	}
}

// SetStiffness updates the animatable spring stiffness.
func (a *AnimDrive) SetStiffness(stiffness float32) { a.stiffness = stiffness }

// Apply pulls every dynamic particle toward its pose position.
func (a *AnimDrive) Apply(p Particles, dt float32) {
	for i, mult := range a.multipliers {
		idx := a.offset + i
		if p.InvM[idx] == 0 {
			continue
		}
		t := clamp01(a.stiffness * mult)
		p.P[idx] = p.P[idx].Lerp(p.AnimPositions[idx], t)
	}
}

// ShapeTarget is the uniform-stiffness variant of the pose spring, used to
// hold the cloth near its skinned shape without a weight map.
type ShapeTarget struct {
	groupBase

	offset    int
	count     int
	stiffness float32
}

// NewShapeTarget builds the shape-target constraint for one particle range.
func NewShapeTarget(offset, count int, stiffness float32) *ShapeTarget {
	return &ShapeTarget{
		groupBase: groupBase{enabled: true},
		offset:    offset,
		count:     count,
		stiffness: stiffness,
	}
}

// Apply pulls every dynamic particle toward its pose position.
func (s *ShapeTarget) Apply(p Particles, dt float32) {
	t := clamp01(s.stiffness)
	for i := 0; i < s.count; i++ {
		idx := s.offset + i
		if p.InvM[idx] == 0 {
			continue
		}
		p.P[idx] = p.P[idx].Lerp(p.AnimPositions[idx], t)
	}
}
