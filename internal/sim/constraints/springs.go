package constraints

import (
	"github.com/chewxy/math32"

	"github.com/drapesim/drape/pkg/math"
)

// Spring is a distance constraint over index pairs. It implements both the
// edge constraints and the fast edge-angle form of the bending constraint
// (cross-edge pairs), which differ only in topology.
type Spring struct {
	groupBase

	indices     [][2]int32
	restLengths []float32
	stiffness   float32
	fused       bool
}

// NewSpring builds a spring group with rest lengths measured from the given
// pool-absolute rest positions.
func NewSpring(indices [][2]int32, rest []math.Vec3, stiffness float32, fused bool) *Spring {
	s := &Spring{
		groupBase:   groupBase{enabled: true},
		indices:     indices,
		restLengths: make([]float32, len(indices)),
		stiffness:   stiffness,
		fused:       fused,
	}
	for i, pair := range indices {
		s.restLengths[i] = rest[pair[0]].Distance(rest[pair[1]])
	}
	return s
}

// SetStiffness updates the spring stiffness without rebuilding topology.
func (s *Spring) SetStiffness(stiffness float32) { s.stiffness = stiffness }

// Apply projects every spring once.
func (s *Spring) Apply(p Particles, dt float32) {
	if s.fused {
		for c, pair := range s.indices {
			i, j := pair[0], pair[1]
			wi, wj := p.InvM[i], p.InvM[j]
			w := wi + wj
			if w == 0 {
				continue
			}
			d := p.P[j].Sub(p.P[i])
			length := d.Length()
			if length < 1e-12 {
				continue
			}
			corr := d.Scale(s.stiffness * (length - s.restLengths[c]) / (length * w))
			p.P[i] = p.P[i].Add(corr.Scale(wi))
			p.P[j] = p.P[j].Sub(corr.Scale(wj))
		}
		return
	}
	for c := range s.indices {
		s.applyOne(p, c)
	}
}

func (s *Spring) applyOne(p Particles, c int) {
	i, j := s.indices[c][0], s.indices[c][1]
	wi, wj := p.InvM[i], p.InvM[j]
	w := wi + wj
	if w == 0 {
		return
	}
	d := p.P[j].Sub(p.P[i])
	length := d.Length()
	if length < 1e-12 {
		return
	}
	corr := d.Scale(s.stiffness * (length - s.restLengths[c]) / (length * w))
	p.P[i] = p.P[i].Add(corr.Scale(wi))
	p.P[j] = p.P[j].Sub(corr.Scale(wj))
}

// AxialSpring is the area constraint: a spring between a triangle vertex and
// a point on the opposite edge, placed where the vertex projected at rest.
type AxialSpring struct {
	groupBase

	triangles   [][3]int32
	barys       []float32 // opposite-edge parameter at rest, from index[1] to index[2]
	restLengths []float32
	stiffness   float32
	fused       bool
}

// NewAxialSpring builds one axial spring per triangle from the rest pose.
func NewAxialSpring(triangles [][3]int32, rest []math.Vec3, stiffness float32, fused bool) *AxialSpring {
	a := &AxialSpring{
		groupBase:   groupBase{enabled: true},
		triangles:   triangles,
		barys:       make([]float32, len(triangles)),
		restLengths: make([]float32, len(triangles)),
		stiffness:   stiffness,
		fused:       fused,
	}
	for i, tri := range triangles {
		p0, p1, p2 := rest[tri[0]], rest[tri[1]], rest[tri[2]]
		edge := p2.Sub(p1)
		lenSq := edge.LengthSq()
		bary := float32(0.5)
		if lenSq > 1e-12 {
			bary = clamp01(p0.Sub(p1).Dot(edge) / lenSq)
		}
		a.barys[i] = bary
		a.restLengths[i] = p0.Distance(p1.Lerp(p2, bary))
	}
	return a
}

// Apply projects every axial spring once.
func (a *AxialSpring) Apply(p Particles, dt float32) {
	for c, tri := range a.triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]
		bary := a.barys[c]

		w0 := p.InvM[i0]
		// Edge-point weights follow the barycentric split
		w1 := p.InvM[i1] * (1 - bary)
		w2 := p.InvM[i2] * bary
		w := w0 + w1 + w2
		if w == 0 {
			continue
		}

		axial := p.P[i1].Lerp(p.P[i2], bary)
		d := axial.Sub(p.P[i0])
		length := d.Length()
		if length < 1e-12 {
			continue
		}
		lambda := a.stiffness * (length - a.restLengths[c]) / (length * w)
		corr := d.Scale(lambda)

		p.P[i0] = p.P[i0].Add(corr.Scale(w0))
		p.P[i1] = p.P[i1].Sub(corr.Scale(w1))
		p.P[i2] = p.P[i2].Sub(corr.Scale(w2))
	}
}

// Bending is the true dihedral bending constraint over 4-particle elements
// (two edge vertices followed by the two wing vertices).
type Bending struct {
	groupBase

	elements   [][4]int32
	restAngles []float32
	stiffness  float32
}

// NewBending builds dihedral elements with rest angles from the rest pose.
func NewBending(elements [][4]int32, rest []math.Vec3, stiffness float32) *Bending {
	b := &Bending{
		groupBase:  groupBase{enabled: true},
		elements:   elements,
		restAngles: make([]float32, len(elements)),
		stiffness:  stiffness,
	}
	for i, e := range elements {
		b.restAngles[i] = dihedralAngle(rest[e[0]], rest[e[1]], rest[e[2]], rest[e[3]])
	}
	return b
}

// Apply projects every dihedral element once.
func (b *Bending) Apply(p Particles, dt float32) {
	for c, e := range b.elements {
		i1, i2, i3, i4 := e[0], e[1], e[2], e[3]

		// Work relative to p1
		p2 := p.P[i2].Sub(p.P[i1])
		p3 := p.P[i3].Sub(p.P[i1])
		p4 := p.P[i4].Sub(p.P[i1])

		c23 := p2.Cross(p3)
		c24 := p2.Cross(p4)
		l23 := c23.Length()
		l24 := c24.Length()
		if l23 < 1e-9 || l24 < 1e-9 {
			continue
		}
		n1 := c23.Scale(1 / l23)
		n2 := c24.Scale(1 / l24)
		d := clamp(n1.Dot(n2), -1, 1)

		q3 := p2.Cross(n2).Add(n1.Cross(p2).Scale(d)).Scale(1 / l23)
		q4 := p2.Cross(n1).Add(n2.Cross(p2).Scale(d)).Scale(1 / l24)
		q2 := p3.Cross(n2).Add(n1.Cross(p3).Scale(d)).Scale(-1 / l23).
			Sub(p4.Cross(n1).Add(n2.Cross(p4).Scale(d)).Scale(1 / l24))
		q1 := q2.Neg().Sub(q3).Sub(q4)

		w1, w2, w3, w4 := p.InvM[i1], p.InvM[i2], p.InvM[i3], p.InvM[i4]
		denom := w1*q1.LengthSq() + w2*q2.LengthSq() + w3*q3.LengthSq() + w4*q4.LengthSq()
		if denom < 1e-12 {
			continue
		}

		sinTerm := math32.Sqrt(1 - d*d)
		scale := -b.stiffness * sinTerm * (math32.Acos(d) - b.restAngles[c]) / denom

		p.P[i1] = p.P[i1].Add(q1.Scale(scale * w1))
		p.P[i2] = p.P[i2].Add(q2.Scale(scale * w2))
		p.P[i3] = p.P[i3].Add(q3.Scale(scale * w3))
		p.P[i4] = p.P[i4].Add(q4.Scale(scale * w4))
	}
}

// Volume preserves the signed volume enclosed by the triangle surface.
type Volume struct {
	groupBase

	triangles  [][3]int32
	restVolume float32
	stiffness  float32
	grads      []math.Vec3 // scratch, one per referenced particle span
	lo, hi     int32
}

// NewVolume builds a surface volume constraint from the rest pose.
func NewVolume(triangles [][3]int32, rest []math.Vec3, stiffness float32) *Volume {
	v := &Volume{
		groupBase: groupBase{enabled: true},
		triangles: triangles,
		stiffness: stiffness,
	}
	v.lo, v.hi = indexSpan(triangles)
	v.grads = make([]math.Vec3, v.hi-v.lo+1)
	v.restVolume = signedVolume(triangles, rest)
	return v
}

// Apply projects the volume constraint once.
func (v *Volume) Apply(p Particles, dt float32) {
	vol := signedVolume(v.triangles, p.P)
	c := vol - v.restVolume

	for i := range v.grads {
		v.grads[i] = math.Vec3{}
	}
	for _, tri := range v.triangles {
		p0, p1, p2 := p.P[tri[0]], p.P[tri[1]], p.P[tri[2]]
		v.grads[tri[0]-v.lo] = v.grads[tri[0]-v.lo].Add(p1.Cross(p2))
		v.grads[tri[1]-v.lo] = v.grads[tri[1]-v.lo].Add(p2.Cross(p0))
		v.grads[tri[2]-v.lo] = v.grads[tri[2]-v.lo].Add(p0.Cross(p1))
	}

	var denom float32
	for i, g := range v.grads {
		denom += p.InvM[int32(i)+v.lo] * g.LengthSq()
	}
	if denom < 1e-12 {
		return
	}

	lambda := v.stiffness * c / denom
	for i, g := range v.grads {
		idx := int32(i) + v.lo
		p.P[idx] = p.P[idx].Sub(g.Scale(lambda * p.InvM[idx]))
	}
}

func signedVolume(triangles [][3]int32, positions []math.Vec3) float32 {
	var vol float32
	for _, tri := range triangles {
		vol += positions[tri[0]].Cross(positions[tri[1]]).Dot(positions[tri[2]])
	}
	return vol / 6
}

func indexSpan(triangles [][3]int32) (lo, hi int32) {
	lo, hi = triangles[0][0], triangles[0][0]
	for _, tri := range triangles {
		for _, idx := range tri {
			if idx < lo {
				lo = idx
			}
			if idx > hi {
				hi = idx
			}
		}
	}
	return lo, hi
}

func dihedralAngle(e1, e2, w1, w2 math.Vec3) float32 {
	p2 := e2.Sub(e1)
	p3 := w1.Sub(e1)
	p4 := w2.Sub(e1)
	n1 := p2.Cross(p3).Normalize()
	n2 := p2.Cross(p4).Normalize()
	return math32.Acos(clamp(n1.Dot(n2), -1, 1))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float32) float32 { return clamp(v, 0, 1) }
