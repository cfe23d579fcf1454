// Package collision provides the collision primitives a cloth collides
// against, the per-cloth collider holding them in partitioned slots, and the
// position-based response projecting particles out of them.
package collision

import "github.com/drapesim/drape/pkg/math"

// Sphere is a collision sphere in collider-local space.
type Sphere struct {
	Center math.Vec3
	Radius float32
}

// Capsule is a collision capsule spanning the segment A-B.
type Capsule struct {
	A, B   math.Vec3
	Radius float32
}

// Plane is a half-space boundary. Points x with Dot(Normal, x) <= Distance
// are inside.
type Plane struct {
	Normal   math.Vec3
	Distance float32
}

// Convex is an intersection of half-spaces. A point is inside when it is
// inside every plane.
type Convex struct {
	Planes []Plane
}

// project returns the corrected position and contact normal for a particle
// closer to the sphere surface than margin, and whether contact occurred.
func (s Sphere) project(p math.Vec3, margin float32) (math.Vec3, math.Vec3, bool) {
	d := p.Sub(s.Center)
	distSq := d.LengthSq()
	limit := s.Radius + margin
	if distSq >= limit*limit {
		return p, math.Vec3{}, false
	}
	dist := d.Length()
	var n math.Vec3
	if dist < 1e-12 {
		n = math.Vec3{Z: 1} // dead center, pick an arbitrary direction
	} else {
		n = d.Scale(1 / dist)
	}
	return s.Center.Add(n.Scale(limit)), n, true
}

func (c Capsule) project(p math.Vec3, margin float32) (math.Vec3, math.Vec3, bool) {
	seg := c.B.Sub(c.A)
	t := float32(0)
	if lenSq := seg.LengthSq(); lenSq > 1e-12 {
		t = p.Sub(c.A).Dot(seg) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	closest := c.A.Add(seg.Scale(t))
	return Sphere{Center: closest, Radius: c.Radius}.project(p, margin)
}

func (cv Convex) project(p math.Vec3, margin float32) (math.Vec3, math.Vec3, bool) {
	if len(cv.Planes) == 0 {
		return p, math.Vec3{}, false
	}
	// Deepest plane decides the push direction. A particle outside any plane
	// by more than the margin is not in contact.
	var deepest Plane
	maxPhi := float32(0)
	for i, pl := range cv.Planes {
		phi := pl.Normal.Dot(p) - pl.Distance
		if phi >= margin {
			return p, math.Vec3{}, false
		}
		if i == 0 || phi > maxPhi {
			maxPhi = phi
			deepest = pl
		}
	}
	n := deepest.Normal
	return p.Add(n.Scale(margin - maxPhi)), n, true
}

// transformed returns the primitive mapped through tr.
func (s Sphere) transformed(tr math.Transform) Sphere {
	return Sphere{Center: tr.TransformPoint(s.Center), Radius: s.Radius}
}

func (c Capsule) transformed(tr math.Transform) Capsule {
	return Capsule{
		A:      tr.TransformPoint(c.A),
		B:      tr.TransformPoint(c.B),
		Radius: c.Radius,
	}
}

func (cv Convex) transformed(tr math.Transform) Convex {
	planes := make([]Plane, len(cv.Planes))
	for i, pl := range cv.Planes {
		n := tr.TransformVector(pl.Normal)
		// A point on the original plane maps to a point on the new one
		point := tr.TransformPoint(pl.Normal.Scale(pl.Distance))
		planes[i] = Plane{Normal: n, Distance: n.Dot(point)}
	}
	return Convex{Planes: planes}
}
