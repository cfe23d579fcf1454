package collision

import "github.com/drapesim/drape/pkg/math"

// Geometry is a flat collection of collision primitives, the unit of
// exchange between collider slots and the solver.
type Geometry struct {
	Spheres  []Sphere
	Capsules []Capsule
	Convexes []Convex
}

// Append adds all of other's primitives to g.
func (g *Geometry) Append(other Geometry) {
	g.Spheres = append(g.Spheres, other.Spheres...)
	g.Capsules = append(g.Capsules, other.Capsules...)
	g.Convexes = append(g.Convexes, other.Convexes...)
}

// Reset empties the collection, keeping capacity.
func (g *Geometry) Reset() {
	g.Spheres = g.Spheres[:0]
	g.Capsules = g.Capsules[:0]
	g.Convexes = g.Convexes[:0]
}

// NumPrimitives returns the total primitive count.
func (g Geometry) NumPrimitives() int {
	return len(g.Spheres) + len(g.Capsules) + len(g.Convexes)
}

// Transformed returns a copy of the geometry mapped through tr.
func (g Geometry) Transformed(tr math.Transform) Geometry {
	out := Geometry{
		Spheres:  make([]Sphere, len(g.Spheres)),
		Capsules: make([]Capsule, len(g.Capsules)),
		Convexes: make([]Convex, len(g.Convexes)),
	}
	for i, s := range g.Spheres {
		out.Spheres[i] = s.transformed(tr)
	}
	for i, c := range g.Capsules {
		out.Capsules[i] = c.transformed(tr)
	}
	for i, cv := range g.Convexes {
		out.Convexes[i] = cv.transformed(tr)
	}
	return out
}
