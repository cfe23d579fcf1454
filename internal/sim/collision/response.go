package collision

import "github.com/drapesim/drape/pkg/math"

// Resolve projects every dynamic particle in [offset, offset+count) out of
// the geometry, keeping a thickness gap between cloth and surface. Friction
// removes tangential motion relative to the pre-step position x,
// proportionally to the contact depth, capped at full stick.
func Resolve(p, x []math.Vec3, invM []float32, offset, count int, geom Geometry, thickness, friction float32) {
	for i := offset; i < offset+count; i++ {
		if invM[i] == 0 {
			continue
		}
		pos := p[i]
		contact := false
		var normal math.Vec3
		var depth float32

		for _, s := range geom.Spheres {
			if proj, n, hit := s.project(pos, thickness); hit {
				depth += proj.Sub(pos).Length()
				pos, normal, contact = proj, n, true
			}
		}
		for _, c := range geom.Capsules {
			if proj, n, hit := c.project(pos, thickness); hit {
				depth += proj.Sub(pos).Length()
				pos, normal, contact = proj, n, true
			}
		}
		for _, cv := range geom.Convexes {
			if proj, n, hit := cv.project(pos, thickness); hit {
				depth += proj.Sub(pos).Length()
				pos, normal, contact = proj, n, true
			}
		}

		if !contact {
			continue
		}
		p[i] = pos

		if friction > 0 {
			delta := pos.Sub(x[i])
			tangent := delta.Sub(normal.Scale(delta.Dot(normal)))
			tanLen := tangent.Length()
			if tanLen > 1e-12 {
				// Coulomb-style cap: slide resistance grows with depth
				scale := friction * depth / tanLen
				if scale > 1 {
					scale = 1
				}
				p[i] = p[i].Sub(tangent.Scale(scale))
			}
		}
	}
}
