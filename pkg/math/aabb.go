package math

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns a box that contains nothing; growing it with any point
// makes it that point.
func EmptyAABB() AABB {
	const big = 3.4e38
	return AABB{
		Min: Vec3{big, big, big},
		Max: Vec3{-big, -big, -big},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Grow extends the box to include the point p.
func (b AABB) Grow(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both b and other.
func (b AABB) Union(other AABB) AABB {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Contains reports whether p lies inside or on the boundary of the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the center point of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extents returns the half-size of the box along each axis.
func (b AABB) Extents() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Translate returns the box shifted by offset.
func (b AABB) Translate(offset Vec3) AABB {
	if b.IsEmpty() {
		return b
	}
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Pad expands the box by the given amount on all sides.
func (b AABB) Pad(padding float32) AABB {
	p := Vec3{padding, padding, padding}
	return AABB{Min: b.Min.Sub(p), Max: b.Max.Add(p)}
}
