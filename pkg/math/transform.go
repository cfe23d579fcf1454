package math

// Transform is a rigid transform (rotation followed by translation).
// Scale is deliberately not represented; simulation code bakes scale into
// geometry before it reaches a Transform.
type Transform struct {
	Rotation    Quat
	Translation Vec3
}

// TransformIdentity returns the identity transform.
func TransformIdentity() Transform {
	return Transform{Rotation: QuatIdentity()}
}

// TransformPoint transforms the point p into the frame described by t.
func (t Transform) TransformPoint(p Vec3) Vec3 {
	return t.Rotation.Rotate(p).Add(t.Translation)
}

// TransformVector rotates the vector v without translating it.
func (t Transform) TransformVector(v Vec3) Vec3 {
	return t.Rotation.Rotate(v)
}

// InverseTransformPoint maps the point p back out of the frame described by t.
func (t Transform) InverseTransformPoint(p Vec3) Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Translation))
}

// InverseTransformVector rotates the vector v by the inverse rotation of t.
func (t Transform) InverseTransformVector(v Vec3) Vec3 {
	return t.Rotation.Conjugate().Rotate(v)
}

// Mul composes two transforms: the result applies other first, then t.
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Rotation:    t.Rotation.Mul(other.Rotation).Normalize(),
		Translation: t.Rotation.Rotate(other.Translation).Add(t.Translation),
	}
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Rotation:    inv,
		Translation: inv.Rotate(t.Translation).Neg(),
	}
}

// RelativeTo returns the transform mapping from the base frame into t,
// i.e. base.Inverse() composed with t.
func (t Transform) RelativeTo(base Transform) Transform {
	return base.Inverse().Mul(t)
}
