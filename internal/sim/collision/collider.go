package collision

import "github.com/drapesim/drape/pkg/math"

// IndexNone marks slots without a valid LOD.
const IndexNone = -1

// DataType partitions collider geometry by lifetime. LOD-independent
// geometry survives LOD switches, external geometry is replaced every frame
// by the host, and LOD-specific geometry only collides while its LOD is
// active.
type DataType int

const (
	DataLODIndependent DataType = iota
	DataExternal
	DataLODSpecific
)

type slotKey struct {
	kind DataType
	lod  int // IndexNone unless kind is DataLODSpecific
}

// Collider holds one cloth's collision geometry in source (bone-local)
// space, partitioned by data type, and refreshes a world-space copy from the
// component transform each frame.
type Collider struct {
	local map[slotKey]Geometry
	world map[slotKey]Geometry

	transform math.Transform
}

// NewCollider creates an empty collider at the identity transform.
func NewCollider() *Collider {
	return &Collider{
		local:     make(map[slotKey]Geometry),
		world:     make(map[slotKey]Geometry),
		transform: math.TransformIdentity(),
	}
}

// SetGeometry replaces the geometry of one slot. lod is ignored unless kind
// is DataLODSpecific.
func (c *Collider) SetGeometry(kind DataType, lod int, geom Geometry) {
	if kind != DataLODSpecific {
		lod = IndexNone
	}
	c.local[slotKey{kind, lod}] = geom
	delete(c.world, slotKey{kind, lod})
}

// ClearExternal drops the per-frame external slot.
func (c *Collider) ClearExternal() {
	delete(c.local, slotKey{DataExternal, IndexNone})
	delete(c.world, slotKey{DataExternal, IndexNone})
}

// Update refreshes the world-space geometry from the current component
// transform. Called once per frame before the solver steps.
func (c *Collider) Update(tr math.Transform) {
	c.transform = tr
	for key, geom := range c.local {
		c.world[key] = geom.Transformed(tr)
	}
}

// CollisionData returns the combined world-space geometry active for the
// given LOD. External geometry is included only when requested.
func (c *Collider) CollisionData(lod int, includeExternal bool) Geometry {
	var out Geometry
	out.Append(c.world[slotKey{DataLODIndependent, IndexNone}])
	if includeExternal {
		out.Append(c.world[slotKey{DataExternal, IndexNone}])
	}
	if lod != IndexNone {
		out.Append(c.world[slotKey{DataLODSpecific, lod}])
	}
	return out
}

// NumPrimitives reports the primitive count over all slots, external
// included.
func (c *Collider) NumPrimitives() int {
	n := 0
	for _, geom := range c.local {
		n += geom.NumPrimitives()
	}
	return n
}
