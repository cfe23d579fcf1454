package mesh

import "github.com/drapesim/drape/pkg/math"

// Weight map names understood by the constraint builder. Each map is a
// per-vertex scalar array supplied by the adapter.
const (
	WeightMaxDistance      = "max_distance"
	WeightBackstopDistance = "backstop_distance"
	WeightBackstopRadius   = "backstop_radius"
	WeightAnimDrive        = "anim_drive"
)

// PoseBuffers is the write surface an adapter uses to skin animation
// positions and normals directly into a solver's buffers.
type PoseBuffers interface {
	// AnimationPositions returns the skinned-pose position slice for the
	// given particle range.
	AnimationPositions(offset, count int) []math.Vec3
	// AnimationNormals returns the skinned-pose normal slice for the given
	// particle range.
	AnimationNormals(offset, count int) []math.Vec3
	// LocalSpaceLocation returns the solver's floating origin. Poses are
	// written relative to it.
	LocalSpaceLocation() math.Vec3
}

// Adapter supplies per-LOD topology, weight maps and skinned animation poses
// for one cloth. The solver treats it as a read-only oracle; it is owned by
// external asset code.
type Adapter interface {
	// NumLODs returns the number of levels of detail.
	NumLODs() int
	// NumPoints returns the particle count of the given LOD.
	NumPoints(lod int) int
	// Indices returns the triangle index list of the given LOD.
	Indices(lod int) []int32
	// WeightMap returns the named per-vertex scalar map for the given LOD,
	// or nil if the map is not authored.
	WeightMap(lod int, name string) []float32
	// LODIndex returns the LOD the host wants simulated this frame.
	LODIndex() int
	// ReferenceBoneIndex returns the skeletal bone the cloth's reference
	// space is tied to.
	ReferenceBoneIndex() int
	// ReferenceBoneTransform returns the current component-space transform
	// of the reference bone.
	ReferenceBoneTransform() math.Transform
	// Update skins positions and normals into the solver's animation-pose
	// buffers for both the previous and the new LOD ranges. Ranges with
	// offset IndexNone are skipped.
	Update(pose PoseBuffers, prevLOD, lod, prevOffset, offset int)
	// WrapDeformLOD transfers simulated positions and velocities from the
	// previous LOD's topology onto the new one. It reports false when the
	// transition cannot be mapped (LOD delta larger than one, or no valid
	// previous LOD), in which case the caller must reset the cloth.
	WrapDeformLOD(prevLOD, lod int, prevX, prevV []math.Vec3, outX, outV []math.Vec3) bool
}
