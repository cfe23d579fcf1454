package mesh

import "github.com/drapesim/drape/pkg/math"

// Grid is a procedural rectangular cloth sheet adapter. The top row is
// pinned (max-distance weight zero) and lower LODs decimate the grid by a
// factor of two per level, so LOD wraps map vertices directly between
// levels. It stands in for a skinned asset in tests and the demo binary.
type Grid struct {
	cols, rows int
	spacing    float32
	numLODs    int

	lodIndex     int
	refBoneIndex int
	refTransform math.Transform

	maxDistance float32
	weightMaps  map[string][]float32 // per base-LOD name overrides, decimated on demand
}

// NewGrid creates a cols x rows sheet with the given rest spacing and LOD
// count. Dimensions of the form 2^k+1 decimate exactly; other dimensions
// clamp at the far edge.
func NewGrid(cols, rows int, spacing float32, numLODs int) *Grid {
	if cols < 2 || rows < 2 {
		panic("mesh: grid needs at least 2x2 vertices")
	}
	if numLODs < 1 {
		numLODs = 1
	}
	return &Grid{
		cols:         cols,
		rows:         rows,
		spacing:      spacing,
		numLODs:      numLODs,
		refBoneIndex: 0,
		refTransform: math.TransformIdentity(),
		maxDistance:  200,
		weightMaps:   make(map[string][]float32),
	}
}

// SetLODIndex sets the LOD the host wants simulated.
func (g *Grid) SetLODIndex(lod int) { g.lodIndex = lod }

// SetReferenceBoneIndex sets the reference bone index reported to readback.
func (g *Grid) SetReferenceBoneIndex(index int) { g.refBoneIndex = index }

// SetReferenceBoneTransform moves the sheet's reference frame, standing in
// for skeletal root motion.
func (g *Grid) SetReferenceBoneTransform(tr math.Transform) { g.refTransform = tr }

// SetMaxDistance sets the default max-distance weight for unpinned vertices.
func (g *Grid) SetMaxDistance(d float32) { g.maxDistance = d }

// SetWeightMap overrides a named weight map at the base LOD. Lower LODs
// sample it by decimation.
func (g *Grid) SetWeightMap(name string, values []float32) {
	g.weightMaps[name] = values
}

// NumLODs implements Adapter.
func (g *Grid) NumLODs() int { return g.numLODs }

// NumPoints implements Adapter.
func (g *Grid) NumPoints(lod int) int {
	c, r := g.lodDims(lod)
	return c * r
}

// Indices implements Adapter.
func (g *Grid) Indices(lod int) []int32 {
	c, r := g.lodDims(lod)
	indices := make([]int32, 0, (c-1)*(r-1)*6)
	for row := 0; row < r-1; row++ {
		for col := 0; col < c-1; col++ {
			i0 := int32(row*c + col)
			i1 := i0 + 1
			i2 := i0 + int32(c)
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return indices
}

// WeightMap implements Adapter.
func (g *Grid) WeightMap(lod int, name string) []float32 {
	c, r := g.lodDims(lod)
	step := 1 << lod

	if base, ok := g.weightMaps[name]; ok {
		out := make([]float32, 0, c*r)
		for row := 0; row < r; row++ {
			for col := 0; col < c; col++ {
				br := min(row*step, g.rows-1)
				bc := min(col*step, g.cols-1)
				out = append(out, base[br*g.cols+bc])
			}
		}
		return out
	}

	if name != WeightMaxDistance {
		return nil
	}
	out := make([]float32, 0, c*r)
	for row := 0; row < r; row++ {
		for col := 0; col < c; col++ {
			if row == 0 {
				out = append(out, 0) // pinned top row
			} else {
				out = append(out, g.maxDistance)
			}
		}
	}
	return out
}

// LODIndex implements Adapter.
func (g *Grid) LODIndex() int { return g.lodIndex }

// ReferenceBoneIndex implements Adapter.
func (g *Grid) ReferenceBoneIndex() int { return g.refBoneIndex }

// ReferenceBoneTransform implements Adapter.
func (g *Grid) ReferenceBoneTransform() math.Transform { return g.refTransform }

// Update implements Adapter: writes the rest sheet transformed by the
// reference frame into the solver's animation-pose buffers for both ranges.
func (g *Grid) Update(pose PoseBuffers, prevLOD, lod, prevOffset, offset int) {
	g.writePose(pose, prevLOD, prevOffset)
	g.writePose(pose, lod, offset)
}

func (g *Grid) writePose(pose PoseBuffers, lod, offset int) {
	if lod == IndexNone || offset == IndexNone {
		return
	}
	c, r := g.lodDims(lod)
	positions := pose.AnimationPositions(offset, c*r)
	normals := pose.AnimationNormals(offset, c*r)
	origin := pose.LocalSpaceLocation()
	normal := g.refTransform.TransformVector(math.Vec3{Y: 1})

	for row := 0; row < r; row++ {
		for col := 0; col < c; col++ {
			world := g.refTransform.TransformPoint(g.restPosition(lod, row, col))
			positions[row*c+col] = world.Sub(origin)
			normals[row*c+col] = normal
		}
	}
}

// WrapDeformLOD implements Adapter. Transitions spanning more than one LOD
// level, or with no valid previous LOD, are refused.
func (g *Grid) WrapDeformLOD(prevLOD, lod int, prevX, prevV []math.Vec3, outX, outV []math.Vec3) bool {
	if prevLOD == IndexNone || lod == IndexNone {
		return false
	}
	delta := lod - prevLOD
	if delta != 1 && delta != -1 {
		return false
	}

	c, r := g.lodDims(lod)
	pc, pr := g.lodDims(prevLOD)

	if delta > 0 {
		// Fine to coarse: each coarse vertex has a direct fine counterpart.
		for row := 0; row < r; row++ {
			for col := 0; col < c; col++ {
				src := min(row*2, pr-1)*pc + min(col*2, pc-1)
				outX[row*c+col] = prevX[src]
				outV[row*c+col] = prevV[src]
			}
		}
		return true
	}

	// Coarse to fine: bilinear interpolation between coarse neighbours.
	for row := 0; row < r; row++ {
		for col := 0; col < c; col++ {
			fr := float32(row) / 2
			fc := float32(col) / 2
			r0 := min(int(fr), pr-1)
			c0 := min(int(fc), pc-1)
			r1 := min(r0+1, pr-1)
			c1 := min(c0+1, pc-1)
			tr := fr - float32(r0)
			tc := fc - float32(c0)

			lerp := func(buf []math.Vec3) math.Vec3 {
				top := buf[r0*pc+c0].Lerp(buf[r0*pc+c1], tc)
				bot := buf[r1*pc+c0].Lerp(buf[r1*pc+c1], tc)
				return top.Lerp(bot, tr)
			}
			outX[row*c+col] = lerp(prevX)
			outV[row*c+col] = lerp(prevV)
		}
	}
	return true
}

// lodDims returns the vertex grid dimensions at the given LOD.
func (g *Grid) lodDims(lod int) (cols, rows int) {
	step := 1 << lod
	return (g.cols-1)/step + 1, (g.rows-1)/step + 1
}

// restPosition returns the rest-pose position of a grid vertex. The sheet
// spans +X across columns and hangs down -Z across rows, with the pinned
// row at the local origin.
func (g *Grid) restPosition(lod, row, col int) math.Vec3 {
	step := 1 << lod
	return math.Vec3{
		X: float32(min(col*step, g.cols-1)) * g.spacing,
		Z: -float32(min(row*step, g.rows-1)) * g.spacing,
	}
}
