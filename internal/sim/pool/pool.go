// Package pool provides the flat particle storage shared by all cloths bound
// to one solver. Particles are allocated in contiguous ranges addressed by
// integer offsets; a range stays allocated for the lifetime of its owning
// LOD and is enabled or disabled as the LOD becomes active or inactive.
package pool

import (
	"fmt"

	"github.com/drapesim/drape/pkg/math"
)

// IndexNone marks an unassigned offset or LOD index.
const IndexNone = -1

// Range describes one allocated span of particles.
type Range struct {
	Offset  int
	Count   int
	GroupID int
	Enabled bool
}

// Pool is the solver-owned particle store, laid out struct-of-arrays.
// InvM == 0 marks a kinematic particle: it is driven by the animation pose
// only and never moved by forces or constraints.
type Pool struct {
	X    []math.Vec3 // current positions
	P    []math.Vec3 // predicted positions
	V    []math.Vec3 // velocities
	N    []math.Vec3 // normals
	InvM []float32   // inverse masses

	ranges []Range
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Size returns the total number of allocated particles.
func (p *Pool) Size() int {
	return len(p.X)
}

// AllocateRange reserves count contiguous particle slots for the given group
// and returns the base offset. The backing storage grows as needed; this
// never fails. New ranges start enabled.
func (p *Pool) AllocateRange(count, groupID int) int {
	offset := len(p.X)
	p.X = append(p.X, make([]math.Vec3, count)...)
	p.P = append(p.P, make([]math.Vec3, count)...)
	p.V = append(p.V, make([]math.Vec3, count)...)
	p.N = append(p.N, make([]math.Vec3, count)...)
	p.InvM = append(p.InvM, make([]float32, count)...)
	p.ranges = append(p.ranges, Range{
		Offset:  offset,
		Count:   count,
		GroupID: groupID,
		Enabled: true,
	})
	return offset
}

// EnableRange toggles whether the particles of a range participate in
// solving and readback. The storage stays allocated so a disabled LOD can be
// reactivated cheaply. Panics if offset does not name an allocated range.
func (p *Pool) EnableRange(offset int, enabled bool) {
	r := p.rangeAt(offset)
	r.Enabled = enabled
}

// RangeEnabled reports whether the range at offset is enabled.
func (p *Pool) RangeEnabled(offset int) bool {
	return p.rangeAt(offset).Enabled
}

// RangeCount returns the particle count of the range at offset.
func (p *Pool) RangeCount(offset int) int {
	return p.rangeAt(offset).Count
}

// GroupID returns the group id of the range at offset.
func (p *Pool) GroupID(offset int) int {
	return p.rangeAt(offset).GroupID
}

// Ranges returns all allocated ranges in allocation order.
func (p *Pool) Ranges() []Range {
	return p.ranges
}

// View returns bounds-checked slices over one range's state, or an error if
// the span does not match an allocated range.
func (p *Pool) View(offset, count int) (x, pred, v, n []math.Vec3, invM []float32, err error) {
	if offset < 0 || count < 0 || offset+count > len(p.X) {
		return nil, nil, nil, nil, nil,
			fmt.Errorf("particle range [%d,%d) outside pool of size %d", offset, offset+count, len(p.X))
	}
	return p.X[offset : offset+count],
		p.P[offset : offset+count],
		p.V[offset : offset+count],
		p.N[offset : offset+count],
		p.InvM[offset : offset+count],
		nil
}

// Reset discards all ranges and particle storage.
func (p *Pool) Reset() {
	p.X = nil
	p.P = nil
	p.V = nil
	p.N = nil
	p.InvM = nil
	p.ranges = nil
}

func (p *Pool) rangeAt(offset int) *Range {
	for i := range p.ranges {
		if p.ranges[i].Offset == offset {
			return &p.ranges[i]
		}
	}
	panic(fmt.Sprintf("pool: no range allocated at offset %d", offset))
}
