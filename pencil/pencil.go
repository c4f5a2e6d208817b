// Package pencil implements the pencil decomposition of dense
// N-dimensional grids over a Cartesian process grid, and the
// transpose, gather and scatter operations that re-partition data
// between decompositions without materializing the global array on
// any single process.
//
// A pencil keeps exactly one grid axis whole ("contiguous") on every
// process and splits each remaining axis across one dimension of an
// (M-1)-dimensional process grid. Redistribution between two pencils
// with different contiguous axes is a single variable-count
// all-to-all over the minimal line of processes that actually
// exchanges data.
package pencil

import (
	"fmt"

	"github.com/preiter93/pencil-decomp/comm"
	"github.com/preiter93/pencil-decomp/dist"
)

// Pencil is one decomposition of an M-dimensional grid: per-axis
// point distributions, the contiguous axis, and the Cartesian
// communicator the decomposition lives on. A Pencil is immutable
// after construction and safe to share.
type Pencil struct {
	// Cart is the Cartesian process topology, of dimensionality M-1.
	Cart *comm.CartComm
	// Dists holds one distribution per grid axis.
	Dists []dist.Distribution
	// AxisContig is the single axis kept whole on every process.
	AxisContig int

	nGlobal []int
}

// New builds the pencil decomposition of a grid with global shape
// nGlobal that keeps axisContig whole and splits every other axis, in
// order, across the dimensions of a Cartesian process grid with the
// given extents and periodicity.
//
// Configuration errors (dimensionality mismatches, a process grid
// whose size differs from the group size, axes too short to split)
// are unrecoverable: the decomposition cannot exist and New returns
// an error.
func New(c *comm.Comm, nGlobal []int, axisContig int, cartDims []int, periods []bool) (*Pencil, error) {
	m := len(nGlobal)
	if m < 2 {
		return nil, fmt.Errorf("pencil: grid must have at least 2 axes, got %d", m)
	}
	if axisContig < 0 || axisContig >= m {
		return nil, fmt.Errorf("pencil: contiguous axis %d out of range for %d-d grid", axisContig, m)
	}
	if len(cartDims) != m-1 {
		return nil, fmt.Errorf("pencil: process grid must have %d dimensions for a %d-d grid, got %d",
			m-1, m, len(cartDims))
	}
	cart, err := comm.NewCart(c, cartDims, periods)
	if err != nil {
		return nil, err
	}
	coords := cart.Coords()

	dists := make([]dist.Distribution, m)
	d := 0
	for axis, n := range nGlobal {
		if axis == axisContig {
			dists[axis] = dist.Contiguous(n)
			continue
		}
		if n < cartDims[d] {
			return nil, fmt.Errorf("pencil: axis %d of length %d cannot be split over %d processes",
				axis, n, cartDims[d])
		}
		dists[axis] = dist.Split(n, cartDims[d], coords[d])
		d++
	}
	return &Pencil{
		Cart:       cart,
		Dists:      dists,
		AxisContig: axisContig,
		nGlobal:    append([]int(nil), nGlobal...),
	}, nil
}

// NDims returns the grid dimensionality M.
func (p *Pencil) NDims() int { return len(p.Dists) }

// Shape returns the local per-axis sizes of the data this process
// holds.
func (p *Pencil) Shape() []int {
	shape := make([]int, len(p.Dists))
	for i, d := range p.Dists {
		shape[i] = d.Sz
	}
	return shape
}

// ShapeGlobal returns the full grid shape.
func (p *Pencil) ShapeGlobal() []int {
	return append([]int(nil), p.nGlobal...)
}

// Length returns the number of grid points this process holds.
func (p *Pencil) Length() int {
	n := 1
	for _, d := range p.Dists {
		n *= d.Sz
	}
	return n
}

// cartDim maps a grid axis to its process-grid dimension. Axes map in
// order, skipping the contiguous axis, which is never split; asking
// for it is a programmer error and panics.
func (p *Pencil) cartDim(axis int) int {
	if axis < 0 || axis >= len(p.Dists) {
		panic(fmt.Sprintf("pencil: axis %d out of range for %d-d grid", axis, len(p.Dists)))
	}
	switch {
	case axis < p.AxisContig:
		return axis
	case axis > p.AxisContig:
		return axis - 1
	}
	panic(fmt.Sprintf("pencil: axis %d is contiguous and not mapped to the process grid", axis))
}

// NProcsAlongAxis returns the number of processes the given axis is
// split over. Panics if axis is the contiguous axis.
func (p *Pencil) NProcsAlongAxis(axis int) int {
	return p.Cart.Dims()[p.cartDim(axis)]
}

// SubcommAlongAxis derives the sub-group of processes that vary only
// along the process-grid dimension splitting the given axis, all
// other coordinates held fixed. This is the minimal group that must
// participate in a collective touching that axis. Panics if axis is
// the contiguous axis.
func (p *Pencil) SubcommAlongAxis(axis int) *comm.CartComm {
	retain := make([]bool, p.Cart.NDims())
	retain[p.cartDim(axis)] = true
	return p.Cart.Sub(retain)
}
