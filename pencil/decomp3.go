package pencil

import (
	"fmt"

	"github.com/preiter93/pencil-decomp/comm"
)

// Decomp3 owns the three pencils of a 3-D grid over a 2-D process
// grid, each contiguous along a different axis. Local data travels as
// flat row-major []float64 shaped like the relevant pencil's Shape().
//
// Transposes move between pencils whose contiguous axes are adjacent
// (x<->y and y<->z); x and z split the middle axis over different
// process-grid dimensions, so a direct x<->z exchange is one of the
// unsupported all-to-all-w configurations.
type Decomp3 struct {
	// NGlobal is the full grid shape [n0, n1, n2].
	NGlobal [3]int
	// X, Y, Z keep axes 0, 1 and 2 contiguous respectively.
	X, Y, Z *Pencil
}

// NewDecomp3 builds all three pencils over a cartDims[0] x cartDims[1]
// process grid. The product of cartDims must equal the group size.
func NewDecomp3(c *comm.Comm, nGlobal [3]int, cartDims [2]int, periods [2]bool) (*Decomp3, error) {
	x, err := New(c, nGlobal[:], 0, cartDims[:], periods[:])
	if err != nil {
		return nil, err
	}
	y, err := New(c, nGlobal[:], 1, cartDims[:], periods[:])
	if err != nil {
		return nil, err
	}
	z, err := New(c, nGlobal[:], 2, cartDims[:], periods[:])
	if err != nil {
		return nil, err
	}
	return &Decomp3{NGlobal: nGlobal, X: x, Y: y, Z: z}, nil
}

// TransposeXToY redistributes x-pencil data into y-pencil layout.
func (d *Decomp3) TransposeXToY(snd, rcv []float64) error {
	return Transpose(d.X, d.Y, snd, rcv)
}

// TransposeYToX redistributes y-pencil data into x-pencil layout.
func (d *Decomp3) TransposeYToX(snd, rcv []float64) error {
	return Transpose(d.Y, d.X, snd, rcv)
}

// TransposeYToZ redistributes y-pencil data into z-pencil layout.
func (d *Decomp3) TransposeYToZ(snd, rcv []float64) error {
	return Transpose(d.Y, d.Z, snd, rcv)
}

// TransposeZToY redistributes z-pencil data into y-pencil layout.
func (d *Decomp3) TransposeZToY(snd, rcv []float64) error {
	return Transpose(d.Z, d.Y, snd, rcv)
}

// GatherX assembles x-pencil data into the full global array on the
// world root. The gather runs in two stages: first along the lower
// split axis inside each line of processes, then along the remaining
// split axis among the line roots. Only the world root needs rcv.
func (d *Decomp3) GatherX(snd, rcv []float64) error { return d.gatherRoot(d.X, snd, rcv) }

// GatherY assembles y-pencil data on the world root.
func (d *Decomp3) GatherY(snd, rcv []float64) error { return d.gatherRoot(d.Y, snd, rcv) }

// GatherZ assembles z-pencil data on the world root.
func (d *Decomp3) GatherZ(snd, rcv []float64) error { return d.gatherRoot(d.Z, snd, rcv) }

// ScatterX distributes the global array held by the world root into
// x-pencil layout, the inverse of GatherX. Only the world root needs
// snd.
func (d *Decomp3) ScatterX(snd, rcv []float64) error { return d.scatterRoot(d.X, snd, rcv) }

// ScatterY distributes the global array into y-pencil layout.
func (d *Decomp3) ScatterY(snd, rcv []float64) error { return d.scatterRoot(d.Y, snd, rcv) }

// ScatterZ distributes the global array into z-pencil layout.
func (d *Decomp3) ScatterZ(snd, rcv []float64) error { return d.scatterRoot(d.Z, snd, rcv) }

// splitAxes returns the two split axes of p in ascending order.
func splitAxes(p *Pencil) (a, b int) {
	axes := make([]int, 0, 2)
	for axis := range p.Dists {
		if axis != p.AxisContig {
			axes = append(axes, axis)
		}
	}
	return axes[0], axes[1]
}

// gatherRoot assembles pencil data on the world root. Stage one
// gathers axis a onto the root of every line along a; stage two
// gathers axis b among those line roots, whose coordinates are zero
// on a's process-grid dimension. Non-participants return after stage
// one without touching any assembled buffer.
func (d *Decomp3) gatherRoot(p *Pencil, snd, rcv []float64) error {
	if len(snd) != p.Length() {
		return fmt.Errorf("pencil: source length %d does not match pencil shape %v",
			len(snd), p.Shape())
	}
	a, b := splitAxes(p)

	sub1 := p.SubcommAlongAxis(a)
	shape1 := p.Shape()
	shape1[a] = d.NGlobal[a]
	var buf1 []float64
	if sub1.Rank() == 0 {
		buf1 = make([]float64, prod(shape1))
	}
	if err := gatherBlocks(sub1.Comm, snd, p.Shape(), buf1, a, p.Dists[a]); err != nil {
		return err
	}
	if sub1.Rank() != 0 {
		return nil
	}

	sub2 := p.SubcommAlongAxis(b)
	return gatherBlocks(sub2.Comm, buf1, shape1, rcv, b, p.Dists[b])
}

// scatterRoot distributes the global array from the world root into
// pencil layout, reversing the two gather stages: axis b among the
// line roots first, then axis a inside each line.
func (d *Decomp3) scatterRoot(p *Pencil, snd, rcv []float64) error {
	if len(rcv) != p.Length() {
		return fmt.Errorf("pencil: destination length %d does not match pencil shape %v",
			len(rcv), p.Shape())
	}
	a, b := splitAxes(p)

	sub1 := p.SubcommAlongAxis(a)
	shape1 := p.Shape()
	shape1[a] = d.NGlobal[a]
	var buf1 []float64
	if sub1.Rank() == 0 {
		buf1 = make([]float64, prod(shape1))
		sub2 := p.SubcommAlongAxis(b)
		if err := scatterBlocks(sub2.Comm, snd, buf1, shape1, b, p.Dists[b]); err != nil {
			return err
		}
	}
	return scatterBlocks(sub1.Comm, buf1, rcv, p.Shape(), a, p.Dists[a])
}
