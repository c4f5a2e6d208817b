package pencil

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/preiter93/pencil-decomp/comm"
)

// Decomp2 owns the two pencils of a 2-D grid over a 1-D process
// grid: the x-pencil keeps axis 0 whole and splits axis 1, the
// y-pencil the reverse. Local data travels as *mat.Dense shaped like
// the relevant pencil; gathered data as *mat.Dense of the global
// shape. The pencils are built once and never mutated.
type Decomp2 struct {
	// NGlobal is the full grid shape [n0, n1].
	NGlobal [2]int
	// X keeps axis 0 contiguous, Y keeps axis 1 contiguous.
	X, Y *Pencil
}

// NewDecomp2 builds both pencils of a 2-D decomposition over nprocs
// processes. nprocs must equal the group size; the mismatch is a
// configuration error.
func NewDecomp2(c *comm.Comm, nGlobal [2]int, nprocs int, periodic bool) (*Decomp2, error) {
	x, err := New(c, nGlobal[:], 0, []int{nprocs}, []bool{periodic})
	if err != nil {
		return nil, err
	}
	y, err := New(c, nGlobal[:], 1, []int{nprocs}, []bool{periodic})
	if err != nil {
		return nil, err
	}
	return &Decomp2{NGlobal: nGlobal, X: x, Y: y}, nil
}

// TransposeXToY redistributes x-pencil data into y-pencil layout.
// snd must be shaped like X, rcv like Y; mismatches fail before any
// communication.
func (d *Decomp2) TransposeXToY(snd, rcv *mat.Dense) error {
	src, err := denseSlice(snd, d.X.Shape())
	if err != nil {
		return err
	}
	dst, err := denseSlice(rcv, d.Y.Shape())
	if err != nil {
		return err
	}
	return Transpose(d.X, d.Y, src, dst)
}

// TransposeYToX redistributes y-pencil data into x-pencil layout.
func (d *Decomp2) TransposeYToX(snd, rcv *mat.Dense) error {
	src, err := denseSlice(snd, d.Y.Shape())
	if err != nil {
		return err
	}
	dst, err := denseSlice(rcv, d.X.Shape())
	if err != nil {
		return err
	}
	return Transpose(d.Y, d.X, src, dst)
}

// GatherX assembles x-pencil data into the full global matrix on the
// root process. For a 2-D grid the single split axis spans the whole
// group, so the sub-group root is the world root. Only the root needs
// rcv; other ranks may pass nil.
func (d *Decomp2) GatherX(snd, rcv *mat.Dense) error {
	return d.gather(d.X, 1, snd, rcv)
}

// GatherY assembles y-pencil data into the full global matrix on the
// root process.
func (d *Decomp2) GatherY(snd, rcv *mat.Dense) error {
	return d.gather(d.Y, 0, snd, rcv)
}

// ScatterX distributes the global matrix held by the root process
// into x-pencil layout. Only the root needs snd.
func (d *Decomp2) ScatterX(snd, rcv *mat.Dense) error {
	return d.scatter(d.X, 1, snd, rcv)
}

// ScatterY distributes the global matrix held by the root process
// into y-pencil layout.
func (d *Decomp2) ScatterY(snd, rcv *mat.Dense) error {
	return d.scatter(d.Y, 0, snd, rcv)
}

func (d *Decomp2) gather(p *Pencil, axis int, snd, rcv *mat.Dense) error {
	src, err := denseSlice(snd, p.Shape())
	if err != nil {
		return err
	}
	var dst []float64
	if rcv != nil {
		dst, err = denseSlice(rcv, d.NGlobal[:])
		if err != nil {
			return err
		}
	}
	return GatherAlongAxis(p, src, dst, axis)
}

func (d *Decomp2) scatter(p *Pencil, axis int, snd, rcv *mat.Dense) error {
	dst, err := denseSlice(rcv, p.Shape())
	if err != nil {
		return err
	}
	var src []float64
	if snd != nil {
		src, err = denseSlice(snd, d.NGlobal[:])
		if err != nil {
			return err
		}
	}
	return ScatterAlongAxis(p, src, dst, axis)
}

// denseSlice validates m against the expected shape and returns its
// backing row-major data. The matrix must be dense and contiguous; a
// sub-view with a widened stride cannot serve as an exchange buffer.
func denseSlice(m *mat.Dense, shape []int) ([]float64, error) {
	if m == nil {
		return nil, fmt.Errorf("pencil: nil matrix, expected shape %v", shape)
	}
	r, c := m.Dims()
	if r != shape[0] || c != shape[1] {
		return nil, fmt.Errorf("pencil: shape mismatch, got [%d %d] expected %v", r, c, shape)
	}
	raw := m.RawMatrix()
	if raw.Stride != c {
		return nil, fmt.Errorf("pencil: matrix is a non-contiguous view (stride %d, cols %d)", raw.Stride, c)
	}
	return raw.Data, nil
}
