package pencil

import (
	"fmt"

	"github.com/preiter93/pencil-decomp/comm"
	"github.com/preiter93/pencil-decomp/dist"
)

// GatherCounts returns the per-peer element counts and displacements
// for gathering pencil data along axis to the root of the axis
// sub-group. Peer r contributes its chunk size along the gathered
// axis times the product of the local sizes of every other axis;
// within the sub-group only the gathered axis varies, so that product
// is identical across peers. Panics if axis is the contiguous axis.
func GatherCounts(p *Pencil, axis int) (counts, displs []int) {
	other := 1
	for a, d := range p.Dists {
		if a != axis {
			other *= d.Sz
		}
	}
	nprocs := p.NProcsAlongAxis(axis)
	counts = make([]int, nprocs)
	for r := range counts {
		counts[r] = p.Dists[axis].SzProcs[r] * other
	}
	return counts, exclusivePrefix(counts)
}

// GatherAlongAxis collects the pencil-distributed src onto rank 0 of
// the sub-group along axis, assembling dst with the gathered axis at
// its global length and every other axis at its local size. Only the
// sub-group root needs dst; other ranks may pass nil and never see
// the assembled buffer. Panics if axis is the contiguous axis.
func GatherAlongAxis(p *Pencil, src, dst []float64, axis int) error {
	if len(src) != p.Length() {
		return fmt.Errorf("pencil: source length %d does not match pencil shape %v",
			len(src), p.Shape())
	}
	sub := p.SubcommAlongAxis(axis)
	return gatherBlocks(sub.Comm, src, p.Shape(), dst, axis, p.Dists[axis])
}

// ScatterAlongAxis is the exact inverse of GatherAlongAxis: rank 0 of
// the sub-group along axis holds src with the scattered axis at its
// global length, and every rank receives its chunk into dst, shaped
// like the pencil. Only the sub-group root needs src.
func ScatterAlongAxis(p *Pencil, src, dst []float64, axis int) error {
	if len(dst) != p.Length() {
		return fmt.Errorf("pencil: destination length %d does not match pencil shape %v",
			len(dst), p.Shape())
	}
	sub := p.SubcommAlongAxis(axis)
	return scatterBlocks(sub.Comm, src, dst, p.Shape(), axis, p.Dists[axis])
}

// gatherBlocks gathers row-major blocks along one axis of a shared
// local shape onto rank 0 of c. Every member owns shape (with
// shape[axis] equal to its chunk of axisDist); the root assembles the
// shape with axis grown to the full axisDist extent. Blocks are
// packed with the gathered axis outermost so the root can place each
// rank-ordered segment with a single sequential sweep.
func gatherBlocks(c *comm.Comm, src []float64, shape []int, dst []float64, axis int, axisDist dist.Distribution) error {
	if c.Size() != len(axisDist.SzProcs) {
		return fmt.Errorf("pencil: sub-group size %d does not match %d chunks along the gathered axis",
			c.Size(), len(axisDist.SzProcs))
	}
	if shape[axis] != axisDist.Sz {
		return fmt.Errorf("pencil: local extent %d along gathered axis differs from owned chunk %d",
			shape[axis], axisDist.Sz)
	}
	order := gatherOrder(len(shape), axis)

	sendBuf := make([]float64, len(src))
	lo, hi := fullRange(shape)
	pos := 0
	iterate(shape, lo, hi, order, func(off int) {
		sendBuf[pos] = src[off]
		pos++
	})

	if c.Rank() != 0 {
		return comm.GatherV(c, sendBuf, nil, nil, nil, 0)
	}

	gShape := append([]int(nil), shape...)
	gShape[axis] = 0
	for _, sz := range axisDist.SzProcs {
		gShape[axis] += sz
	}
	if dst == nil {
		return fmt.Errorf("pencil: gather root requires a destination buffer of shape %v", gShape)
	}
	if len(dst) != prod(gShape) {
		return fmt.Errorf("pencil: destination length %d does not match gathered shape %v",
			len(dst), gShape)
	}

	counts := make([]int, c.Size())
	other := len(src) / shape[axis]
	for r := range counts {
		counts[r] = axisDist.SzProcs[r] * other
	}
	displs := exclusivePrefix(counts)
	recvBuf := make([]float64, displs[len(displs)-1]+counts[len(counts)-1])
	if err := comm.GatherV(c, sendBuf, recvBuf, counts, displs, 0); err != nil {
		return err
	}

	glo, ghi := fullRange(gShape)
	pos = 0
	for q := 0; q < c.Size(); q++ {
		glo[axis] = axisDist.StProcs[q]
		ghi[axis] = axisDist.EnProcs[q] + 1
		iterate(gShape, glo, ghi, order, func(off int) {
			dst[off] = recvBuf[pos]
			pos++
		})
	}
	return nil
}

// scatterBlocks distributes row-major blocks along one axis from rank
// 0 of c, the inverse of gatherBlocks. The root holds src with axis
// at its full axisDist extent; every member receives its chunk into
// dst of the given local shape.
func scatterBlocks(c *comm.Comm, src, dst []float64, shape []int, axis int, axisDist dist.Distribution) error {
	if c.Size() != len(axisDist.SzProcs) {
		return fmt.Errorf("pencil: sub-group size %d does not match %d chunks along the scattered axis",
			c.Size(), len(axisDist.SzProcs))
	}
	if shape[axis] != axisDist.Sz {
		return fmt.Errorf("pencil: local extent %d along scattered axis differs from owned chunk %d",
			shape[axis], axisDist.Sz)
	}
	order := gatherOrder(len(shape), axis)

	recvBuf := make([]float64, len(dst))
	if c.Rank() == 0 {
		gShape := append([]int(nil), shape...)
		gShape[axis] = 0
		for _, sz := range axisDist.SzProcs {
			gShape[axis] += sz
		}
		if src == nil {
			return fmt.Errorf("pencil: scatter root requires a source buffer of shape %v", gShape)
		}
		if len(src) != prod(gShape) {
			return fmt.Errorf("pencil: source length %d does not match global shape %v",
				len(src), gShape)
		}

		counts := make([]int, c.Size())
		other := len(dst) / shape[axis]
		for r := range counts {
			counts[r] = axisDist.SzProcs[r] * other
		}
		displs := exclusivePrefix(counts)

		sendBuf := make([]float64, displs[len(displs)-1]+counts[len(counts)-1])
		glo, ghi := fullRange(gShape)
		pos := 0
		for q := 0; q < c.Size(); q++ {
			glo[axis] = axisDist.StProcs[q]
			ghi[axis] = axisDist.EnProcs[q] + 1
			iterate(gShape, glo, ghi, order, func(off int) {
				sendBuf[pos] = src[off]
				pos++
			})
		}
		if err := comm.ScatterV(c, sendBuf, counts, displs, recvBuf, 0); err != nil {
			return err
		}
	} else {
		if err := comm.ScatterV(c, nil, nil, nil, recvBuf, 0); err != nil {
			return err
		}
	}

	lo, hi := fullRange(shape)
	pos := 0
	iterate(shape, lo, hi, order, func(off int) {
		dst[off] = recvBuf[pos]
		pos++
	})
	return nil
}
