package pencil

import (
	"fmt"

	"github.com/preiter93/pencil-decomp/comm"
)

// SendCounts returns the per-peer element counts and exclusive-prefix
// displacements for the variable-count exchange that transposes data
// from send to recv. Peers are the ranks of
// send.SubcommAlongAxis(recv.AxisContig), in rank order.
//
// For peer r the count is the product over all grid axes of: the
// local size on axes split identically in both pencils; the local
// size on the axis recv makes contiguous (the sender only owns its
// slice of it); and peer r's chunk size on the axis send keeps
// contiguous (the only axis whose granularity differs by peer).
//
// SendCounts fails if the two pencils share their contiguous axis, if
// the two axes changing role map to different process-grid dimensions,
// or if some other axis is split differently in the two pencils: those
// configurations would need the fully general all-to-all-w exchange,
// which is deliberately unsupported.
func SendCounts(send, recv *Pencil) (counts, displs []int, err error) {
	if send.AxisContig == recv.AxisContig {
		return nil, nil, fmt.Errorf("pencil: both pencils are contiguous along axis %d", send.AxisContig)
	}
	if send.NDims() != recv.NDims() {
		return nil, nil, fmt.Errorf("pencil: dimensionality mismatch, %d vs %d", send.NDims(), recv.NDims())
	}
	// The axis send keeps whole becomes split in recv and vice versa.
	// The exchange is a single all-to-all only when both swaps happen
	// along the same line of the process grid; otherwise peers along
	// one dimension would need chunks partitioned along another.
	if send.cartDim(recv.AxisContig) != recv.cartDim(send.AxisContig) {
		return nil, nil, fmt.Errorf(
			"pencil: axes %d and %d swap roles across different process-grid dimensions (%d vs %d); this exchange would need all-to-all-w, which is not supported",
			send.AxisContig, recv.AxisContig,
			recv.cartDim(send.AxisContig), send.cartDim(recv.AxisContig))
	}
	nprocs := send.NProcsAlongAxis(recv.AxisContig)
	counts = make([]int, nprocs)
	for r := range counts {
		count := 1
		for axis := range send.Dists {
			switch {
			case axis == recv.AxisContig:
				count *= send.Dists[axis].Sz
			case axis == send.AxisContig:
				count *= recv.Dists[axis].SzProcs[r]
			default:
				// Split in both pencils. The splits must agree
				// locally or the per-peer counts are ill-defined.
				if send.Dists[axis].Sz != recv.Dists[axis].Sz {
					return nil, nil, fmt.Errorf(
						"pencil: axis %d is split differently in the two pencils (%d vs %d local points); this exchange would need all-to-all-w, which is not supported",
						axis, send.Dists[axis].Sz, recv.Dists[axis].Sz)
				}
				count *= send.Dists[axis].Sz
			}
		}
		counts[r] = count
	}
	return counts, exclusivePrefix(counts), nil
}

// RecvCounts returns the per-peer receive counts and displacements
// for the transpose from send to recv. The count rule is symmetric
// under exchanging the two pencils' roles, so this is SendCounts with
// the arguments reversed.
func RecvCounts(send, recv *Pencil) (counts, displs []int, err error) {
	return SendCounts(recv, send)
}

// Transpose redistributes src, shaped like the send pencil, into dst,
// shaped like the recv pencil. The two pencils must differ in their
// contiguous axis and agree on the split of every other axis. One
// variable-count all-to-all runs over the 1-D sub-group of processes
// along the axis that changes role; processes outside that line hold
// data unaffected by the exchange.
//
// Buffer length mismatches fail before any communication is issued,
// so a misconfigured process never leaves its peers mid-collective
// with partially exchanged state.
func Transpose(send, recv *Pencil, src, dst []float64) error {
	if len(src) != send.Length() {
		return fmt.Errorf("pencil: source length %d does not match send pencil shape %v",
			len(src), send.Shape())
	}
	if len(dst) != recv.Length() {
		return fmt.Errorf("pencil: destination length %d does not match recv pencil shape %v",
			len(dst), recv.Shape())
	}
	sendCounts, sendDispls, err := SendCounts(send, recv)
	if err != nil {
		return err
	}
	recvCounts, recvDispls, err := RecvCounts(send, recv)
	if err != nil {
		return err
	}

	order := packOrder(send.NDims(), send.AxisContig)

	// Pack: linearize the local block with the axis that is becoming
	// split outermost, so each peer's elements are contiguous and
	// peer segments appear in rank order.
	sendBuf := make([]float64, send.Length())
	shape := send.Shape()
	lo, hi := fullRange(shape)
	pos := 0
	iterate(shape, lo, hi, order, func(off int) {
		sendBuf[pos] = src[off]
		pos++
	})

	recvBuf := make([]float64, recv.Length())
	sub := send.SubcommAlongAxis(recv.AxisContig)
	if err := comm.AllToAllV(sub.Comm, sendBuf, sendCounts, sendDispls,
		recvBuf, recvCounts, recvDispls); err != nil {
		return err
	}

	// Unpack: peer q's segment covers q's chunk of the axis that just
	// became contiguous here, crossed with the full local range of
	// every other axis, in the same axis order the sender packed with.
	unpackTransposed(recvBuf, dst, send, recv, order)
	return nil
}

// unpackTransposed writes the rank-ordered segments of recvBuf into
// the local block dst of the recv pencil. The chunk bounds along
// recv's contiguous axis come from the send pencil, which is split
// along that axis; recv holds the axis whole, so global indices are
// local indices there.
func unpackTransposed(recvBuf, dst []float64, send, recv *Pencil, order []int) {
	shape := recv.Shape()
	lo, hi := fullRange(shape)
	axis := recv.AxisContig
	nprocs := send.NProcsAlongAxis(axis)
	pos := 0
	for q := 0; q < nprocs; q++ {
		lo[axis] = send.Dists[axis].StProcs[q]
		hi[axis] = send.Dists[axis].EnProcs[q] + 1
		iterate(shape, lo, hi, order, func(off int) {
			dst[off] = recvBuf[pos]
			pos++
		})
	}
}
