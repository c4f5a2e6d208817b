package pencil

// Row-major index arithmetic shared by the pack and unpack paths of
// the transpose and gather engines. Local arrays travel as flat
// slices; the axis order of a pack is expressed as a permutation and
// walked with an odometer, so one routine serves every axis pair.

// strides returns the row-major stride of each axis of shape.
func strides(shape []int) []int {
	str := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		str[i] = s
		s *= shape[i]
	}
	return str
}

// iterate walks the index block [lo, hi) of a row-major array of the
// given shape in the given axis order, order[0] varying slowest, and
// calls f with the flat offset of every visited index.
func iterate(shape, lo, hi, order []int, f func(offset int)) {
	for i := range lo {
		if hi[i] <= lo[i] {
			return
		}
	}
	str := strides(shape)
	idx := make([]int, len(shape))
	copy(idx, lo)
	for {
		off := 0
		for i, v := range idx {
			off += v * str[i]
		}
		f(off)
		k := len(order) - 1
		for ; k >= 0; k-- {
			a := order[k]
			idx[a]++
			if idx[a] < hi[a] {
				break
			}
			idx[a] = lo[a]
		}
		if k < 0 {
			return
		}
	}
}

// fullRange returns lo = zeros and hi = shape, the whole local block.
func fullRange(shape []int) (lo, hi []int) {
	lo = make([]int, len(shape))
	hi = append([]int(nil), shape...)
	return lo, hi
}

// packOrder returns the linearization order used when transposing out
// of a pencil whose contiguous axis is axisContig: that axis, which
// is becoming split, is moved outermost by swapping it with position
// zero. Segments destined for the same peer then sit contiguously in
// the packed buffer, ordered by peer rank.
func packOrder(ndims, axisContig int) []int {
	order := make([]int, ndims)
	for i := range order {
		order[i] = i
	}
	order[0], order[axisContig] = order[axisContig], order[0]
	return order
}

// gatherOrder returns the linearization order for gathering along
// axis: the gathered axis outermost, remaining axes in natural order.
func gatherOrder(ndims, axis int) []int {
	order := make([]int, 0, ndims)
	order = append(order, axis)
	for i := 0; i < ndims; i++ {
		if i != axis {
			order = append(order, i)
		}
	}
	return order
}

// exclusivePrefix returns the exclusive prefix sums of counts, the
// displacement table matching a count table.
func exclusivePrefix(counts []int) []int {
	displs := make([]int, len(counts))
	acc := 0
	for i, c := range counts {
		displs[i] = acc
		acc += c
	}
	return displs
}

func prod(xs []int) int {
	p := 1
	for _, x := range xs {
		p *= x
	}
	return p
}
