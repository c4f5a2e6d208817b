package comm

import "fmt"

// CartComm couples a communicator with an N-dimensional Cartesian
// topology. Group ranks map to coordinates row-major, last dimension
// varying fastest, matching the usual MPI_Cart_create convention.
type CartComm struct {
	*Comm
	dims    []int
	periods []bool
	coords  []int
}

// NewCart builds a Cartesian topology over c. The product of dims
// must equal the group size; a mismatch is a configuration error and
// the topology cannot exist.
func NewCart(c *Comm, dims []int, periods []bool) (*CartComm, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("comm: cartesian topology needs at least one dimension")
	}
	if len(periods) != len(dims) {
		return nil, fmt.Errorf("comm: got %d periodicity flags for %d dimensions",
			len(periods), len(dims))
	}
	want := 1
	for i, d := range dims {
		if d < 1 {
			return nil, fmt.Errorf("comm: cartesian dimension %d must be positive, got %d", i, d)
		}
		want *= d
	}
	if want != c.Size() {
		return nil, fmt.Errorf("comm: cartesian grid %v wants %d ranks, group has %d",
			dims, want, c.Size())
	}
	return &CartComm{
		Comm:    c,
		dims:    cloneSegment(dims),
		periods: cloneSegment(periods),
		coords:  coordsOf(c.Rank(), dims),
	}, nil
}

// Dims returns the number of processes along each topology dimension.
func (cc *CartComm) Dims() []int { return cloneSegment(cc.dims) }

// Periods returns the per-dimension periodicity flags.
func (cc *CartComm) Periods() []bool { return cloneSegment(cc.periods) }

// Coords returns this process's coordinates in the topology.
func (cc *CartComm) Coords() []int { return cloneSegment(cc.coords) }

// NDims returns the dimensionality of the topology.
func (cc *CartComm) NDims() int { return len(cc.dims) }

// Sub derives the sub-group of processes that share this process's
// coordinates on every dimension not retained, keeping only the
// retained dimensions in the derived topology. Rank order within the
// sub-group follows the retained coordinates row-major. For a single
// retained dimension this selects the 1-D line of processes that a
// collective along one grid axis must be restricted to.
//
// Sub panics if retain does not match the topology dimensionality or
// retains nothing; both are programmer errors.
func (cc *CartComm) Sub(retain []bool) *CartComm {
	if len(retain) != len(cc.dims) {
		panic(fmt.Sprintf("comm: retain mask has %d entries for %d dimensions",
			len(retain), len(cc.dims)))
	}
	var subDims []int
	var subPeriods []bool
	var subCoords []int
	for i, keep := range retain {
		if keep {
			subDims = append(subDims, cc.dims[i])
			subPeriods = append(subPeriods, cc.periods[i])
			subCoords = append(subCoords, cc.coords[i])
		}
	}
	if len(subDims) == 0 {
		panic("comm: sub-group must retain at least one dimension")
	}

	// Enumerate member coordinates in row-major order of the retained
	// dimensions; fixed dimensions keep this process's coordinates.
	members := make([]int, 0, product(subDims))
	coords := cloneSegment(cc.coords)
	eachIndex(subDims, func(idx []int) {
		k := 0
		for i, keep := range retain {
			if keep {
				coords[i] = idx[k]
				k++
			}
		}
		members = append(members, rankOf(coords, cc.dims))
	})

	myRank := -1
	for i, r := range members {
		if r == cc.Rank() {
			myRank = i
			break
		}
	}
	if myRank < 0 {
		panic("comm: process missing from its own sub-group")
	}

	worldRanks := make([]int, len(members))
	for i, r := range members {
		worldRanks[i] = cc.ranks[r]
	}
	return &CartComm{
		Comm:    &Comm{rt: cc.rt, ranks: worldRanks, rank: myRank},
		dims:    subDims,
		periods: subPeriods,
		coords:  subCoords,
	}
}

// coordsOf converts a group rank to topology coordinates, row-major.
func coordsOf(rank int, dims []int) []int {
	coords := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		coords[i] = rank % dims[i]
		rank /= dims[i]
	}
	return coords
}

// rankOf converts topology coordinates to a group rank, row-major.
func rankOf(coords, dims []int) int {
	rank := 0
	for i, c := range coords {
		rank = rank*dims[i] + c
	}
	return rank
}

// eachIndex visits every coordinate tuple of the index space defined
// by dims in row-major order. The slice passed to f is reused between
// calls.
func eachIndex(dims []int, f func(idx []int)) {
	idx := make([]int, len(dims))
	for {
		f(idx)
		k := len(dims) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

func product(xs []int) int {
	p := 1
	for _, x := range xs {
		p *= x
	}
	return p
}
