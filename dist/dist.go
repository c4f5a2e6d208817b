// Package dist computes how a single grid axis of length n is split
// into contiguous, balanced chunks across the processes of a process
// grid. A Distribution records this process's chunk together with the
// chunk bounds of every process along the axis, so that count and
// displacement tables for collective exchanges can be derived without
// further communication.
package dist

import "fmt"

// Distribution describes the partition of one grid axis. Chunks are
// contiguous, non-overlapping, ordered by rank, and their union covers
// exactly [0, nGlobal). Chunk sizes differ by at most one.
//
// A Distribution is built once at decomposition time and never
// modified afterwards.
type Distribution struct {
	// Chunk of the current process.
	Sz int // number of points owned
	St int // first global index owned
	En int // last global index owned (inclusive)

	// Chunks of all processes along this axis, indexed by rank.
	SzProcs []int
	StProcs []int
	EnProcs []int
}

// Contiguous returns the trivial distribution where a single chunk
// holds the whole axis. Used for the axis a pencil keeps whole.
func Contiguous(nGlobal int) Distribution {
	if nGlobal < 1 {
		panic(fmt.Sprintf("dist: axis length must be positive, got %d", nGlobal))
	}
	return Distribution{
		Sz:      nGlobal,
		St:      0,
		En:      nGlobal - 1,
		SzProcs: []int{nGlobal},
		StProcs: []int{0},
		EnProcs: []int{nGlobal - 1},
	}
}

// Split partitions nGlobal points over nprocs processes and returns
// the distribution as seen by the process with the given rank along
// the axis.
//
// The first nprocs - nGlobal%nprocs ranks receive nGlobal/nprocs
// points each; the remaining tail ranks receive one point more, so no
// two chunks differ in size by more than one.
//
// Split requires nGlobal >= nprocs >= 1 and 0 <= rank < nprocs. A
// violation is a caller configuration error and panics; zero-size
// chunks are never produced silently.
func Split(nGlobal, nprocs, rank int) Distribution {
	if nprocs < 1 {
		panic(fmt.Sprintf("dist: nprocs must be >= 1, got %d", nprocs))
	}
	if nGlobal < nprocs {
		panic(fmt.Sprintf("dist: cannot split %d points over %d processes", nGlobal, nprocs))
	}
	if rank < 0 || rank >= nprocs {
		panic(fmt.Sprintf("dist: rank %d out of range [0, %d)", rank, nprocs))
	}
	st, en, sz := distribute(nGlobal, nprocs)
	return Distribution{
		Sz:      sz[rank],
		St:      st[rank],
		En:      en[rank],
		SzProcs: sz,
		StProcs: st,
		EnProcs: en,
	}
}

// distribute assigns nGlobal points to nprocs chunks in rank order.
// Larger chunks sit at the tail so partial sums of sizes yield the
// start indices directly.
func distribute(nGlobal, nprocs int) (st, en, sz []int) {
	base := nGlobal / nprocs
	tail := nGlobal - base*nprocs // number of ranks holding base+1 points
	head := nprocs - tail

	st = make([]int, nprocs)
	en = make([]int, nprocs)
	sz = make([]int, nprocs)
	pos := 0
	for r := 0; r < nprocs; r++ {
		n := base
		if r >= head {
			n = base + 1
		}
		st[r] = pos
		sz[r] = n
		en[r] = pos + n - 1
		pos += n
	}
	return st, en, sz
}
