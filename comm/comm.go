// Package comm provides the process-group layer that pencil
// decompositions are built on: an SPMD runner hosting ranks as
// goroutines, blocking point-to-point channels between every pair of
// ranks, Cartesian topologies with sub-group derivation, and the
// variable-count collectives used by the transpose engine.
//
// Every collective is blocking and synchronizing. All members of a
// group must issue the same sequence of calls with consistent counts;
// a rank that skips, reorders, or mismatches a call deadlocks the
// whole group. There are no timeouts and no cancellation at this
// layer. This mirrors the contract of MPI-style communication layers
// and is relied upon by the packages above.
package comm

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// message carries one payload between a (src, dst) rank pair. The
// payload keeps its concrete []T type; the receiver asserts it back.
type message struct {
	payload any
}

// runtime owns the mailbox mesh shared by all ranks of one Run call.
// boxes[src][dst] is the FIFO channel from world rank src to world
// rank dst.
type runtime struct {
	size  int
	boxes [][]chan message
}

func newRuntime(size int) *runtime {
	boxes := make([][]chan message, size)
	for src := range boxes {
		boxes[src] = make([]chan message, size)
		for dst := range boxes[src] {
			// Matched collective sequences keep at most a few
			// messages in flight per pair; the buffer lets every
			// collective complete its sends before receiving.
			boxes[src][dst] = make(chan message, size)
		}
	}
	return &runtime{size: size, boxes: boxes}
}

// Run executes body on nprocs ranks, one goroutine per rank, each
// handed the world communicator for the group. Run blocks until every
// rank has returned and reports the first non-nil error.
func Run(nprocs int, body func(c *Comm) error) error {
	if nprocs < 1 {
		return fmt.Errorf("comm: nprocs must be positive, got %d", nprocs)
	}
	rt := newRuntime(nprocs)
	var eg errgroup.Group
	for rank := 0; rank < nprocs; rank++ {
		c := &Comm{rt: rt, ranks: identityRanks(nprocs), rank: rank}
		eg.Go(func() error {
			return body(c)
		})
	}
	return eg.Wait()
}

func identityRanks(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return ranks
}

// Comm is an ordered group of ranks. The world communicator covers
// every rank of a Run; sub-groups reference a subset of the world
// ranks and renumber them from zero. Communicators are read-only
// after construction and safe to share.
type Comm struct {
	rt    *runtime
	ranks []int // world ranks of the members, in group-rank order
	rank  int   // this process's rank within the group
}

// Rank returns this process's rank within the group, 0 <= Rank < Size.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *Comm) Size() int { return len(c.ranks) }

// send delivers payload to the group member to. Blocks only if the
// pair's mailbox is full, which matched call sequences never cause.
func (c *Comm) send(to int, payload any) {
	c.rt.boxes[c.ranks[c.rank]][c.ranks[to]] <- message{payload: payload}
}

// recv takes the next payload from the group member from, blocking
// until one arrives.
func (c *Comm) recv(from int) any {
	return (<-c.rt.boxes[c.ranks[from]][c.ranks[c.rank]]).payload
}
