package comm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Assertions inside Run bodies use assert (never require): bodies run
// on non-test goroutines, where FailNow must not be called.

func TestRunRanks(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}
	err := Run(4, func(c *Comm) error {
		assert.Equal(t, 4, c.Size())
		mu.Lock()
		defer mu.Unlock()
		if seen[c.Rank()] {
			return fmt.Errorf("rank %d started twice", c.Rank())
		}
		seen[c.Rank()] = true
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 4)
}

func TestRunRejectsNonPositiveSize(t *testing.T) {
	err := Run(0, func(c *Comm) error { return nil })
	require.Error(t, err)
}

func TestRunPropagatesBodyError(t *testing.T) {
	err := Run(3, func(c *Comm) error {
		if c.Rank() == 1 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	require.EqualError(t, err, "boom")
}

func TestBcast(t *testing.T) {
	err := Run(4, func(c *Comm) error {
		buf := []float64{0, 0}
		if c.Rank() == 0 {
			buf = []float64{3.5, -1}
		}
		if err := Bcast(c, buf, 0); err != nil {
			return err
		}
		assert.Equal(t, []float64{3.5, -1}, buf)
		return nil
	})
	require.NoError(t, err)
}

func TestGatherAndAllGather(t *testing.T) {
	err := Run(4, func(c *Comm) error {
		vals, err := Gather(c, c.Rank()*10, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			assert.Equal(t, []int{0, 10, 20, 30}, vals)
		} else {
			assert.Nil(t, vals)
		}

		all, err := AllGather(c, c.Rank()+1)
		if err != nil {
			return err
		}
		assert.Equal(t, []int{1, 2, 3, 4}, all)
		return nil
	})
	require.NoError(t, err)
}

func TestReduceAndAllReduce(t *testing.T) {
	add := func(a, b int) int { return a + b }
	err := Run(4, func(c *Comm) error {
		got, err := Reduce(c, c.Rank()+1, add, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			assert.Equal(t, 10, got)
		} else {
			assert.Zero(t, got)
		}

		total, err := AllReduce(c, c.Rank()+1, add)
		if err != nil {
			return err
		}
		assert.Equal(t, 10, total)
		return nil
	})
	require.NoError(t, err)
}

// Every rank sends rank+1 copies of its own rank to each peer, the
// canonical variable-count pattern.
func TestAllToAllV(t *testing.T) {
	const size = 3
	err := Run(size, func(c *Comm) error {
		me := c.Rank()

		sendCounts := make([]int, size)
		for peer := range sendCounts {
			sendCounts[peer] = me + 1
		}
		sendDispls := prefix(sendCounts)
		send := make([]float64, (me+1)*size)
		for i := range send {
			send[i] = float64(me)
		}

		recvCounts := make([]int, size)
		for peer := range recvCounts {
			recvCounts[peer] = peer + 1
		}
		recvDispls := prefix(recvCounts)
		total := 0
		for _, n := range recvCounts {
			total += n
		}
		recv := make([]float64, total)

		if err := AllToAllV(c, send, sendCounts, sendDispls, recv, recvCounts, recvDispls); err != nil {
			return err
		}
		for peer := 0; peer < size; peer++ {
			for i := 0; i < recvCounts[peer]; i++ {
				assert.Equal(t, float64(peer), recv[recvDispls[peer]+i])
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestGatherVScatterVRoundTrip(t *testing.T) {
	const size = 3
	counts := []int{2, 3, 4}
	displs := prefix(counts)
	err := Run(size, func(c *Comm) error {
		me := c.Rank()
		local := make([]float64, counts[me])
		for i := range local {
			local[i] = float64(10*me + i)
		}

		var full []float64
		if me == 0 {
			full = make([]float64, 9)
		}
		if err := GatherV(c, local, full, counts, displs, 0); err != nil {
			return err
		}
		if me == 0 {
			assert.Equal(t, []float64{0, 1, 10, 11, 12, 20, 21, 22, 23}, full)
		}

		back := make([]float64, counts[me])
		if err := ScatterV(c, full, counts, displs, back, 0); err != nil {
			return err
		}
		assert.Equal(t, local, back)
		return nil
	})
	require.NoError(t, err)
}

func TestAllToAllVRejectsBadTables(t *testing.T) {
	err := Run(2, func(c *Comm) error {
		buf := make([]float64, 2)
		// Table length mismatch fails locally on every rank before
		// anything enters a mailbox, so no rank is left waiting.
		err := AllToAllV(c, buf, []int{2}, []int{0}, buf, []int{2}, []int{0})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func prefix(counts []int) []int {
	displs := make([]int, len(counts))
	acc := 0
	for i, n := range counts {
		displs[i] = acc
		acc += n
	}
	return displs
}
