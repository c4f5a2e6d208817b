package pencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/preiter93/pencil-decomp/comm"
)

// Global shape [6 5] over 2 processes splitting axis 1 into [2 3]:
// gather counts are 6*2 and 6*3 with displacements [0 12].
func TestGatherCountsScenario(t *testing.T) {
	err := comm.Run(2, func(c *comm.Comm) error {
		d, err := NewDecomp2(c, [2]int{6, 5}, 2, false)
		if err != nil {
			return err
		}
		counts, displs := GatherCounts(d.X, 1)
		assert.Equal(t, []int{12, 18}, counts)
		assert.Equal(t, []int{0, 12}, displs)

		counts, displs = GatherCounts(d.Y, 0)
		assert.Equal(t, []int{15, 15}, counts)
		assert.Equal(t, []int{0, 15}, displs)
		return nil
	})
	require.NoError(t, err)
}

func TestGatherCountsSumToGlobal(t *testing.T) {
	err := comm.Run(6, func(c *comm.Comm) error {
		d, err := NewDecomp3(c, [3]int{6, 7, 9}, [2]int{2, 3}, [2]bool{false, false})
		if err != nil {
			return err
		}
		for _, axis := range []int{1, 2} {
			counts, displs := GatherCounts(d.X, axis)
			total := 0
			for i, n := range counts {
				assert.Equal(t, total, displs[i])
				total += n
			}
			// Summed over the line, the counts cover the local block
			// with the gathered axis grown to its global length.
			want := d.X.Length() / d.X.Dists[axis].Sz * d.NGlobal[axis]
			assert.Equal(t, want, total)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDecomp2GatherScatter(t *testing.T) {
	err := comm.Run(2, func(c *comm.Comm) error {
		nGlobal := [2]int{6, 5}
		d, err := NewDecomp2(c, nGlobal, 2, false)
		if err != nil {
			return err
		}
		root := c.Rank() == 0

		// Gather x: only the root sees the assembled matrix.
		var full *mat.Dense
		if root {
			full = mat.NewDense(nGlobal[0], nGlobal[1], nil)
		}
		if err := d.GatherX(testMatrix(d.X), full); err != nil {
			return err
		}
		if root {
			assert.True(t, mat.Equal(full, globalMatrix(nGlobal)))
		}

		// Gather y from the same field reaches the same matrix.
		if root {
			full.Zero()
		}
		if err := d.GatherY(testMatrix(d.Y), full); err != nil {
			return err
		}
		if root {
			assert.True(t, mat.Equal(full, globalMatrix(nGlobal)))
		}

		// Scatter is the exact inverse.
		var src *mat.Dense
		if root {
			src = globalMatrix(nGlobal)
		}
		xData := mat.NewDense(d.X.Dists[0].Sz, d.X.Dists[1].Sz, nil)
		if err := d.ScatterX(src, xData); err != nil {
			return err
		}
		assert.True(t, mat.Equal(xData, testMatrix(d.X)))

		yData := mat.NewDense(d.Y.Dists[0].Sz, d.Y.Dists[1].Sz, nil)
		if err := d.ScatterY(src, yData); err != nil {
			return err
		}
		assert.True(t, mat.Equal(yData, testMatrix(d.Y)))
		return nil
	})
	require.NoError(t, err)
}

// Scattering a known matrix and gathering it back along the same axis
// must reproduce it bit for bit on the root.
func TestDecomp2ScatterGatherInverse(t *testing.T) {
	err := comm.Run(3, func(c *comm.Comm) error {
		nGlobal := [2]int{7, 6}
		d, err := NewDecomp2(c, nGlobal, 3, false)
		if err != nil {
			return err
		}
		root := c.Rank() == 0

		var src, back *mat.Dense
		if root {
			src = globalMatrix(nGlobal)
			back = mat.NewDense(nGlobal[0], nGlobal[1], nil)
		}
		local := mat.NewDense(d.X.Dists[0].Sz, d.X.Dists[1].Sz, nil)
		if err := d.ScatterX(src, local); err != nil {
			return err
		}
		if err := d.GatherX(local, back); err != nil {
			return err
		}
		if root {
			assert.True(t, mat.Equal(src, back))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestGatherAlongAxisSubgroupRoots(t *testing.T) {
	err := comm.Run(6, func(c *comm.Comm) error {
		x, err := New(c, []int{6, 7, 9}, 0, []int{2, 3}, []bool{false, false})
		if err != nil {
			return err
		}
		sub := x.SubcommAlongAxis(1)

		// Each line along axis 1 assembles its own slab on the line
		// root; other members pass nil and never see it.
		var slab []float64
		shape := x.Shape()
		if sub.Rank() == 0 {
			slab = make([]float64, shape[0]*7*shape[2])
		}
		if err := GatherAlongAxis(x, testField(x), slab, 1); err != nil {
			return err
		}
		if sub.Rank() == 0 {
			// The slab holds the global-index field over rows 0..5,
			// the full axis 1, and this line's axis-2 chunk.
			want := 0.0
			for i := 0; i < shape[0]; i++ {
				for j := 0; j < 7; j++ {
					for k := 0; k < shape[2]; k++ {
						want = float64(i) + 10*float64(j) + 100*float64(k+x.Dists[2].St)
						got := slab[(i*7+j)*shape[2]+k]
						if got != want {
							assert.Equal(t, want, got, "slab value at [%d %d %d]", i, j, k)
						}
					}
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDecomp3GatherScatterRoundTrip(t *testing.T) {
	err := comm.Run(6, func(c *comm.Comm) error {
		nGlobal := [3]int{6, 7, 9}
		d, err := NewDecomp3(c, nGlobal, [2]int{2, 3}, [2]bool{false, false})
		if err != nil {
			return err
		}
		root := c.Rank() == 0

		global := make([]float64, nGlobal[0]*nGlobal[1]*nGlobal[2])
		pos := 0
		for i := 0; i < nGlobal[0]; i++ {
			for j := 0; j < nGlobal[1]; j++ {
				for k := 0; k < nGlobal[2]; k++ {
					global[pos] = float64(i) + 10*float64(j) + 100*float64(k)
					pos++
				}
			}
		}

		for _, p := range []*Pencil{d.X, d.Y, d.Z} {
			var src []float64
			if root {
				src = global
			}
			local := make([]float64, p.Length())
			var scatter func(snd, rcv []float64) error
			var gather func(snd, rcv []float64) error
			switch p {
			case d.X:
				scatter, gather = d.ScatterX, d.GatherX
			case d.Y:
				scatter, gather = d.ScatterY, d.GatherY
			default:
				scatter, gather = d.ScatterZ, d.GatherZ
			}

			if err := scatter(src, local); err != nil {
				return err
			}
			assert.Equal(t, testField(p), local,
				"scattered chunk must match the global-index field")

			var back []float64
			if root {
				back = make([]float64, len(global))
			}
			if err := gather(local, back); err != nil {
				return err
			}
			if root {
				assert.True(t, floats.Equal(global, back),
					"gather must invert scatter bit for bit")
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestGatherRootRequiresBuffer(t *testing.T) {
	err := comm.Run(2, func(c *comm.Comm) error {
		d, err := NewDecomp2(c, [2]int{4, 4}, 2, false)
		if err != nil {
			return err
		}
		// Every rank passes nil, so the root fails locally before the
		// exchange and no rank blocks.
		err = d.GatherX(testMatrix(d.X), nil)
		if c.Rank() == 0 {
			assert.Error(t, err)
		}
		return nil
	})
	require.NoError(t, err)
}
