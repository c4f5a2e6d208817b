package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preiter93/pencil-decomp/comm"
)

func TestBcastScalar(t *testing.T) {
	err := comm.Run(4, func(c *comm.Comm) error {
		dt := 0.0
		if c.Rank() == 0 {
			dt = 0.125
		}
		if err := BcastScalar(c, &dt); err != nil {
			return err
		}
		assert.Equal(t, 0.125, dt)
		return nil
	})
	require.NoError(t, err)
}

func TestGatherSum(t *testing.T) {
	err := comm.Run(4, func(c *comm.Comm) error {
		got, err := GatherSum(c, c.Rank()+1)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			assert.Equal(t, 10, got)
		} else {
			assert.Zero(t, got, "non-root processes get the zero value")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllGatherSum(t *testing.T) {
	err := comm.Run(4, func(c *comm.Comm) error {
		got, err := AllGatherSum(c, float64(c.Rank()))
		if err != nil {
			return err
		}
		assert.Equal(t, 6.0, got)
		return nil
	})
	require.NoError(t, err)
}

// A max reduction expressed through GatherApply, the way a solver
// would take the worst residual across processes.
func TestGatherApplyMax(t *testing.T) {
	err := comm.Run(3, func(c *comm.Comm) error {
		residual := []float64{0.4, 1.7, 0.9}[c.Rank()]
		got, err := AllGatherApply(c, residual, func(xs []float64) float64 {
			m := xs[0]
			for _, x := range xs[1:] {
				if x > m {
					m = x
				}
			}
			return m
		})
		if err != nil {
			return err
		}
		assert.Equal(t, 1.7, got)
		return nil
	})
	require.NoError(t, err)
}
