// Package global provides simple whole-group scalar operations:
// broadcasting a value from the root and gathering per-process values
// into a reduction. They sit beside the pencil machinery for the
// small amounts of non-distributed state a solver carries (residual
// norms, time-step sizes, convergence flags).
package global

import (
	"github.com/preiter93/pencil-decomp/comm"
)

// Number covers the element types the sum helpers reduce over.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// BcastScalar replaces *v on every process with the root's value.
func BcastScalar[T any](c *comm.Comm, v *T) error {
	buf := []T{*v}
	if err := comm.Bcast(c, buf, 0); err != nil {
		return err
	}
	*v = buf[0]
	return nil
}

// GatherApply gathers one value per process on the root and applies f
// to the rank-ordered slice. Non-root processes receive the zero
// value.
func GatherApply[T any](c *comm.Comm, v T, f func([]T) T) (T, error) {
	vals, err := comm.Gather(c, v, 0)
	if err != nil || c.Rank() != 0 {
		var zero T
		return zero, err
	}
	return f(vals), nil
}

// GatherSum gathers one value per process and returns their sum on
// the root.
func GatherSum[T Number](c *comm.Comm, v T) (T, error) {
	return GatherApply(c, v, sum[T])
}

// AllGatherApply gathers one value per process on every process and
// applies f to the rank-ordered slice.
func AllGatherApply[T any](c *comm.Comm, v T, f func([]T) T) (T, error) {
	vals, err := comm.AllGather(c, v)
	if err != nil {
		var zero T
		return zero, err
	}
	return f(vals), nil
}

// AllGatherSum gathers one value per process and returns their sum on
// every process.
func AllGatherSum[T Number](c *comm.Comm, v T) (T, error) {
	return AllGatherApply(c, v, sum[T])
}

func sum[T Number](xs []T) T {
	var acc T
	for _, x := range xs {
		acc += x
	}
	return acc
}
