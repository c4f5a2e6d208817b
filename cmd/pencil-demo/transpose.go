package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/preiter93/pencil-decomp/comm"
	"github.com/preiter93/pencil-decomp/pencil"
)

var transposeCmd = &cobra.Command{
	Use:   "transpose",
	Short: "Run the x->y->z transpose cycle on a 3-D grid",
	Long: `Decomposes a 3-D grid into x, y and z pencils over a 2-D process
grid, fills each x-pencil with a function of the global index, and
transposes through y to z and back. Per-rank shapes and exchange
counts are printed in rank order.`,
	RunE: runTranspose,
}

var (
	transposeGrid  []int
	transposeProcs []int
)

func init() {
	rootCmd.AddCommand(transposeCmd)

	transposeCmd.Flags().IntSliceVar(&transposeGrid, "grid", []int{6, 7, 9}, "global grid shape (three axes)")
	transposeCmd.Flags().IntSliceVar(&transposeProcs, "procs", []int{2, 3}, "process grid dimensions (two)")
}

func runTranspose(cmd *cobra.Command, args []string) error {
	if len(transposeGrid) != 3 || len(transposeProcs) != 2 {
		return fmt.Errorf("need a 3-axis grid and a 2-D process grid")
	}
	nGlobal := [3]int{transposeGrid[0], transposeGrid[1], transposeGrid[2]}
	cartDims := [2]int{transposeProcs[0], transposeProcs[1]}
	nprocs := cartDims[0] * cartDims[1]

	fmt.Printf("grid %v on a %dx%d process grid (%d ranks)\n\n",
		transposeGrid, cartDims[0], cartDims[1], nprocs)

	return comm.Run(nprocs, func(c *comm.Comm) error {
		d, err := pencil.NewDecomp3(c, nGlobal, cartDims, [2]bool{false, false})
		if err != nil {
			return err
		}

		if err := report(c, describeShapes(d)); err != nil {
			return err
		}

		xData := indexField(d.X)
		yData := make([]float64, d.Y.Length())
		zData := make([]float64, d.Z.Length())
		if err := d.TransposeXToY(xData, yData); err != nil {
			return err
		}
		if err := d.TransposeYToZ(yData, zData); err != nil {
			return err
		}
		if err := d.TransposeZToY(zData, yData); err != nil {
			return err
		}
		xBack := make([]float64, d.X.Length())
		if err := d.TransposeYToX(yData, xBack); err != nil {
			return err
		}

		ok := true
		for i := range xData {
			if xData[i] != xBack[i] {
				ok = false
				break
			}
		}
		return report(c, fmt.Sprintf("rank %d: cycle x->y->z->y->x exact: %v", c.Rank(), ok))
	})
}

func describeShapes(d *pencil.Decomp3) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rank %d coords %v\n", d.X.Cart.Rank(), d.X.Cart.Coords())
	names := []string{"x", "y", "z"}
	for i, p := range []*pencil.Pencil{d.X, d.Y, d.Z} {
		name := names[i]
		fmt.Fprintf(&sb, "  %s-pencil shape %v range", name, p.Shape())
		for a := 0; a < p.NDims(); a++ {
			fmt.Fprintf(&sb, " [%d,%d)", p.Dists[a].St, p.Dists[a].En)
		}
		sb.WriteByte('\n')
	}
	counts, _, err := pencil.SendCounts(d.X, d.Y)
	if err == nil {
		fmt.Fprintf(&sb, "  x->y send counts %v", counts)
	}
	return sb.String()
}

// indexField fills the local block with f(i,j,k) = i + 10j + 100k in
// global indices, row-major.
func indexField(p *pencil.Pencil) []float64 {
	shape := p.Shape()
	data := make([]float64, p.Length())
	pos := 0
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				data[pos] = float64(i+p.Dists[0].St) +
					10*float64(j+p.Dists[1].St) +
					100*float64(k+p.Dists[2].St)
				pos++
			}
		}
	}
	return data
}

// report gathers one line per rank on rank 0 and prints them in rank
// order, so concurrent output stays readable.
func report(c *comm.Comm, line string) error {
	lines, err := comm.Gather(c, line, 0)
	if err != nil {
		return err
	}
	if c.Rank() == 0 {
		for _, l := range lines {
			fmt.Println(l)
		}
		fmt.Println()
	}
	return nil
}
