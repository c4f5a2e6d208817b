package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pencil-demo",
	Short: "Demonstrate pencil re-decomposition of distributed grids",
	Long: `pencil-demo runs small pencil-decomposition scenarios with the
process group simulated in a single process, one goroutine per rank.
It prints the per-rank layouts and exchange tables so the counts and
orderings can be inspected by hand.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
