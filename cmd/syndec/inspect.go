package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ufarch/syndec/internal/dem"
	"github.com/ufarch/syndec/qec"
)

var (
	geometryDEM    string
	geometryFamily string
	permDistance   int
)

var geometryCmd = &cobra.Command{
	Use:   "geometry",
	Short: "Print the code geometry inferred from a detector error model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		family, err := qec.ParseFamily(geometryFamily)
		if err != nil {
			return err
		}
		coords, err := dem.LoadFile(geometryDEM)
		if err != nil {
			return err
		}
		lat, err := qec.NewLattice(family, coords)
		if err != nil {
			return err
		}
		var selected int
		for _, r := range lat.Roles {
			if r.Selected() {
				selected++
			}
		}
		g := lat.Geometry
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "family\t%s\n", g.Family)
		fmt.Fprintf(w, "distance\t%d\n", g.Distance)
		fmt.Fprintf(w, "rounds\t%d (+1 terminal)\n", g.Rounds)
		fmt.Fprintf(w, "detectors\t%d (%d decoded basis)\n", lat.NumDetectors(), selected)
		fmt.Fprintf(w, "row/column\t%d x %d\n", g.RowLen, g.ColumnLen)
		fmt.Fprintf(w, "round length\t%d\n", g.RoundLen)
		if _, err := lat.Permutation(); err == nil {
			fmt.Fprintf(w, "dense frame\t%d bits\n", g.FrameLen())
		} else {
			fmt.Fprintf(w, "dense frame\tn/a (%v)\n", err)
		}
		return w.Flush()
	},
}

var permutationCmd = &cobra.Command{
	Use:   "permutation",
	Short: "Print the intra-round permutation of the dense layout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := qec.NewRoundPermutation(permDistance)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "source\tdest")
		for j := 0; j < p.Period; j++ {
			fmt.Fprintf(w, "%d\t%d\n", j, p.Dest(j))
		}
		return w.Flush()
	},
}

func init() {
	geometryCmd.Flags().StringVar(&geometryDEM, "dem", "", "detector error model")
	geometryCmd.Flags().StringVar(&geometryFamily, "family", "rotated", "code family")
	_ = geometryCmd.MarkFlagRequired("dem")

	permutationCmd.Flags().IntVarP(&permDistance, "distance", "d", 3, "odd code distance >= 3")
}
