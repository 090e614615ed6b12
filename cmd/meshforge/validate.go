package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taigrr/meshforge/internal/config"
	"github.com/taigrr/meshforge/pkg/meshopt"
	"github.com/taigrr/meshforge/pkg/models"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Report topology defects",
		Long: `Report topology defects of a model without changing it.

Checks for degenerate faces, unused faces, asymmetric adjacency, bowtie
vertices and back-facing neighbors. Exits non-zero when any are found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := models.Load(args[0])
			if err != nil {
				return err
			}
			b := mesh.Buffers()
			_, adjacency, err := meshopt.GenerateAdjacencyAndPointReps(b.Indices, b.Positions, cfg.Optimize.Epsilon)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			defects := 0
			ok, err := meshopt.Validate(b.Indices, len(b.Positions), adjacency, meshopt.ValidateAll, func(msg string) {
				defects++
				fmt.Fprintf(w, "  %s\n", msg)
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %d defects", args[0], defects)
			}
			fmt.Fprintf(w, "%s: ok (%d triangles, %d vertices)\n", args[0], mesh.TriangleCount(), mesh.VertexCount())
			return nil
		},
	}
	cmd.Flags().Float32(config.FlagEpsilon, 0, "Position weld tolerance (0 = exact match)")
	return cmd
}
