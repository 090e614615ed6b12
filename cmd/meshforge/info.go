package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taigrr/meshforge/pkg/meshopt"
	"github.com/taigrr/meshforge/pkg/models"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <model>",
		Short: "Display model information",
		Long:  "Display information about a 3D model without modifying it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.OutOrStdout(), args[0], cfg.Optimize.VertexCache)
		},
	}
}

func runInfo(w io.Writer, path string, cacheSize int) error {
	mesh, err := models.Load(path)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	if cacheSize == meshopt.StripOrder {
		cacheSize = meshopt.DefaultVertexCache
	}

	b := mesh.Buffers()
	acmr, atvr, err := meshopt.ComputeVertexCacheMissRate(b.Indices, len(b.Positions), cacheSize)
	if err != nil {
		return err
	}
	subsets := meshopt.ComputeSubsets(b.Attributes, len(b.Attributes))

	size := mesh.Size()
	center := mesh.Center()
	fmt.Fprintf(w, "File:       %s\n", filepath.Base(path))
	fmt.Fprintf(w, "Format:     %s\n", strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), ".")))
	fmt.Fprintf(w, "Size:       %.1f KB\n", float64(stat.Size())/1024)
	fmt.Fprintf(w, "Vertices:   %d\n", mesh.VertexCount())
	fmt.Fprintf(w, "Triangles:  %d\n", mesh.TriangleCount())
	fmt.Fprintf(w, "Materials:  %d (%d subsets)\n", len(mesh.Materials), len(subsets))
	fmt.Fprintf(w, "Normals:    %t\n", mesh.HasNormals())
	fmt.Fprintf(w, "Tangents:   %t\n", mesh.HasTangents())
	fmt.Fprintf(w, "Bounds:     (%.2f, %.2f, %.2f) to (%.2f, %.2f, %.2f)\n",
		mesh.BoundsMin.X, mesh.BoundsMin.Y, mesh.BoundsMin.Z,
		mesh.BoundsMax.X, mesh.BoundsMax.Y, mesh.BoundsMax.Z)
	fmt.Fprintf(w, "Dimensions: %.2f x %.2f x %.2f\n", size.X, size.Y, size.Z)
	fmt.Fprintf(w, "Center:     (%.2f, %.2f, %.2f)\n", center.X, center.Y, center.Z)
	fmt.Fprintf(w, "ACMR:       %.3f (cache %d)\n", acmr, cacheSize)
	fmt.Fprintf(w, "ATVR:       %.3f\n", atvr)
	return nil
}
