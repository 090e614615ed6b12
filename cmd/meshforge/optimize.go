package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/meshforge/internal/config"
	"github.com/taigrr/meshforge/internal/logger"
	"github.com/taigrr/meshforge/pkg/models"
	"github.com/taigrr/meshforge/pkg/pipeline"
)

// fileReport is one entry of the --report file.
type fileReport struct {
	Input  string         `yaml:"input"`
	Output string         `yaml:"output"`
	Stats  pipeline.Stats `yaml:"stats"`
}

func newOptimizeCmd() *cobra.Command {
	var outPath, reportPath string

	cmd := &cobra.Command{
		Use:   "optimize <model>...",
		Short: "Clean and optimize models",
		Long: `Clean and optimize one or more models.

Each model is welded, validated and repaired, sorted by material, ordered
for the vertex cache and written next to the input with the configured
suffix (or to -o for a single input). Models run concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath != "" && len(args) > 1 {
				return fmt.Errorf("-o needs exactly one input, got %d", len(args))
			}
			opts, err := cfg.Optimize.Options()
			if err != nil {
				return err
			}

			reports := make([]fileReport, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(cfg.Output.Jobs)
			for i, input := range args {
				output := outPath
				if output == "" {
					output = outputPath(input, cfg.Output.Format, cfg.Output.Suffix)
				}
				g.Go(func() error {
					stats, err := optimizeFile(ctx, input, output, opts)
					if err != nil {
						return fmt.Errorf("%s: %w", input, err)
					}
					reports[i] = fileReport{Input: input, Output: output, Stats: stats}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range reports {
				s := r.Stats
				fmt.Fprintf(w, "%s -> %s\n", r.Input, r.Output)
				fmt.Fprintf(w, "  Triangles:  %d -> %d\n", s.Faces, s.FacesOut)
				fmt.Fprintf(w, "  Vertices:   %d -> %d (%d duplicated)\n", s.Vertices, s.VerticesOut, s.Duplicates)
				fmt.Fprintf(w, "  ACMR:       %.3f -> %.3f (cache %d)\n", s.ACMRBefore, s.ACMRAfter, s.CacheSize)
				if !s.Valid {
					fmt.Fprintf(w, "  Warning:    %d defects remain after %d clean passes\n", s.RemainingDefects, s.CleanPasses)
				}
			}

			if reportPath != "" {
				data, err := yaml.Marshal(reports)
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				if err := os.WriteFile(reportPath, data, 0644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (single input only)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write per-model statistics as YAML")
	config.AddOptimizeFlags(cmd.Flags())
	return cmd
}

// optimizeFile runs the pipeline over one model file.
func optimizeFile(ctx context.Context, input, output string, opts pipeline.Options) (pipeline.Stats, error) {
	mesh, err := models.Load(input)
	if err != nil {
		return pipeline.Stats{}, err
	}

	log := logger.Log.With(zap.String("model", filepath.Base(input)))
	res, err := pipeline.Run(ctx, mesh.Buffers(), opts, log)
	if err != nil {
		return pipeline.Stats{}, err
	}

	out, err := models.FromBuffers(mesh.Name, res.Buffers, mesh.Materials)
	if err != nil {
		return pipeline.Stats{}, err
	}
	if err := models.Save(output, out); err != nil {
		return pipeline.Stats{}, err
	}
	log.Debug("model written", zap.String("output", output))
	return res.Stats, nil
}

// outputPath derives the output file name from the input. An empty format
// keeps the input format when it can be written and falls back to GLB.
func outputPath(input, format, suffix string) string {
	ext := strings.ToLower(filepath.Ext(input))
	base := strings.TrimSuffix(input, filepath.Ext(input))
	switch {
	case format != "":
		ext = "." + format
	case ext != ".obj" && ext != ".glb":
		ext = ".glb"
	}
	return base + suffix + ext
}
