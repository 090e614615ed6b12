// Package config handles meshforge configuration loading and management.
package config

import (
	"fmt"

	"github.com/taigrr/meshforge/internal/logger"
	"github.com/taigrr/meshforge/pkg/meshopt"
	"github.com/taigrr/meshforge/pkg/pipeline"
)

// Config holds all meshforge settings.
type Config struct {
	Optimize OptimizeConfig `yaml:"optimize"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OptimizeConfig holds the pipeline settings.
type OptimizeConfig struct {
	Epsilon        float32 `yaml:"epsilon"`          // Point merge distance, 0 = exact
	BreakBowties   bool    `yaml:"break_bowties"`    // Split vertices shared by unconnected fans
	VertexCache    int     `yaml:"vertex_cache"`     // Target cache size, 0 = strip order
	Restart        int     `yaml:"restart"`          // Strip restart threshold
	Normals        string  `yaml:"normals"`          // keep, angle, area or equal
	WindCW         bool    `yaml:"wind_cw"`          // Clockwise front faces
	Tangents       bool    `yaml:"tangents"`         // Compute tangent frames
	MaxCleanPasses int     `yaml:"max_clean_passes"` // Clean/validate rounds
}

// OutputConfig holds where and how optimized models are written.
type OutputConfig struct {
	Format string `yaml:"format"` // obj, glb, or empty to follow the input
	Suffix string `yaml:"suffix"` // Appended to the input name before the extension
	Jobs   int    `yaml:"jobs"`   // Models optimized concurrently
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the engine defaults.
func Default() *Config {
	return &Config{
		Optimize: OptimizeConfig{
			Epsilon:        0,
			BreakBowties:   true,
			VertexCache:    meshopt.DefaultVertexCache,
			Restart:        meshopt.DefaultRestart,
			Normals:        string(pipeline.NormalsKeep),
			WindCW:         false,
			Tangents:       false,
			MaxCleanPasses: 3,
		},
		Output: OutputConfig{
			Format: "",
			Suffix: ".opt",
			Jobs:   4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Options converts the optimize section to pipeline options.
func (c OptimizeConfig) Options() (pipeline.Options, error) {
	mode, err := pipeline.ParseNormalsMode(c.Normals)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Epsilon:        c.Epsilon,
		BreakBowties:   c.BreakBowties,
		VertexCache:    c.VertexCache,
		Restart:        c.Restart,
		Normals:        mode,
		WindCW:         c.WindCW,
		Tangents:       c.Tangents,
		MaxCleanPasses: c.MaxCleanPasses,
	}, nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	opts, err := c.Optimize.Options()
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	switch c.Output.Format {
	case "", "obj", "glb":
	default:
		return fmt.Errorf("output: unknown format %q (want obj or glb)", c.Output.Format)
	}
	if c.Output.Jobs < 1 {
		return fmt.Errorf("output: jobs %d must be at least 1", c.Output.Jobs)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
