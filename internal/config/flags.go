package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by the commands that accept pipeline settings.
const (
	FlagCache       = "cache"
	FlagRestart     = "restart"
	FlagEpsilon     = "epsilon"
	FlagNoBowties   = "no-bowties"
	FlagNormals     = "normals"
	FlagWindCW      = "wind-cw"
	FlagTangents    = "tangents"
	FlagCleanPasses = "clean-passes"
	FlagFormat      = "format"
	FlagJobs        = "jobs"
	FlagLogLevel    = "log-level"
	FlagLogFile     = "log-file"
)

// AddOptimizeFlags registers the pipeline flags on fs. Defaults come from
// Default so help output matches an empty config.
func AddOptimizeFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int(FlagCache, d.Optimize.VertexCache, "Vertex cache size to optimize for (0 = strip order)")
	fs.Int(FlagRestart, d.Optimize.Restart, "Strip restart threshold")
	fs.Float32(FlagEpsilon, d.Optimize.Epsilon, "Distance under which positions merge (0 = exact)")
	fs.Bool(FlagNoBowties, false, "Leave bowtie vertices shared")
	fs.String(FlagNormals, d.Optimize.Normals, "Normals: keep, angle, area or equal")
	fs.Bool(FlagWindCW, d.Optimize.WindCW, "Front faces are clockwise")
	fs.Bool(FlagTangents, d.Optimize.Tangents, "Compute tangent frames")
	fs.Int(FlagCleanPasses, d.Optimize.MaxCleanPasses, "Maximum clean/validate passes")
	fs.String(FlagFormat, d.Output.Format, "Output format: obj or glb (default follows the input)")
	fs.Int(FlagJobs, d.Output.Jobs, "Models optimized concurrently")
}

// AddLoggingFlags registers the logging flags on fs.
func AddLoggingFlags(fs *pflag.FlagSet) {
	fs.String(FlagLogLevel, "", "Log level: debug, info, warn or error")
	fs.String(FlagLogFile, "", "Also log to this file (rotated)")
}

// ApplyFlags copies every flag the user actually set onto cfg (highest
// priority). Flags not registered on fs are ignored.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return err == nil && f != nil && f.Changed
	}

	if changed(FlagCache) {
		cfg.Optimize.VertexCache, err = fs.GetInt(FlagCache)
	}
	if changed(FlagRestart) {
		cfg.Optimize.Restart, err = fs.GetInt(FlagRestart)
	}
	if changed(FlagEpsilon) {
		cfg.Optimize.Epsilon, err = fs.GetFloat32(FlagEpsilon)
	}
	if changed(FlagNoBowties) {
		var noBowties bool
		noBowties, err = fs.GetBool(FlagNoBowties)
		cfg.Optimize.BreakBowties = !noBowties
	}
	if changed(FlagNormals) {
		cfg.Optimize.Normals, err = fs.GetString(FlagNormals)
	}
	if changed(FlagWindCW) {
		cfg.Optimize.WindCW, err = fs.GetBool(FlagWindCW)
	}
	if changed(FlagTangents) {
		cfg.Optimize.Tangents, err = fs.GetBool(FlagTangents)
	}
	if changed(FlagCleanPasses) {
		cfg.Optimize.MaxCleanPasses, err = fs.GetInt(FlagCleanPasses)
	}
	if changed(FlagFormat) {
		cfg.Output.Format, err = fs.GetString(FlagFormat)
	}
	if changed(FlagJobs) {
		cfg.Output.Jobs, err = fs.GetInt(FlagJobs)
	}
	if changed(FlagLogLevel) {
		cfg.Logging.Level, err = fs.GetString(FlagLogLevel)
	}
	if changed(FlagLogFile) {
		cfg.Logging.LogFile, err = fs.GetString(FlagLogFile)
	}
	return err
}
