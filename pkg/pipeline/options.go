package pipeline

import (
	"fmt"

	"github.com/taigrr/meshforge/pkg/meshopt"
)

// NormalsMode selects what happens to vertex normals after optimization.
type NormalsMode string

const (
	// NormalsKeep carries input normals through unchanged.
	NormalsKeep NormalsMode = "keep"
	// NormalsAngle recomputes normals weighted by corner angle.
	NormalsAngle NormalsMode = "angle"
	// NormalsArea recomputes normals weighted by face area.
	NormalsArea NormalsMode = "area"
	// NormalsEqual recomputes normals with every face weighted the same.
	NormalsEqual NormalsMode = "equal"
)

// ParseNormalsMode converts a config or flag string to a NormalsMode.
// The empty string means NormalsKeep.
func ParseNormalsMode(s string) (NormalsMode, error) {
	switch m := NormalsMode(s); m {
	case "":
		return NormalsKeep, nil
	case NormalsKeep, NormalsAngle, NormalsArea, NormalsEqual:
		return m, nil
	default:
		return "", fmt.Errorf("unknown normals mode %q (want keep, angle, area or equal)", s)
	}
}

func (m NormalsMode) flags() meshopt.NormalsFlags {
	switch m {
	case NormalsArea:
		return meshopt.NormalsWeightByArea
	case NormalsEqual:
		return meshopt.NormalsWeightEqual
	default:
		return meshopt.NormalsWeightByAngle
	}
}

// Options controls one pipeline run.
type Options struct {
	Epsilon        float32     // point-rep merge distance, 0 = exact
	BreakBowties   bool        // duplicate vertices shared by unconnected fans
	VertexCache    int         // simulated cache size, 0 = strip order
	Restart        int         // strip restart threshold
	Normals        NormalsMode // keep or recompute normals
	WindCW         bool        // front faces are clockwise
	Tangents       bool        // compute tangent frames (needs UVs)
	MaxCleanPasses int         // clean/validate rounds before giving up
}

// DefaultOptions mirrors the engine defaults.
func DefaultOptions() Options {
	return Options{
		BreakBowties:   true,
		VertexCache:    meshopt.DefaultVertexCache,
		Restart:        meshopt.DefaultRestart,
		Normals:        NormalsKeep,
		MaxCleanPasses: 3,
	}
}

// Validate reports the first unusable setting.
func (o Options) Validate() error {
	if o.Epsilon < 0 {
		return fmt.Errorf("epsilon %g must not be negative", o.Epsilon)
	}
	if o.VertexCache != meshopt.StripOrder && o.VertexCache < 3 {
		return fmt.Errorf("vertex cache %d must be 0 or at least 3", o.VertexCache)
	}
	if o.VertexCache != meshopt.StripOrder && (o.Restart < 0 || o.Restart > o.VertexCache) {
		return fmt.Errorf("restart %d must be between 0 and vertex cache %d", o.Restart, o.VertexCache)
	}
	if o.MaxCleanPasses < 1 {
		return fmt.Errorf("max clean passes %d must be at least 1", o.MaxCleanPasses)
	}
	if _, err := ParseNormalsMode(string(o.Normals)); err != nil {
		return err
	}
	return nil
}
