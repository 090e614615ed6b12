// Package pipeline runs the full mesh optimization flow over flat buffers:
// point representatives and adjacency, validation and cleaning, attribute
// sorting, face and vertex reordering, and buffer finalization.
package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
	"github.com/taigrr/meshforge/pkg/models"
)

// Buffers is the flat mesh the pipeline consumes and produces.
type Buffers = models.Buffers

// Stats summarizes one run.
type Stats struct {
	RunID            string  `yaml:"run_id"`
	Faces            int     `yaml:"faces"`
	FacesOut         int     `yaml:"faces_out"`
	Vertices         int     `yaml:"vertices"`
	VerticesOut      int     `yaml:"vertices_out"`
	Duplicates       int     `yaml:"duplicates"`
	Defects          int     `yaml:"defects"`
	RemainingDefects int     `yaml:"remaining_defects"`
	CleanPasses      int     `yaml:"clean_passes"`
	Valid            bool    `yaml:"valid"`
	Subsets          int     `yaml:"subsets"`
	CacheSize        int     `yaml:"cache_size"`
	ACMRBefore       float32 `yaml:"acmr_before"`
	ATVRBefore       float32 `yaml:"atvr_before"`
	ACMRAfter        float32 `yaml:"acmr_after"`
	ATVRAfter        float32 `yaml:"atvr_after"`
}

// Result holds the optimized buffers and the bookkeeping that relates
// them to the input.
type Result struct {
	Buffers Buffers
	// PointReps and Adjacency describe the output buffers.
	PointReps []int32
	Adjacency []int32
	// Duplicates lists, per vertex appended by cleaning, the input vertex
	// it copies.
	Duplicates []int32
	// FaceRemap[new] is the input face of output face new.
	FaceRemap []int32
	// VertexRemap[new] is the input vertex of output vertex new; values
	// at or past the input vertex count index Duplicates.
	VertexRemap []int32
	Stats       Stats
}

// SourceVertex resolves VertexRemap through Duplicates to an input vertex.
func (r *Result) SourceVertex(v int) int {
	src := int(r.VertexRemap[v])
	if n := r.Stats.Vertices; src >= n {
		src = int(r.Duplicates[src-n])
	}
	return src
}

// Run optimizes in. The input buffers are not modified. A nil logger
// discards output.
func Run(ctx context.Context, in Buffers, opts Options, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	if err := checkBuffers(in); err != nil {
		return nil, err
	}

	r := &runner{
		ctx:  ctx,
		opts: opts,
		log:  log,
		in:   in,
	}
	r.stats.RunID = uuid.NewString()
	r.log = log.With(zap.String("run", r.stats.RunID))
	return r.run()
}

func checkBuffers(in Buffers) error {
	n := len(in.Positions)
	if n == 0 {
		return fmt.Errorf("no positions: %w", meshopt.ErrInvalidArgument)
	}
	if len(in.Indices) == 0 || len(in.Indices)%3 != 0 {
		return fmt.Errorf("index count %d does not describe whole faces: %w", len(in.Indices), meshopt.ErrInvalidArgument)
	}
	if in.Normals != nil && len(in.Normals) != n {
		return fmt.Errorf("%d normals for %d positions: %w", len(in.Normals), n, meshopt.ErrInvalidArgument)
	}
	if in.UVs != nil && len(in.UVs) != n {
		return fmt.Errorf("%d uvs for %d positions: %w", len(in.UVs), n, meshopt.ErrInvalidArgument)
	}
	if in.Attributes != nil && len(in.Attributes) != len(in.Indices)/3 {
		return fmt.Errorf("%d attributes for %d faces: %w", len(in.Attributes), len(in.Indices)/3, meshopt.ErrInvalidArgument)
	}
	return nil
}

type runner struct {
	ctx   context.Context
	opts  Options
	log   *zap.Logger
	in    Buffers
	stats Stats

	indices    []int32
	adjacency  []int32
	pointReps  []int32
	attributes []uint32
	dups       []int32
	faceRemap  []int32
	nVerts     int
}

// stage checks for cancellation and logs the stage about to run.
func (r *runner) stage(name string, fields ...zap.Field) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.log.Debug("stage", append([]zap.Field{zap.String("stage", name)}, fields...)...)
	return nil
}

func (r *runner) run() (*Result, error) {
	nOrig := len(r.in.Positions)
	nFaces := len(r.in.Indices) / 3
	r.nVerts = nOrig
	r.stats.Faces = nFaces
	r.stats.Vertices = nOrig
	r.stats.CacheSize = r.opts.VertexCache
	if r.stats.CacheSize == meshopt.StripOrder {
		r.stats.CacheSize = meshopt.DefaultVertexCache
	}

	r.indices = slices.Clone(r.in.Indices)
	r.attributes = slices.Clone(r.in.Attributes)

	var err error
	r.stats.ACMRBefore, r.stats.ATVRBefore, err = meshopt.ComputeVertexCacheMissRate(r.indices, nOrig, r.stats.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("measure input: %w", err)
	}

	if err := r.stage("adjacency", zap.Int("faces", nFaces), zap.Int("vertices", nOrig)); err != nil {
		return nil, err
	}
	r.pointReps, r.adjacency, err = meshopt.GenerateAdjacencyAndPointReps(r.indices, r.in.Positions, r.opts.Epsilon)
	if err != nil {
		return nil, fmt.Errorf("generate adjacency: %w", err)
	}

	if err := r.clean(); err != nil {
		return nil, err
	}
	if err := r.reorderFaces(); err != nil {
		return nil, err
	}
	out, err := r.finalize()
	if err != nil {
		return nil, err
	}
	if err := r.geometry(&out.Buffers); err != nil {
		return nil, err
	}

	out.Stats = r.stats
	r.log.Info("mesh optimized",
		zap.Int("faces", r.stats.FacesOut),
		zap.Int("vertices", r.stats.VerticesOut),
		zap.Int("duplicates", r.stats.Duplicates),
		zap.Int("clean_passes", r.stats.CleanPasses),
		zap.Bool("valid", r.stats.Valid),
		zap.Float32("acmr_before", r.stats.ACMRBefore),
		zap.Float32("acmr_after", r.stats.ACMRAfter),
	)
	return out, nil
}

func (r *runner) validateFlags() meshopt.ValidateFlags {
	flags := meshopt.ValidateBackfacing | meshopt.ValidateAsymmetricAdjacency | meshopt.ValidateUnused
	if r.opts.BreakBowties {
		flags |= meshopt.ValidateBowties
	}
	return flags
}

// validate runs the checks the cleaner can repair and logs every defect.
func (r *runner) validate(pass int) (ok bool, defects int, err error) {
	report := func(msg string) {
		defects++
		r.log.Warn("mesh defect", zap.Int("pass", pass), zap.String("defect", msg))
	}
	ok, err = meshopt.Validate(r.indices, r.nVerts, r.adjacency, r.validateFlags(), report)
	if err != nil {
		return false, 0, fmt.Errorf("validate: %w", err)
	}
	return ok, defects, nil
}

// clean repairs the mesh until it validates or MaxCleanPasses runs out.
// One pass always runs so vertices shared across attributes get split.
func (r *runner) clean() error {
	if err := r.stage("validate"); err != nil {
		return err
	}
	_, defects, err := r.validate(0)
	if err != nil {
		return err
	}
	r.stats.Defects = defects

	nOrig := len(r.in.Positions)
	for pass := 1; ; pass++ {
		if err := r.stage("clean", zap.Int("pass", pass)); err != nil {
			return err
		}
		added, err := meshopt.Clean(r.indices, r.nVerts, r.adjacency, r.attributes, r.opts.BreakBowties)
		if err != nil {
			return fmt.Errorf("clean pass %d: %w", pass, err)
		}
		for _, d := range added {
			// Later passes may copy earlier duplicates.
			if int(d) >= nOrig {
				d = r.dups[int(d)-nOrig]
			}
			r.dups = append(r.dups, d)
		}
		r.nVerts += len(added)
		r.stats.CleanPasses = pass

		ok, remaining, err := r.validate(pass)
		if err != nil {
			return err
		}
		if ok {
			r.stats.Valid = true
			break
		}
		if pass >= r.opts.MaxCleanPasses {
			r.stats.RemainingDefects = remaining
			r.log.Warn("mesh still has defects after cleaning",
				zap.Int("passes", pass), zap.Int("defects", remaining))
			break
		}
	}
	r.stats.Duplicates = len(r.dups)
	return nil
}

// reorderFaces sorts faces by attribute, then orders each attribute run
// for the vertex cache. Faces the optimizer leaves out are cut off.
func (r *runner) reorderFaces() error {
	nFaces := len(r.indices) / 3
	r.faceRemap = make([]int32, nFaces)
	for i := range r.faceRemap {
		r.faceRemap[i] = int32(i)
	}

	if r.attributes != nil {
		if err := r.stage("attribute sort"); err != nil {
			return err
		}
		sortRemap, err := meshopt.AttributeSort(r.attributes)
		if err != nil {
			return fmt.Errorf("sort attributes: %w", err)
		}
		if err := meshopt.ReorderIBAndAdjacencyInPlace(r.indices, r.adjacency, sortRemap); err != nil {
			return fmt.Errorf("apply attribute order: %w", err)
		}
		r.faceRemap = sortRemap
	}

	if err := r.stage("optimize faces", zap.Int("cache", r.opts.VertexCache), zap.Int("restart", r.opts.Restart)); err != nil {
		return err
	}
	optRemap, err := meshopt.OptimizeFaces(r.indices, r.adjacency, r.attributes, r.opts.VertexCache, r.opts.Restart)
	if err != nil {
		return fmt.Errorf("optimize faces: %w", err)
	}
	if err := meshopt.ReorderIBAndAdjacencyInPlace(r.indices, r.adjacency, optRemap); err != nil {
		return fmt.Errorf("apply face order: %w", err)
	}

	kept := 0
	composed := make([]int32, 0, nFaces)
	var attrs []uint32
	for _, src := range optRemap {
		if src == meshopt.Unused {
			break
		}
		kept++
		composed = append(composed, r.faceRemap[src])
		if r.attributes != nil {
			attrs = append(attrs, r.attributes[src])
		}
	}
	if kept == 0 {
		return fmt.Errorf("no usable faces: %w", meshopt.ErrInvalidArgument)
	}
	r.faceRemap = composed
	r.attributes = attrs
	r.indices = r.indices[:kept*3]
	r.adjacency = r.adjacency[:kept*3]
	r.stats.FacesOut = kept
	r.stats.Subsets = len(meshopt.ComputeSubsets(r.attributes, kept))
	return nil
}

// finalize orders vertices by first use and rewrites both buffers.
func (r *runner) finalize() (*Result, error) {
	if err := r.stage("optimize vertices", zap.Int("vertices", r.nVerts)); err != nil {
		return nil, err
	}
	vertexRemap, trailing, err := meshopt.OptimizeVertices(r.indices, r.nVerts)
	if err != nil {
		return nil, fmt.Errorf("optimize vertices: %w", err)
	}
	if err := meshopt.FinalizeIBInPlace(r.indices, vertexRemap); err != nil {
		return nil, fmt.Errorf("finalize indices: %w", err)
	}

	if err := r.stage("finalize vertices", zap.Int("duplicates", len(r.dups)), zap.Int("dropped", trailing)); err != nil {
		return nil, err
	}
	vb, err := packVertices(r.in.Positions, r.in.Normals, r.in.UVs)
	if err != nil {
		return nil, err
	}
	outVB, outReps, err := meshopt.FinalizeVBAndPointReps(vb, vertexStride, r.pointReps, r.dups, vertexRemap)
	if err != nil {
		return nil, fmt.Errorf("finalize vertices: %w", err)
	}
	kept := len(vertexRemap) - trailing
	outVB = outVB[:kept*vertexStride]

	positions, normals, uvs, err := unpackVertices(outVB, r.in.Normals != nil, r.in.UVs != nil)
	if err != nil {
		return nil, err
	}

	r.stats.VerticesOut = kept
	r.stats.ACMRAfter, r.stats.ATVRAfter, err = meshopt.ComputeVertexCacheMissRate(r.indices, kept, r.stats.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("measure output: %w", err)
	}

	return &Result{
		Buffers: Buffers{
			Indices:    r.indices,
			Positions:  positions,
			Normals:    normals,
			UVs:        uvs,
			Attributes: r.attributes,
		},
		PointReps:   outReps[:kept],
		Adjacency:   r.adjacency,
		Duplicates:  r.dups,
		FaceRemap:   r.faceRemap,
		VertexRemap: vertexRemap[:kept],
	}, nil
}

// geometry recomputes normals and tangent frames on the final buffers.
func (r *runner) geometry(b *Buffers) error {
	mode := r.opts.Normals
	if mode == "" {
		mode = NormalsKeep
	}
	if mode == NormalsKeep && r.opts.Tangents && b.Normals == nil {
		mode = NormalsAngle
		r.log.Debug("no input normals, computing them for tangent frames")
	}

	if mode != NormalsKeep {
		if err := r.stage("normals", zap.String("mode", string(mode))); err != nil {
			return err
		}
		flags := mode.flags()
		if r.opts.WindCW {
			flags |= meshopt.NormalsWindCW
		}
		normals, err := meshopt.ComputeNormals(b.Indices, b.Positions, flags)
		if err != nil {
			return fmt.Errorf("compute normals: %w", err)
		}
		b.Normals = normals
	}

	if !r.opts.Tangents {
		return nil
	}
	if err := r.stage("tangents"); err != nil {
		return err
	}
	if b.UVs == nil {
		return fmt.Errorf("tangent frames need texture coordinates: %w", meshopt.ErrInvalidArgument)
	}

	// Vertices touched only by degenerate faces have no normal.
	normals := slices.Clone(b.Normals)
	for i, n := range normals {
		if n.LenSq() == 0 {
			normals[i] = math3d.V3(0, 0, 1)
		}
	}
	tangents, err := meshopt.ComputeTangentFrameHandedness(b.Indices, b.Positions, normals, b.UVs)
	if err != nil {
		return fmt.Errorf("compute tangent frames: %w", err)
	}
	b.Tangents = tangents
	return nil
}
