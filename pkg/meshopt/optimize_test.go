package meshopt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/taigrr/meshforge/pkg/math3d"
)

func TestComputeVertexCacheMissRate(t *testing.T) {
	tests := []struct {
		name     string
		indices  []int32
		nVerts   int
		cache    int
		wantACMR float32
		wantATVR float32
	}{
		{"triangle", []int32{0, 1, 2}, 3, 12, 3, 1},
		{"square", []int32{0, 1, 2, 0, 2, 3}, 4, 12, 2, 1},
		{"square evicting", []int32{0, 1, 2, 0, 2, 3, 3, 1, 0}, 4, 3, 5.0 / 3, 5.0 / 4},
		{"unused face ignored", []int32{0, 1, 2, -1, -1, -1}, 3, 12, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acmr, atvr, err := ComputeVertexCacheMissRate(tt.indices, tt.nVerts, tt.cache)
			if err != nil {
				t.Fatalf("ComputeVertexCacheMissRate: %v", err)
			}
			if acmr != tt.wantACMR || atvr != tt.wantATVR {
				t.Errorf("ComputeVertexCacheMissRate = %v, %v, want %v, %v", acmr, atvr, tt.wantACMR, tt.wantATVR)
			}
		})
	}

	if _, _, err := ComputeVertexCacheMissRate([]int32{0, 1, 2}, 3, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero cache error = %v, want %v", err, ErrInvalidArgument)
	}
}

// shuffledGrid returns a welded grid with its faces in a fixed random order.
func shuffledGrid(w, h int) ([]int32, []math3d.Vec3) {
	indices, positions := gridMesh(w, h)
	nFaces := len(indices) / 3
	order := make([]int32, nFaces)
	for i := range order {
		order[i] = int32(i)
	}
	rng := rand.New(rand.NewPCG(42, 1))
	rng.Shuffle(nFaces, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	shuffled, _ := ReorderIB(indices, order)
	return shuffled, positions
}

func TestOptimizeFacesPreservesFaces(t *testing.T) {
	indices, positions := shuffledGrid(16, 16)
	adjacency := mustAdjacency(t, indices, positions)

	for _, cache := range []int{StripOrder, 6, DefaultVertexCache, 24} {
		restart := min(DefaultRestart, cache)
		faceRemap, err := OptimizeFaces(indices, adjacency, nil, cache, restart)
		if err != nil {
			t.Fatalf("OptimizeFaces(cache=%d): %v", cache, err)
		}
		if len(faceRemap) != len(indices)/3 {
			t.Fatalf("cache=%d: remap length = %d, want %d", cache, len(faceRemap), len(indices)/3)
		}
		sorted := slices.Clone(faceRemap)
		slices.Sort(sorted)
		for i, f := range sorted {
			if f != int32(i) {
				t.Fatalf("cache=%d: remap is not a permutation: %v", cache, sorted)
			}
		}

		out, err := ReorderIB(indices, faceRemap)
		if err != nil {
			t.Fatalf("ReorderIB: %v", err)
		}
		if !slices.Equal(faceTriples(out), faceTriples(indices)) {
			t.Errorf("cache=%d: reordered faces differ from the input faces", cache)
		}
	}
}

func TestOptimizeFacesImprovesACMR(t *testing.T) {
	indices, positions := shuffledGrid(16, 16)
	adjacency := mustAdjacency(t, indices, positions)

	for _, cache := range []int{4, 8, DefaultVertexCache, 16, 32} {
		before, _, err := ComputeVertexCacheMissRate(indices, len(positions), cache)
		if err != nil {
			t.Fatalf("ComputeVertexCacheMissRate: %v", err)
		}
		faceRemap, err := OptimizeFaces(indices, adjacency, nil, cache, min(DefaultRestart, cache))
		if err != nil {
			t.Fatalf("OptimizeFaces: %v", err)
		}
		out, err := ReorderIB(indices, faceRemap)
		if err != nil {
			t.Fatalf("ReorderIB: %v", err)
		}
		after, _, err := ComputeVertexCacheMissRate(out, len(positions), cache)
		if err != nil {
			t.Fatalf("ComputeVertexCacheMissRate: %v", err)
		}
		if after > before {
			t.Errorf("cache=%d: ACMR after = %v, before = %v", cache, after, before)
		}
	}
}

func TestOptimizeFacesNeverWorseThanInput(t *testing.T) {
	meshes := []struct {
		name  string
		build func() ([]int32, []math3d.Vec3)
	}{
		{"grid 16x16", func() ([]int32, []math3d.Vec3) { return gridMesh(16, 16) }},
		{"grid 24x4", func() ([]int32, []math3d.Vec3) { return gridMesh(24, 4) }},
		{"strip 2x12", func() ([]int32, []math3d.Vec3) { return gridMesh(2, 12) }},
		{"strip 3x10", func() ([]int32, []math3d.Vec3) { return gridMesh(3, 10) }},
		{"strip 3x4", func() ([]int32, []math3d.Vec3) { return gridMesh(3, 4) }},
		{"row 6x1", func() ([]int32, []math3d.Vec3) { return gridMesh(6, 1) }},
		{"closed fan", func() ([]int32, []math3d.Vec3) { return closedFan(8) }},
		{"shuffled 16x16", func() ([]int32, []math3d.Vec3) { return shuffledGrid(16, 16) }},
	}
	for _, m := range meshes {
		indices, positions := m.build()
		adjacency := mustAdjacency(t, indices, positions)
		for _, cache := range []int{3, 4, 6, 8, DefaultVertexCache, 16, 32} {
			t.Run(fmt.Sprintf("%s/cache %d", m.name, cache), func(t *testing.T) {
				before, _, err := ComputeVertexCacheMissRate(indices, len(positions), cache)
				if err != nil {
					t.Fatalf("ComputeVertexCacheMissRate: %v", err)
				}
				faceRemap, err := OptimizeFaces(indices, adjacency, nil, cache, min(DefaultRestart, cache))
				if err != nil {
					t.Fatalf("OptimizeFaces: %v", err)
				}
				out, err := ReorderIB(indices, faceRemap)
				if err != nil {
					t.Fatalf("ReorderIB: %v", err)
				}
				after, _, err := ComputeVertexCacheMissRate(out, len(positions), cache)
				if err != nil {
					t.Fatalf("ComputeVertexCacheMissRate: %v", err)
				}
				if after > before {
					t.Errorf("ACMR after = %v, input order = %v", after, before)
				}
			})
		}
	}
}

func TestOptimizeFacesSkipsDegenerate(t *testing.T) {
	indices := []int32{0, 1, 2, 0, 2, 3, 0, 0, 1}
	positions := []math3d.Vec3{
		math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(1, 1, 0), math3d.V3(0, 1, 0),
	}
	adjacency := mustAdjacency(t, indices, positions)
	faceRemap, err := OptimizeFaces(indices, adjacency, nil, DefaultVertexCache, DefaultRestart)
	if err != nil {
		t.Fatalf("OptimizeFaces: %v", err)
	}
	if faceRemap[2] != Unused {
		t.Errorf("faceRemap = %v, want the degenerate face dropped to a trailing %d", faceRemap, Unused)
	}
	head := slices.Clone(faceRemap[:2])
	slices.Sort(head)
	if !slices.Equal(head, []int32{0, 1}) {
		t.Errorf("faceRemap = %v, want faces 0 and 1 first", faceRemap)
	}
}

func TestOptimizeFacesKeepsAttributeRuns(t *testing.T) {
	indices, positions := gridMesh(4, 1)
	adjacency := mustAdjacency(t, indices, positions)
	attributes := []uint32{0, 0, 0, 0, 1, 1, 1, 1}

	for _, cache := range []int{StripOrder, DefaultVertexCache} {
		faceRemap, err := OptimizeFaces(indices, adjacency, attributes, cache, DefaultRestart)
		if err != nil {
			t.Fatalf("OptimizeFaces: %v", err)
		}
		for j, f := range faceRemap {
			if attributes[f] != attributes[j] {
				t.Errorf("cache=%d: slot %d holds face %d from another attribute run", cache, j, f)
			}
		}
	}
}

func TestOptimizeFacesErrors(t *testing.T) {
	indices, positions := unitSquare()
	adjacency := mustAdjacency(t, indices, positions)
	tests := []struct {
		name       string
		adjacency  []int32
		attributes []uint32
		cache      int
		restart    int
	}{
		{"nil adjacency", nil, nil, DefaultVertexCache, DefaultRestart},
		{"short adjacency", adjacency[:3], nil, DefaultVertexCache, DefaultRestart},
		{"tiny cache", adjacency, nil, 2, 0},
		{"restart beyond cache", adjacency, nil, 6, 7},
		{"negative restart", adjacency, nil, 6, -1},
		{"short attributes", adjacency, []uint32{0}, DefaultVertexCache, DefaultRestart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OptimizeFaces(indices, tt.adjacency, tt.attributes, tt.cache, tt.restart)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("OptimizeFaces error = %v, want %v", err, ErrInvalidArgument)
			}
		})
	}
}

func TestOptimizeVertices(t *testing.T) {
	indices := []int32{3, 1, 2, 3, 2, 0}
	remap, trailing, err := OptimizeVertices(indices, 5)
	if err != nil {
		t.Fatalf("OptimizeVertices: %v", err)
	}
	if want := []int32{3, 1, 2, 0, -1}; !slices.Equal(remap, want) {
		t.Errorf("vertexRemap = %v, want %v", remap, want)
	}
	if trailing != 1 {
		t.Errorf("trailingUnused = %d, want 1", trailing)
	}

	if _, _, err := OptimizeVertices([]int32{0, 1, 5}, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range error = %v, want %v", err, ErrIndexOutOfRange)
	}
}

func TestAttributeSort(t *testing.T) {
	attributes := []uint32{2, 0, 1, 0}
	faceRemap, err := AttributeSort(attributes)
	if err != nil {
		t.Fatalf("AttributeSort: %v", err)
	}
	if want := []int32{1, 3, 2, 0}; !slices.Equal(faceRemap, want) {
		t.Errorf("faceRemap = %v, want %v", faceRemap, want)
	}
	if want := []uint32{0, 0, 1, 2}; !slices.Equal(attributes, want) {
		t.Errorf("attributes = %v, want %v", attributes, want)
	}

	subsets := ComputeSubsets(attributes, len(attributes))
	want := []Subset{{0, 2}, {2, 1}, {3, 1}}
	if !slices.Equal(subsets, want) {
		t.Errorf("ComputeSubsets = %v, want %v", subsets, want)
	}

	if got := ComputeSubsets(nil, 5); !slices.Equal(got, []Subset{{0, 5}}) {
		t.Errorf("ComputeSubsets(nil) = %v, want one full subset", got)
	}
}
