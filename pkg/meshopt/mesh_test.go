package meshopt

import (
	"slices"
	"testing"

	"github.com/chewxy/math32"

	"github.com/taigrr/meshforge/pkg/math3d"
)

// gridMesh returns a welded w x h grid of quads in the XY plane, two
// counter-clockwise triangles per quad.
func gridMesh(w, h int) ([]int32, []math3d.Vec3) {
	var positions []math3d.Vec3
	for y := 0; y <= h; y++ {
		for x := 0; x <= w; x++ {
			positions = append(positions, math3d.V3(float32(x), float32(y), 0))
		}
	}
	var indices []int32
	for y := range h {
		for x := range w {
			a := int32(y*(w+1) + x)
			b := a + 1
			c := a + int32(w) + 2
			d := a + int32(w) + 1
			indices = append(indices, a, b, c, a, c, d)
		}
	}
	return indices, positions
}

// unitSquare is the two-face square shared by several tests.
func unitSquare() ([]int32, []math3d.Vec3) {
	return []int32{0, 1, 2, 0, 2, 3}, []math3d.Vec3{
		math3d.V3(0, 0, 0),
		math3d.V3(1, 0, 0),
		math3d.V3(1, 1, 0),
		math3d.V3(0, 1, 0),
	}
}

// closedFan returns n faces around vertex 0 with rim vertices 1..n.
func closedFan(n int) ([]int32, []math3d.Vec3) {
	indices := []int32{}
	positions := []math3d.Vec3{math3d.V3(0, 0, 0)}
	for i := range n {
		a := 2 * math32.Pi * float32(i) / float32(n)
		positions = append(positions, math3d.V3(math32.Cos(a), math32.Sin(a), 0))
		indices = append(indices, 0, int32(i+1), int32((i+1)%n+1))
	}
	return indices, positions
}

// twoFans returns two three-face fans that meet only at vertex 0.
func twoFans() ([]int32, []math3d.Vec3) {
	indices := []int32{
		0, 1, 2, 0, 2, 3, 0, 3, 4,
		0, 5, 6, 0, 6, 7, 0, 7, 8,
	}
	positions := []math3d.Vec3{
		math3d.V3(0, 0, 0),
		math3d.V3(1, 0, 0),
		math3d.V3(1, 1, 0),
		math3d.V3(0, 1, 0),
		math3d.V3(-1, 1, 0),
		math3d.V3(-1, -1, 0),
		math3d.V3(0, -1, 0),
		math3d.V3(1, -1, 0),
		math3d.V3(2, -1, 0),
	}
	return indices, positions
}

func mustAdjacency(t *testing.T, indices []int32, positions []math3d.Vec3) []int32 {
	t.Helper()
	_, adjacency, err := GenerateAdjacencyAndPointReps(indices, positions, 0)
	if err != nil {
		t.Fatalf("GenerateAdjacencyAndPointReps: %v", err)
	}
	return adjacency
}

// faceTriples returns the used faces of indices, sorted, for multiset
// comparisons.
func faceTriples(indices []int32) [][3]int32 {
	var out [][3]int32
	for f := 0; f < len(indices)/3; f++ {
		if isUnusedFace(indices, f) {
			continue
		}
		out = append(out, [3]int32{indices[f*3], indices[f*3+1], indices[f*3+2]})
	}
	slices.SortFunc(out, func(a, b [3]int32) int {
		return slices.Compare(a[:], b[:])
	})
	return out
}

func checkSymmetric(t *testing.T, adjacency []int32) {
	t.Helper()
	for i, g := range adjacency {
		if g == Unused {
			continue
		}
		if !faceHasNeighbor(adjacency, g, int32(i/3)) {
			t.Errorf("face %d lists %d on edge %d, which does not list it back", i/3, g, i%3)
		}
	}
}
