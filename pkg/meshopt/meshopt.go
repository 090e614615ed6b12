// Package meshopt implements triangle-mesh topology and optimization:
// point representative and adjacency generation, validation and repair of
// topological defects, per-vertex normals and tangent frames, and
// vertex-cache aware face and vertex reordering with the remap bookkeeping
// needed to rewrite index and vertex buffers.
//
// Every function works on caller-owned buffers and keeps no state between
// calls. Functions with an InPlace suffix mutate their arguments; when they
// return an error other than ErrInvalidArgument the buffers may be partially
// rewritten and must be discarded.
//
// Index buffers hold three int32 entries per face. Unused (-1) marks an
// unused slot; a face with any Unused entry is an unused face. Adjacency
// buffers are parallel to the index buffer: adjacency[f*3+e] is the face
// sharing edge (indices[f*3+e], indices[f*3+(e+1)%3]), or Unused.
package meshopt

import (
	"fmt"
	"math"
)

// Unused marks an unused index, neighbor, or remap slot.
const Unused int32 = -1

// maxCount is the largest vertex or face count an int32 index can address.
const maxCount = math.MaxInt32

// faceCount checks that indices describes whole triangles and returns the
// number of faces.
func faceCount(indices []int32) (int, error) {
	if len(indices) == 0 {
		return 0, fmt.Errorf("empty index buffer: %w", ErrInvalidArgument)
	}
	if len(indices)%3 != 0 {
		return 0, fmt.Errorf("index count %d is not a multiple of 3: %w", len(indices), ErrInvalidArgument)
	}
	nFaces := len(indices) / 3
	if nFaces >= maxCount {
		return 0, fmt.Errorf("%d faces: %w", nFaces, ErrOverflow)
	}
	return nFaces, nil
}

// checkVertexCount rejects non-positive or unaddressable vertex counts.
func checkVertexCount(nVerts int) error {
	if nVerts <= 0 {
		return fmt.Errorf("vertex count %d: %w", nVerts, ErrInvalidArgument)
	}
	if nVerts >= maxCount {
		return fmt.Errorf("%d vertices: %w", nVerts, ErrOverflow)
	}
	return nil
}

// checkAdjacency verifies that adjacency, when present, is parallel to the
// index buffer.
func checkAdjacency(adjacency []int32, nFaces int) error {
	if adjacency != nil && len(adjacency) != nFaces*3 {
		return fmt.Errorf("adjacency length %d, want %d: %w", len(adjacency), nFaces*3, ErrInvalidArgument)
	}
	return nil
}

// isUnusedFace reports whether any corner of face is Unused.
func isUnusedFace(indices []int32, face int) bool {
	return indices[face*3] == Unused || indices[face*3+1] == Unused || indices[face*3+2] == Unused
}

// isDegenerate reports whether face repeats a vertex. Unused faces are
// not degenerate.
func isDegenerate(i0, i1, i2 int32) bool {
	if i0 == Unused || i1 == Unused || i2 == Unused {
		return false
	}
	return i0 == i1 || i1 == i2 || i0 == i2
}

// cornerOf returns the position (0..2) of vertex v within face, or -1.
func cornerOf(indices []int32, face int32, v int32) int {
	base := int(face) * 3
	switch v {
	case indices[base]:
		return 0
	case indices[base+1]:
		return 1
	case indices[base+2]:
		return 2
	}
	return -1
}

// faceHasNeighbor reports whether face lists neighbor on any edge.
func faceHasNeighbor(adjacency []int32, face int32, neighbor int32) bool {
	base := int(face) * 3
	return adjacency[base] == neighbor || adjacency[base+1] == neighbor || adjacency[base+2] == neighbor
}
