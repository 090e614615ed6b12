package meshopt

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/taigrr/meshforge/pkg/math3d"
)

// vertexFaces is a compressed vertex -> incident faces table.
type vertexFaces struct {
	offsets []int32 // len nVerts+1
	faces   []int32
}

// buildVertexFaces lists, for every vertex, the faces referencing it.
// Unused entries are skipped; any other index must be below nVerts.
func buildVertexFaces(indices []int32, nVerts int) (*vertexFaces, error) {
	offsets := make([]int32, nVerts+1)
	for i, v := range indices {
		if v == Unused {
			continue
		}
		if v < 0 || int(v) >= nVerts {
			return nil, fmt.Errorf("index %d at position %d exceeds vertex count %d: %w", v, i, nVerts, ErrIndexOutOfRange)
		}
		offsets[v+1]++
	}
	for v := 0; v < nVerts; v++ {
		offsets[v+1] += offsets[v]
	}

	faces := make([]int32, offsets[nVerts])
	fill := slices.Clone(offsets[:nVerts])
	for i, v := range indices {
		if v == Unused {
			continue
		}
		faces[fill[v]] = int32(i / 3)
		fill[v]++
	}
	return &vertexFaces{offsets: offsets, faces: faces}, nil
}

// of returns the faces incident to vertex v.
func (vf *vertexFaces) of(v int32) []int32 {
	return vf.faces[vf.offsets[v]:vf.offsets[v+1]]
}

// connected reports whether a and b are corners of a common face.
func (vf *vertexFaces) connected(indices []int32, a, b int32) bool {
	for _, face := range vf.of(a) {
		if cornerOf(indices, face, b) >= 0 {
			return true
		}
	}
	return false
}

// GeneratePointReps finds, for every vertex, the canonical vertex it
// coincides with. With epsilon == 0 positions must be bit-identical; with
// epsilon > 0 any vertex within epsilon (Euclidean) of an earlier
// representative merges into it. Vertices that already share a face are
// never merged, so the corners of thin wedges stay distinct.
//
// The result satisfies pointReps[pointReps[v]] == pointReps[v].
func GeneratePointReps(indices []int32, positions []math3d.Vec3, epsilon float32) ([]int32, error) {
	if _, err := faceCount(indices); err != nil {
		return nil, err
	}
	nVerts := len(positions)
	if err := checkVertexCount(nVerts); err != nil {
		return nil, err
	}
	if epsilon < 0 {
		return nil, fmt.Errorf("negative epsilon %g: %w", epsilon, ErrInvalidArgument)
	}

	vf, err := buildVertexFaces(indices, nVerts)
	if err != nil {
		return nil, err
	}

	pointReps := make([]int32, nVerts)
	if epsilon == 0 {
		exactPointReps(indices, positions, vf, pointReps)
	} else {
		sweepPointReps(indices, positions, vf, epsilon, pointReps)
	}
	return pointReps, nil
}

// exactPointReps hashes raw position bits. Only representatives are ever
// inserted into the table, which keeps the mapping idempotent.
func exactPointReps(indices []int32, positions []math3d.Vec3, vf *vertexFaces, pointReps []int32) {
	nVerts := len(positions)
	hashSize := uint32(max(nVerts/3, 1))

	heads := make([]int32, hashSize)
	for i := range heads {
		heads[i] = Unused
	}
	next := make([]int32, nVerts)

	for vert := range nVerts {
		bits := positions[vert].Bits()
		key := (bits[0] + bits[1] + bits[2]) % hashSize

		found := Unused
		for cur := heads[key]; cur != Unused; cur = next[cur] {
			if positions[cur].Bits() != bits {
				continue
			}
			if !vf.connected(indices, int32(vert), cur) {
				found = cur
				break
			}
		}

		if found != Unused {
			pointReps[vert] = found
			continue
		}
		pointReps[vert] = int32(vert)
		next[vert] = heads[key]
		heads[key] = int32(vert)
	}
}

// sweepPointReps sorts vertices along X and compares each one against the
// window of earlier vertices no further than epsilon away on that axis.
func sweepPointReps(indices []int32, positions []math3d.Vec3, vf *vertexFaces, epsilon float32, pointReps []int32) {
	nVerts := len(positions)
	xorder := make([]int32, nVerts)
	for i := range xorder {
		xorder[i] = int32(i)
	}
	slices.SortStableFunc(xorder, func(a, b int32) int {
		return cmp.Compare(positions[a].X, positions[b].X)
	})

	epsilonSq := epsilon * epsilon
	head := 0
	for tail := range nVerts {
		tailIndex := xorder[tail]
		tailPos := positions[tailIndex]
		for head < tail && tailPos.X-positions[xorder[head]].X > epsilon {
			head++
		}

		pointReps[tailIndex] = tailIndex
		for cur := head; cur < tail; cur++ {
			curIndex := xorder[cur]
			if pointReps[curIndex] != curIndex {
				continue
			}
			if positions[curIndex].Sub(tailPos).LenSq() > epsilonSq {
				continue
			}
			if vf.connected(indices, tailIndex, curIndex) {
				continue
			}
			pointReps[tailIndex] = curIndex
			break
		}
	}
}
