package meshopt

import (
	"fmt"

	"github.com/taigrr/meshforge/pkg/math3d"
)

// edgeEntry is one directed edge v1 -> v2 of face, with the face's third
// point kept for orientation checks. Values are point representatives.
type edgeEntry struct {
	v1, v2, vOther int32
	face           int32
}

// edgeTable is a chained hash of directed edges keyed by v1. Entry slots are
// numbered face*3+edge so a matched entry directly names the neighbor's edge.
// An entry stays linked exactly while its edge is unpaired.
type edgeTable struct {
	entries []edgeEntry
	heads   []int32
	next    []int32
	prev    []int32
	size    uint32
}

func newEdgeTable(nFaces, nVerts int) *edgeTable {
	t := &edgeTable{
		entries: make([]edgeEntry, nFaces*3),
		heads:   make([]int32, max(nVerts/3, 1)),
		next:    make([]int32, nFaces*3),
		prev:    make([]int32, nFaces*3),
	}
	t.size = uint32(len(t.heads))
	for i := range t.heads {
		t.heads[i] = Unused
	}
	return t
}

func (t *edgeTable) bucket(v int32) uint32 {
	return uint32(v) % t.size
}

func (t *edgeTable) insert(slot int32, e edgeEntry) {
	t.entries[slot] = e
	key := t.bucket(e.v1)
	t.prev[slot] = Unused
	t.next[slot] = t.heads[key]
	if t.heads[key] != Unused {
		t.prev[t.heads[key]] = slot
	}
	t.heads[key] = slot
}

func (t *edgeTable) remove(slot int32) {
	if p := t.prev[slot]; p != Unused {
		t.next[p] = t.next[slot]
	} else {
		t.heads[t.bucket(t.entries[slot].v1)] = t.next[slot]
	}
	if n := t.next[slot]; n != Unused {
		t.prev[n] = t.prev[slot]
	}
	t.next[slot], t.prev[slot] = Unused, Unused
}

// GenerateAdjacencyAndPointReps computes point representatives with the
// given epsilon and derives the face adjacency from them.
func GenerateAdjacencyAndPointReps(indices []int32, positions []math3d.Vec3, epsilon float32) (pointReps, adjacency []int32, err error) {
	pointReps, err = GeneratePointReps(indices, positions, epsilon)
	if err != nil {
		return nil, nil, err
	}
	adjacency, err = ConvertPointRepsToAdjacency(indices, positions, pointReps)
	if err != nil {
		return nil, nil, err
	}
	return pointReps, adjacency, nil
}

// ConvertPointRepsToAdjacency pairs every edge of every used, non-degenerate
// face with at most one opposite-direction edge of another face. Edges are
// compared through pointReps, so coincident but distinct vertices still
// connect; nil pointReps means every vertex represents itself.
//
// When an edge is shared by more than two faces, the candidate whose normal
// is closest to the current face's normal wins. Paired edges leave the
// table, so each edge is used by one pairing only.
func ConvertPointRepsToAdjacency(indices []int32, positions []math3d.Vec3, pointReps []int32) ([]int32, error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return nil, err
	}
	nVerts := len(positions)
	if err := checkVertexCount(nVerts); err != nil {
		return nil, err
	}
	if pointReps != nil && len(pointReps) != nVerts {
		return nil, fmt.Errorf("point rep count %d, want %d: %w", len(pointReps), nVerts, ErrInvalidArgument)
	}

	rep := func(v int32) int32 {
		if pointReps == nil {
			return v
		}
		return pointReps[v]
	}

	for i, v := range indices {
		if v == Unused {
			continue
		}
		if v < 0 || int(v) >= nVerts {
			return nil, fmt.Errorf("index %d at position %d exceeds vertex count %d: %w", v, i, nVerts, ErrIndexOutOfRange)
		}
		if r := rep(v); r < 0 || int(r) >= nVerts {
			return nil, fmt.Errorf("point rep %d for vertex %d exceeds vertex count %d: %w", r, v, nVerts, ErrIndexOutOfRange)
		}
	}

	table := newEdgeTable(nFaces, nVerts)
	faceReps := func(face int) ([3]int32, bool) {
		if isUnusedFace(indices, face) {
			return [3]int32{}, false
		}
		v := [3]int32{rep(indices[face*3]), rep(indices[face*3+1]), rep(indices[face*3+2])}
		if isDegenerate(v[0], v[1], v[2]) {
			return v, false
		}
		return v, true
	}

	for face := range nFaces {
		v, ok := faceReps(face)
		if !ok {
			continue
		}
		for point := range 3 {
			table.insert(int32(face*3+point), edgeEntry{
				v1:     v[point],
				v2:     v[(point+1)%3],
				vOther: v[(point+2)%3],
				face:   int32(face),
			})
		}
	}

	adjacency := make([]int32, nFaces*3)
	for i := range adjacency {
		adjacency[i] = Unused
	}

	for face := range nFaces {
		v, ok := faceReps(face)
		if !ok {
			continue
		}
		normal := triangleNormal(positions, v[0], v[1], v[2])

		for point := range 3 {
			slot := int32(face*3 + point)
			if adjacency[slot] != Unused {
				continue
			}

			// The neighbor walks this edge in the opposite direction.
			va, vb := v[(point+1)%3], v[point]
			best := Unused
			var bestDiff float32 = -2
			for cur := table.heads[table.bucket(va)]; cur != Unused; cur = table.next[cur] {
				e := table.entries[cur]
				if e.v1 != va || e.v2 != vb || e.face == int32(face) {
					continue
				}
				diff := normal.Dot(triangleNormal(positions, e.v1, e.v2, e.vOther))
				if best == Unused || diff > bestDiff {
					best, bestDiff = cur, diff
				}
			}
			if best == Unused {
				continue
			}

			table.remove(best)
			table.remove(slot)
			adjacency[slot] = table.entries[best].face
			adjacency[best] = int32(face)
		}
	}

	return adjacency, nil
}

// triangleNormal returns the unit normal of (a, b, c), or zero when the
// triangle has no area.
func triangleNormal(positions []math3d.Vec3, a, b, c int32) math3d.Vec3 {
	p0 := positions[a]
	return positions[b].Sub(p0).Cross(positions[c].Sub(p0)).Normalize()
}
