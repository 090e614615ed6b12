package meshopt

import "fmt"

// OptimizeVertices returns a vertex remap in order of first use:
// vertexRemap[new] = old, where new counts up as indices first reference
// each vertex. Vertices never referenced are dropped and fill the trailing
// trailingUnused slots with Unused.
//
// Note the direction: the old -> new table is only built internally. Both
// FinalizeIB and FinalizeVB expect the first-use order.
func OptimizeVertices(indices []int32, nVerts int) (vertexRemap []int32, trailingUnused int, err error) {
	if _, err := faceCount(indices); err != nil {
		return nil, 0, err
	}
	if err := checkVertexCount(nVerts); err != nil {
		return nil, 0, err
	}

	order := make([]int32, nVerts) // old -> new
	for i := range order {
		order[i] = Unused
	}
	vertexRemap = make([]int32, nVerts)
	next := int32(0)
	for i, v := range indices {
		if v == Unused {
			continue
		}
		if v < 0 || int(v) >= nVerts {
			return nil, 0, fmt.Errorf("index %d at position %d exceeds vertex count %d: %w", v, i, nVerts, ErrIndexOutOfRange)
		}
		if order[v] == Unused {
			order[v] = next
			vertexRemap[next] = v
			next++
		}
	}
	for j := int(next); j < nVerts; j++ {
		vertexRemap[j] = Unused
	}
	return vertexRemap, nVerts - int(next), nil
}
