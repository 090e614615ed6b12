package meshopt

import "fmt"

// FinalizeIB returns a copy of indices rewritten through vertexRemap
// (vertexRemap[new] = old). The vertex count is len(vertexRemap), which
// includes any duplicates appended by Clean.
func FinalizeIB(indices []int32, vertexRemap []int32) ([]int32, error) {
	out := make([]int32, len(indices))
	copy(out, indices)
	if err := FinalizeIBInPlace(out, vertexRemap); err != nil {
		return nil, err
	}
	return out, nil
}

// FinalizeIBInPlace rewrites indices through vertexRemap.
func FinalizeIBInPlace(indices []int32, vertexRemap []int32) error {
	if _, err := faceCount(indices); err != nil {
		return err
	}
	nVerts := len(vertexRemap)
	if err := checkVertexCount(nVerts); err != nil {
		return err
	}
	if err := checkRemap(vertexRemap, nVerts, "vertex"); err != nil {
		return err
	}

	inverse := invertRemap(vertexRemap, nVerts)
	for i, v := range indices {
		if v == Unused {
			continue
		}
		if v < 0 || int(v) >= nVerts {
			return fmt.Errorf("index %d at position %d exceeds vertex count %d: %w", v, i, nVerts, ErrIndexOutOfRange)
		}
		if inverse[v] == Unused {
			return fmt.Errorf("vertex %d is referenced but dropped by the remap: %w", v, ErrInvalidArgument)
		}
		indices[i] = inverse[v]
	}
	return nil
}

// vertexSources resolves the source record of every vertex once duplicates
// are appended: vertex k < nVerts is itself, vertex nVerts+d is dups[d].
func vertexSources(nVerts int, dups []int32) ([]int32, error) {
	total := nVerts + len(dups)
	if total >= maxCount {
		return nil, fmt.Errorf("%d vertices plus %d duplicates: %w", nVerts, len(dups), ErrOverflow)
	}
	sources := make([]int32, total)
	for v := range nVerts {
		sources[v] = int32(v)
	}
	for d, orig := range dups {
		if orig < 0 || int(orig) >= nVerts {
			return nil, fmt.Errorf("duplicate %d copies vertex %d outside %d: %w", d, orig, nVerts, ErrIndexOutOfRange)
		}
		sources[nVerts+d] = orig
	}
	return sources, nil
}

func vbVertexCount(vb []byte, stride int) (int, error) {
	if stride <= 0 {
		return 0, fmt.Errorf("stride %d: %w", stride, ErrInvalidArgument)
	}
	if len(vb) == 0 || len(vb)%stride != 0 {
		return 0, fmt.Errorf("vertex buffer of %d bytes is not a multiple of stride %d: %w", len(vb), stride, ErrInvalidArgument)
	}
	nVerts := len(vb) / stride
	if err := checkVertexCount(nVerts); err != nil {
		return 0, err
	}
	return nVerts, nil
}

// FinalizeVB copies the fixed-stride vertex records of vb into a new
// buffer, appending one record per entry of dups and then applying
// vertexRemap (vertexRemap[new] = old, nil for identity). Records for
// Unused remap slots are zeroed.
func FinalizeVB(vb []byte, stride int, dups []int32, vertexRemap []int32) ([]byte, error) {
	nVerts, err := vbVertexCount(vb, stride)
	if err != nil {
		return nil, err
	}
	sources, err := vertexSources(nVerts, dups)
	if err != nil {
		return nil, err
	}
	total := len(sources)
	if vertexRemap != nil {
		if err := checkRemap(vertexRemap, total, "vertex"); err != nil {
			return nil, err
		}
	}

	out := make([]byte, total*stride)
	for j := range total {
		src := int32(j)
		if vertexRemap != nil {
			src = vertexRemap[j]
		}
		if src == Unused {
			continue
		}
		from := int(sources[src]) * stride
		copy(out[j*stride:(j+1)*stride], vb[from:from+stride])
	}
	return out, nil
}

// FinalizeVBInPlace applies vertexRemap to vb without a second buffer.
// Duplicates cannot be appended in place; use FinalizeVB for that.
func FinalizeVBInPlace(vb []byte, stride int, vertexRemap []int32) error {
	nVerts, err := vbVertexCount(vb, stride)
	if err != nil {
		return err
	}
	if err := checkRemap(vertexRemap, nVerts, "vertex"); err != nil {
		return err
	}
	permuteInPlace(vb, stride, vertexRemap, 0)
	return nil
}

// FinalizeVBAndPointReps is FinalizeVB that also carries pointReps through
// the same transform. Appended duplicates take their original's
// representative. When a representative is dropped by the remap, the
// vertices it represented point at the first surviving vertex that shared
// it, which is at worst the vertex itself.
func FinalizeVBAndPointReps(vb []byte, stride int, pointReps []int32, dups []int32, vertexRemap []int32) (outVB []byte, outPointReps []int32, err error) {
	nVerts, err := vbVertexCount(vb, stride)
	if err != nil {
		return nil, nil, err
	}
	if len(pointReps) != nVerts {
		return nil, nil, fmt.Errorf("point rep count %d, want %d: %w", len(pointReps), nVerts, ErrInvalidArgument)
	}
	for v, r := range pointReps {
		if r < 0 || int(r) >= nVerts {
			return nil, nil, fmt.Errorf("point rep %d of vertex %d exceeds %d: %w", r, v, nVerts, ErrIndexOutOfRange)
		}
	}

	outVB, err = FinalizeVB(vb, stride, dups, vertexRemap)
	if err != nil {
		return nil, nil, err
	}

	sources, _ := vertexSources(nVerts, dups)
	total := len(sources)
	reps := make([]int32, total)
	for v := range total {
		reps[v] = pointReps[sources[v]]
	}

	remap := vertexRemap
	if remap == nil {
		remap = make([]int32, total)
		for i := range remap {
			remap[i] = int32(i)
		}
	}
	inverse := invertRemap(remap, total)

	firstKept := make([]int32, total)
	for i := range firstKept {
		firstKept[i] = Unused
	}
	for j, src := range remap {
		if src != Unused && firstKept[reps[src]] == Unused {
			firstKept[reps[src]] = int32(j)
		}
	}

	outPointReps = make([]int32, total)
	for j, src := range remap {
		if src == Unused {
			outPointReps[j] = Unused
			continue
		}
		r := reps[src]
		if nr := inverse[r]; nr != Unused {
			outPointReps[j] = nr
		} else {
			outPointReps[j] = firstKept[r]
		}
	}
	return outVB, outPointReps, nil
}

// CompactVB is FinalizeVB for remaps whose Unused entries all sit at the
// end, as OptimizeVertices produces; the dropped tail is cut off instead of
// zeroed.
func CompactVB(vb []byte, stride int, dups []int32, vertexRemap []int32) ([]byte, error) {
	kept := len(vertexRemap)
	for kept > 0 && vertexRemap[kept-1] == Unused {
		kept--
	}
	for j := range kept {
		if vertexRemap[j] == Unused {
			return nil, fmt.Errorf("unused vertex slot %d before the trailing block: %w", j, ErrInvalidArgument)
		}
	}
	out, err := FinalizeVB(vb, stride, dups, vertexRemap)
	if err != nil {
		return nil, err
	}
	return out[:kept*stride], nil
}
