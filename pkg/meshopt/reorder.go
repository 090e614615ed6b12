package meshopt

import "fmt"

// checkRemap verifies that remap is a partial bijection onto [0, n):
// every entry is Unused or in range, and no entry repeats.
func checkRemap(remap []int32, n int, what string) error {
	if len(remap) != n {
		return fmt.Errorf("%s remap length %d, want %d: %w", what, len(remap), n, ErrInvalidArgument)
	}
	seen := make([]bool, n)
	for j, src := range remap {
		if src == Unused {
			continue
		}
		if src < 0 || int(src) >= n {
			return fmt.Errorf("%s remap entry %d = %d exceeds %d: %w", what, j, src, n, ErrIndexOutOfRange)
		}
		if seen[src] {
			return fmt.Errorf("%s remap references %d twice: %w", what, src, ErrInvalidArgument)
		}
		seen[src] = true
	}
	return nil
}

// invertRemap returns inverse[old] = new, Unused for dropped entries.
func invertRemap(remap []int32, n int) []int32 {
	inverse := make([]int32, n)
	for i := range inverse {
		inverse[i] = Unused
	}
	for j, src := range remap {
		if src != Unused {
			inverse[src] = int32(j)
		}
	}
	return inverse
}

// permuteInPlace applies out[j] = in[remap[j]] to fixed-size records of
// data, filling records whose remap entry is Unused with blank. remap must
// already be checked. Records nobody reads are consumed first, following
// each chain to its Unused end; what remains is pure cycles.
func permuteInPlace[T any](data []T, stride int, remap []int32, blank T) {
	n := len(remap)
	moved := make([]bool, n)
	wanted := make([]bool, n)
	for _, src := range remap {
		if src != Unused {
			wanted[src] = true
		}
	}

	copyRecord := func(dst, src int) {
		copy(data[dst*stride:(dst+1)*stride], data[src*stride:(src+1)*stride])
	}
	blankRecord := func(dst int) {
		for i := dst * stride; i < (dst+1)*stride; i++ {
			data[i] = blank
		}
	}

	for start := range n {
		if wanted[start] || moved[start] {
			continue
		}
		for k := start; ; {
			moved[k] = true
			src := remap[k]
			if src == Unused {
				blankRecord(k)
				break
			}
			copyRecord(k, int(src))
			k = int(src)
		}
	}

	tmp := make([]T, stride)
	for start := range n {
		if moved[start] {
			continue
		}
		copy(tmp, data[start*stride:(start+1)*stride])
		k := start
		for {
			moved[k] = true
			src := int(remap[k])
			if src == start {
				copy(data[k*stride:(k+1)*stride], tmp)
				break
			}
			copyRecord(k, src)
			k = src
		}
	}
}

// ReorderIB returns a new index buffer with faces in faceRemap order:
// face j of the result is face faceRemap[j] of indices. Unused remap
// entries produce unused faces.
func ReorderIB(indices []int32, faceRemap []int32) ([]int32, error) {
	out := make([]int32, len(indices))
	copy(out, indices)
	if err := ReorderIBInPlace(out, faceRemap); err != nil {
		return nil, err
	}
	return out, nil
}

// ReorderIBInPlace reorders the faces of indices by faceRemap without a
// second buffer.
func ReorderIBInPlace(indices []int32, faceRemap []int32) error {
	nFaces, err := faceCount(indices)
	if err != nil {
		return err
	}
	if err := checkRemap(faceRemap, nFaces, "face"); err != nil {
		return err
	}
	permuteInPlace(indices, 3, faceRemap, Unused)
	return nil
}

// ReorderIBAndAdjacency returns reordered copies of indices and adjacency.
// Neighbor ids in the result refer to the new face order; links to faces
// the remap drops become Unused.
func ReorderIBAndAdjacency(indices, adjacency []int32, faceRemap []int32) (outIndices, outAdjacency []int32, err error) {
	outIndices = make([]int32, len(indices))
	copy(outIndices, indices)
	outAdjacency = make([]int32, len(adjacency))
	copy(outAdjacency, adjacency)
	if err := ReorderIBAndAdjacencyInPlace(outIndices, outAdjacency, faceRemap); err != nil {
		return nil, nil, err
	}
	return outIndices, outAdjacency, nil
}

// ReorderIBAndAdjacencyInPlace is the in-place form of ReorderIBAndAdjacency.
func ReorderIBAndAdjacencyInPlace(indices, adjacency []int32, faceRemap []int32) error {
	nFaces, err := faceCount(indices)
	if err != nil {
		return err
	}
	if adjacency == nil {
		return fmt.Errorf("nil adjacency: %w", ErrInvalidArgument)
	}
	if err := checkAdjacency(adjacency, nFaces); err != nil {
		return err
	}
	if err := checkRemap(faceRemap, nFaces, "face"); err != nil {
		return err
	}
	for i, k := range adjacency {
		if k != Unused && (k < 0 || int(k) >= nFaces) {
			return fmt.Errorf("neighbor %d on face %d exceeds face count %d: %w", k, i/3, nFaces, ErrIndexOutOfRange)
		}
	}

	permuteInPlace(indices, 3, faceRemap, Unused)
	permuteInPlace(adjacency, 3, faceRemap, Unused)

	inverse := invertRemap(faceRemap, nFaces)
	for i, k := range adjacency {
		if k != Unused {
			adjacency[i] = inverse[k]
		}
	}
	return nil
}
