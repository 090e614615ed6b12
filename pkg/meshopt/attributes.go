package meshopt

import (
	"cmp"
	"fmt"
	"slices"
)

// Subset is a run of consecutive faces sharing one attribute id.
type Subset struct {
	Offset int
	Count  int
}

// ComputeSubsets splits nFaces faces into runs of equal attributes. A nil
// attributes slice yields a single subset covering every face.
func ComputeSubsets(attributes []uint32, nFaces int) []Subset {
	if nFaces == 0 {
		return nil
	}
	if attributes == nil {
		return []Subset{{Offset: 0, Count: nFaces}}
	}

	var subsets []Subset
	start := 0
	for face := 1; face < nFaces; face++ {
		if attributes[face] != attributes[start] {
			subsets = append(subsets, Subset{Offset: start, Count: face - start})
			start = face
		}
	}
	return append(subsets, Subset{Offset: start, Count: nFaces - start})
}

// AttributeSort stably sorts attributes in place and returns the face remap
// that applies the same order to the faces: faceRemap[new] = old. Faces with
// equal attributes keep their relative order.
func AttributeSort(attributes []uint32) ([]int32, error) {
	if len(attributes) == 0 {
		return nil, fmt.Errorf("empty attribute buffer: %w", ErrInvalidArgument)
	}
	if len(attributes) >= maxCount {
		return nil, fmt.Errorf("%d faces: %w", len(attributes), ErrOverflow)
	}

	faceRemap := make([]int32, len(attributes))
	for i := range faceRemap {
		faceRemap[i] = int32(i)
	}
	slices.SortStableFunc(faceRemap, func(a, b int32) int {
		return cmp.Compare(attributes[a], attributes[b])
	})

	sorted := make([]uint32, len(attributes))
	for i, src := range faceRemap {
		sorted[i] = attributes[src]
	}
	copy(attributes, sorted)
	return faceRemap, nil
}
