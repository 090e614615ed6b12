package meshopt

import "fmt"

// ValidateFlags selects the checks Validate performs. Index and neighbor
// bounds are always checked.
type ValidateFlags uint32

const (
	// ValidateDefault checks index and neighbor bounds only.
	ValidateDefault ValidateFlags = 0
	// ValidateBackfacing reports faces listing the same neighbor on two
	// edges, or themselves as a neighbor. Requires adjacency.
	ValidateBackfacing ValidateFlags = 1 << 0
	// ValidateBowties reports vertices shared by fans that are not
	// connected through edges. Requires adjacency.
	ValidateBowties ValidateFlags = 1 << 1
	// ValidateDegenerate reports degenerate faces, and degenerate faces that
	// keep neighbor links.
	ValidateDegenerate ValidateFlags = 1 << 2
	// ValidateUnused reports partially unused faces, and unused faces that
	// keep neighbor links.
	ValidateUnused ValidateFlags = 1 << 3
	// ValidateAsymmetricAdjacency reports neighbor links that are not
	// returned by the neighbor. Requires adjacency.
	ValidateAsymmetricAdjacency ValidateFlags = 1 << 4

	// ValidateAll enables every check.
	ValidateAll = ValidateBackfacing | ValidateBowties | ValidateDegenerate | ValidateUnused | ValidateAsymmetricAdjacency

	needsAdjacency = ValidateBackfacing | ValidateBowties | ValidateAsymmetricAdjacency
)

// Reporter receives one human-readable message per defect found.
type Reporter func(msg string)

// errAdjacencyRequired matches both ErrInvalidArgument and ErrNotSupported.
var errAdjacencyRequired = fmt.Errorf("%w: %w: requested checks need adjacency", ErrInvalidArgument, ErrNotSupported)

type validator struct {
	indices   []int32
	adjacency []int32
	nVerts    int
	nFaces    int
	flags     ValidateFlags
	report    Reporter
	ok        bool
}

// fail records a defect and reports whether validation should stop.
func (v *validator) fail(format string, args ...any) bool {
	v.ok = false
	if v.report == nil {
		return true
	}
	v.report(fmt.Sprintf(format, args...))
	return false
}

// Validate checks a mesh for defects. It returns true if no enabled check
// fails. With a non-nil report every defect is reported; with a nil report
// validation stops at the first defect.
//
// The error result is reserved for unusable arguments, including requesting
// an adjacency-based check with nil adjacency.
func Validate(indices []int32, nVerts int, adjacency []int32, flags ValidateFlags, report Reporter) (bool, error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return false, err
	}
	if err := checkVertexCount(nVerts); err != nil {
		return false, err
	}
	if err := checkAdjacency(adjacency, nFaces); err != nil {
		return false, err
	}
	if adjacency == nil && flags&needsAdjacency != 0 {
		return false, errAdjacencyRequired
	}

	v := &validator{
		indices:   indices,
		adjacency: adjacency,
		nVerts:    nVerts,
		nFaces:    nFaces,
		flags:     flags,
		report:    report,
		ok:        true,
	}

	inBounds := true
	if stop := v.checkIndices(&inBounds); stop {
		return false, nil
	}
	if adjacency != nil {
		if stop := v.checkAdjacency(&inBounds); stop {
			return false, nil
		}
		if flags&ValidateBowties != 0 && inBounds {
			v.checkBowties()
		}
	}
	return v.ok, nil
}

func (v *validator) checkIndices(inBounds *bool) bool {
	for face := range v.nFaces {
		i0, i1, i2 := v.indices[face*3], v.indices[face*3+1], v.indices[face*3+2]
		for _, i := range [3]int32{i0, i1, i2} {
			if i != Unused && (i < 0 || int(i) >= v.nVerts) {
				*inBounds = false
				if v.fail("an invalid index value (%d) was found on face %d", i, face) {
					return true
				}
			}
		}

		if isUnusedFace(v.indices, face) {
			if v.flags&ValidateUnused != 0 && (i0 != Unused || i1 != Unused || i2 != Unused) {
				if v.fail("an unused face (%d) contains 'valid' but ignored vertices (%d,%d,%d)", face, i0, i1, i2) {
					return true
				}
			}
			continue
		}

		if v.flags&ValidateDegenerate != 0 && isDegenerate(i0, i1, i2) {
			point := i0
			if i1 == i2 {
				point = i1
			}
			if v.fail("a point (%d) was found more than once in triangle %d", point, face) {
				return true
			}
		}
	}
	return false
}

func (v *validator) checkAdjacency(inBounds *bool) bool {
	for face := range v.nFaces {
		base := face * 3
		unused := isUnusedFace(v.indices, face)
		degenerate := isDegenerate(v.indices[base], v.indices[base+1], v.indices[base+2])

		for point := range 3 {
			j := v.adjacency[base+point]
			if j == Unused {
				continue
			}
			if j < 0 || int(j) >= v.nFaces {
				*inBounds = false
				if v.fail("an invalid neighbor index value (%d) was found on face %d", j, face) {
					return true
				}
				continue
			}

			if unused && v.flags&ValidateUnused != 0 {
				if v.fail("an unused face (%d) has a neighbor %d", face, j) {
					return true
				}
			}
			if degenerate && v.flags&ValidateDegenerate != 0 {
				if v.fail("a degenerate face (%d) has a neighbor %d", face, j) {
					return true
				}
			}
			if v.flags&ValidateBackfacing != 0 {
				if j == int32(face) {
					if v.fail("face %d lists itself as a neighbor", face) {
						return true
					}
				} else if duplicateNeighbor(v.adjacency, base, point) {
					if v.fail("a neighbor (%d) was found more than once on face %d, typically from inverted winding", j, face) {
						return true
					}
				}
			}
			if v.flags&ValidateAsymmetricAdjacency != 0 && !faceHasNeighbor(v.adjacency, j, int32(face)) {
				if v.fail("a neighbor comparison was not symmetric: face %d lists %d, which does not list it back", face, j) {
					return true
				}
			}
		}
	}
	return false
}

// checkBowties walks every vertex fan once. A vertex reached from a second,
// unconnected fan is a bowtie.
func (v *validator) checkBowties() {
	seen := make([]bool, v.nFaces*3)
	owner := make([]int32, v.nVerts)
	for i := range owner {
		owner[i] = Unused
	}

	for face := range v.nFaces {
		base := face * 3
		if isUnusedFace(v.indices, face) || isDegenerate(v.indices[base], v.indices[base+1], v.indices[base+2]) {
			continue
		}
		for point := range 3 {
			if seen[base+point] {
				continue
			}
			vert := v.indices[base+point]
			w := NewOrbitWalker(v.indices, v.adjacency, int32(face), vert, WalkAll)
			for !w.Done() {
				corner := w.Corner()
				f := w.Next()
				seen[int(f)*3+corner] = true
			}

			if owner[vert] != Unused {
				if v.fail("a bowtie was found at vertex %d: faces %d and %d share it without a connecting edge", vert, owner[vert], face) {
					return
				}
				continue
			}
			owner[vert] = int32(face)
		}
	}
}

// duplicateNeighbor reports whether the neighbor on edge point of the face
// at base appears again on a later edge of the same face.
func duplicateNeighbor(adjacency []int32, base, point int) bool {
	j := adjacency[base+point]
	for k := point + 1; k < 3; k++ {
		if adjacency[base+k] == j {
			return true
		}
	}
	return false
}
