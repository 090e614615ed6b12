package meshopt

import "fmt"

// Clean repairs the defects Validate reports, in place. Phases run in order
// and each relies on the ones before it:
//
//  1. faces with any Unused corner become fully unused; unused and
//     degenerate faces lose their neighbor links in both directions
//  2. one-sided neighbor links are removed until none remain
//  3. neighbors listed on two edges of a face (or a face listing itself)
//     are severed in both directions
//  4. with breakBowties, every vertex shared by unconnected fans is
//     duplicated once per extra fan
//  5. with attributes, every vertex used by faces of different attribute
//     ids is duplicated once per extra id
//  6. with both, bowtie breaking runs again: a copy from step 5 can be
//     shared by faces of one id that no edge connects
//
// The returned slice lists, for each appended vertex nVerts+k, the original
// vertex it copies. adjacency may be nil unless breakBowties is set.
// attributes, when non-nil, has one entry per face and is not modified.
func Clean(indices []int32, nVerts int, adjacency []int32, attributes []uint32, breakBowties bool) ([]int32, error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return nil, err
	}
	if err := checkVertexCount(nVerts); err != nil {
		return nil, err
	}
	if err := checkAdjacency(adjacency, nFaces); err != nil {
		return nil, err
	}
	if attributes != nil && len(attributes) != nFaces {
		return nil, fmt.Errorf("attribute count %d, want %d: %w", len(attributes), nFaces, ErrInvalidArgument)
	}
	if breakBowties && adjacency == nil {
		return nil, errAdjacencyRequired
	}

	ok, err := Validate(indices, nVerts, adjacency, ValidateDefault, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("mesh references vertices or faces outside its buffers: %w", ErrIndexOutOfRange)
	}

	c := &cleaner{
		indices:   indices,
		adjacency: adjacency,
		nVerts:    nVerts,
		nFaces:    nFaces,
	}

	c.normalizeUnused()
	if adjacency != nil {
		c.removeAsymmetric()
		c.removeBackfacing()
	}
	if breakBowties {
		if err := c.breakBowties(); err != nil {
			return c.dups, err
		}
	}
	if attributes != nil {
		if err := c.splitAttributes(attributes); err != nil {
			return c.dups, err
		}
		if breakBowties {
			if err := c.breakBowties(); err != nil {
				return c.dups, err
			}
		}
	}
	return c.dups, nil
}

type cleaner struct {
	indices   []int32
	adjacency []int32
	nVerts    int
	nFaces    int
	dups      []int32
}

// unlink removes every neighbor link of face, along with the links back.
func (c *cleaner) unlink(face int) {
	base := face * 3
	for point := range 3 {
		j := c.adjacency[base+point]
		if j == Unused {
			continue
		}
		c.sever(j, int32(face))
		c.adjacency[base+point] = Unused
	}
}

// sever clears every edge of face that points at neighbor.
func (c *cleaner) sever(face, neighbor int32) {
	base := int(face) * 3
	for k := range 3 {
		if c.adjacency[base+k] == neighbor {
			c.adjacency[base+k] = Unused
		}
	}
}

func (c *cleaner) normalizeUnused() {
	for face := range c.nFaces {
		base := face * 3
		switch {
		case isUnusedFace(c.indices, face):
			c.indices[base], c.indices[base+1], c.indices[base+2] = Unused, Unused, Unused
		case isDegenerate(c.indices[base], c.indices[base+1], c.indices[base+2]):
		default:
			continue
		}
		if c.adjacency != nil {
			c.unlink(face)
		}
	}
}

func (c *cleaner) removeAsymmetric() {
	for changed := true; changed; {
		changed = false
		for face := range c.nFaces {
			for point := range 3 {
				slot := face*3 + point
				j := c.adjacency[slot]
				if j == Unused || faceHasNeighbor(c.adjacency, j, int32(face)) {
					continue
				}
				c.adjacency[slot] = Unused
				changed = true
			}
		}
	}
}

// removeBackfacing severs duplicate neighbor links. The vertices involved
// are left for breakBowties to separate.
func (c *cleaner) removeBackfacing() {
	for face := range c.nFaces {
		base := face * 3
		for point := range 3 {
			j := c.adjacency[base+point]
			if j == Unused {
				continue
			}
			if j != int32(face) && !duplicateNeighbor(c.adjacency, base, point) {
				continue
			}
			c.sever(int32(face), j)
			c.sever(j, int32(face))
		}
	}
}

// origin resolves v, which may be an earlier copy, to its input vertex.
func (c *cleaner) origin(v int32) int32 {
	if int(v) >= c.nVerts {
		return c.dups[int(v)-c.nVerts]
	}
	return v
}

// appendDuplicate allocates the next vertex index as a copy of orig.
func (c *cleaner) appendDuplicate(orig int32) (int32, error) {
	next := c.nVerts + len(c.dups)
	if next >= maxCount {
		return Unused, fmt.Errorf("duplicating vertex %d: %w", orig, ErrOverflow)
	}
	c.dups = append(c.dups, orig)
	return int32(next), nil
}

func (c *cleaner) breakBowties() error {
	seen := make([]bool, c.nFaces*3)
	owned := make([]bool, c.nVerts+len(c.dups))

	var corners []int
	for face := range c.nFaces {
		base := face * 3
		if isUnusedFace(c.indices, face) || isDegenerate(c.indices[base], c.indices[base+1], c.indices[base+2]) {
			continue
		}
		for point := range 3 {
			if seen[base+point] {
				continue
			}
			vert := c.indices[base+point]

			corners = corners[:0]
			w := NewOrbitWalker(c.indices, c.adjacency, int32(face), vert, WalkAll)
			for !w.Done() {
				corner := w.Corner()
				slot := int(w.Next())*3 + corner
				seen[slot] = true
				corners = append(corners, slot)
			}
			if w.Broken() {
				return fmt.Errorf("walking vertex %d from face %d: %w", vert, face, ErrUnexpected)
			}

			if !owned[vert] {
				owned[vert] = true
				continue
			}

			// Second fan for this vertex: the whole fan moves to one copy.
			replacement, err := c.appendDuplicate(c.origin(vert))
			if err != nil {
				return err
			}
			for _, slot := range corners {
				c.indices[slot] = replacement
			}
		}
	}
	return nil
}

func (c *cleaner) splitAttributes(attributes []uint32) error {
	total := c.nVerts + len(c.dups)
	vertAttr := make([]uint32, total)
	assigned := make([]bool, total)
	copies := make(map[int32][]int32)

	for face := range c.nFaces {
		if isUnusedFace(c.indices, face) {
			continue
		}
		a := attributes[face]
		for point := range 3 {
			slot := face*3 + point
			v := c.indices[slot]
			if !assigned[v] {
				vertAttr[v], assigned[v] = a, true
				continue
			}
			if vertAttr[v] == a {
				continue
			}

			target := Unused
			for _, d := range copies[v] {
				if vertAttr[d] == a {
					target = d
					break
				}
			}
			if target == Unused {
				var err error
				if target, err = c.appendDuplicate(c.origin(v)); err != nil {
					return err
				}
				vertAttr = append(vertAttr, a)
				assigned = append(assigned, true)
				copies[v] = append(copies[v], target)
			}
			c.indices[slot] = target
		}
	}
	return nil
}
