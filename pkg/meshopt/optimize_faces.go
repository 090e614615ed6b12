package meshopt

import "fmt"

const (
	// DefaultVertexCache is the simulated cache size used when the target
	// hardware is unknown.
	DefaultVertexCache = 12
	// DefaultRestart is the restart threshold paired with DefaultVertexCache.
	DefaultRestart = 7
	// StripOrder as the cache size selects pure strip ordering with no
	// cache simulation.
	StripOrder = 0
)

// faceState tracks one face of the current subset. Faces live in one of
// four doubly linked lists keyed by how many unprocessed neighbors they have.
type faceState struct {
	neighbors   [3]int32 // subset-local ids
	unprocessed int
	processed   bool
	prev, next  int32
}

// meshStatus is the greedy strip builder's view of one subset at a time.
type meshStatus struct {
	indices  []int32
	physical []int32 // usable neighbor links, global ids
	offset   int
	faces    []faceState
	heads    [4]int32
}

// usableFace reports whether face takes part in ordering.
func usableFace(indices []int32, face int) bool {
	base := face * 3
	return !isUnusedFace(indices, face) && !isDegenerate(indices[base], indices[base+1], indices[base+2])
}

// newMeshStatus keeps only neighbor links that stay inside their subset,
// join two usable faces, and appear (once) on both sides.
func newMeshStatus(indices, adjacency []int32, subsets []Subset) *meshStatus {
	nFaces := len(indices) / 3
	s := &meshStatus{
		indices:  indices,
		physical: make([]int32, nFaces*3),
	}
	for i := range s.physical {
		s.physical[i] = Unused
	}

	maxSubset := 0
	for _, sub := range subsets {
		maxSubset = max(maxSubset, sub.Count)
		end := sub.Offset + sub.Count
		for face := sub.Offset; face < end; face++ {
			if !usableFace(indices, face) {
				continue
			}
			for edge := range 3 {
				k := adjacency[face*3+edge]
				if k == Unused || int(k) == face || int(k) < sub.Offset || int(k) >= end {
					continue
				}
				if !usableFace(indices, int(k)) || !faceHasNeighbor(adjacency, k, int32(face)) {
					continue
				}
				if edge > 0 && (s.physical[face*3] == k || s.physical[face*3+1] == k) {
					continue
				}
				s.physical[face*3+edge] = k
			}
		}
	}
	s.faces = make([]faceState, maxSubset)
	return s
}

func (s *meshStatus) setSubset(sub Subset) {
	s.offset = sub.Offset
	for i := range s.heads {
		s.heads[i] = Unused
	}

	for local := sub.Count - 1; local >= 0; local-- {
		global := s.offset + local
		f := &s.faces[local]
		*f = faceState{prev: Unused, next: Unused}
		if !usableFace(s.indices, global) {
			f.processed = true
			f.neighbors = [3]int32{Unused, Unused, Unused}
			continue
		}
		for edge := range 3 {
			k := s.physical[global*3+edge]
			if k == Unused {
				f.neighbors[edge] = Unused
				continue
			}
			f.neighbors[edge] = k - int32(s.offset)
			f.unprocessed++
		}
		s.push(int32(local))
	}
}

func (s *meshStatus) push(local int32) {
	f := &s.faces[local]
	head := s.heads[f.unprocessed]
	f.prev, f.next = Unused, head
	if head != Unused {
		s.faces[head].prev = local
	}
	s.heads[f.unprocessed] = local
}

func (s *meshStatus) unlink(local int32) {
	f := &s.faces[local]
	if f.prev != Unused {
		s.faces[f.prev].next = f.next
	} else {
		s.heads[f.unprocessed] = f.next
	}
	if f.next != Unused {
		s.faces[f.next].prev = f.prev
	}
	f.prev, f.next = Unused, Unused
}

// findInitial returns the unprocessed face with the fewest unprocessed
// neighbors, or Unused when the subset is exhausted.
func (s *meshStatus) findInitial() int32 {
	for _, head := range s.heads {
		if head != Unused {
			return head
		}
	}
	return Unused
}

func (s *meshStatus) isProcessed(local int32) bool {
	return s.faces[local].processed
}

func (s *meshStatus) mark(local int32) {
	f := &s.faces[local]
	s.unlink(local)
	f.processed = true
	for _, n := range f.neighbors {
		if n == Unused || s.faces[n].processed {
			continue
		}
		s.unlink(n)
		s.faces[n].unprocessed--
		s.push(n)
	}
}

// getNext picks the unprocessed neighbor of local with the fewest
// unprocessed neighbors of its own. Ties go to the candidate whose own
// least connected neighbor is less connected, then to the lower id.
func (s *meshStatus) getNext(local int32) int32 {
	best := Unused
	bestCount, bestAhead := 4, 5
	for _, n := range s.faces[local].neighbors {
		if n == Unused || s.faces[n].processed {
			continue
		}
		count := s.faces[n].unprocessed
		if count > bestCount {
			continue
		}
		ahead := s.lookAhead(n)
		if count < bestCount || ahead < bestAhead || (ahead == bestAhead && n < best) {
			best, bestCount, bestAhead = n, count, ahead
		}
	}
	return best
}

func (s *meshStatus) lookAhead(local int32) int {
	least := 4
	for _, n := range s.faces[local].neighbors {
		if n == Unused || s.faces[n].processed {
			continue
		}
		least = min(least, s.faces[n].unprocessed)
	}
	return least
}

// OptimizeFaces returns a face remap (faceRemap[new] = old) that orders
// faces for vertex cache reuse. Each attribute run is ordered on its own
// and runs keep their order; nil attributes treats the mesh as one run.
//
// vertexCache == StripOrder walks greedy strips only. Otherwise a FIFO
// cache of vertexCache entries is simulated. A strip extends freely while
// its misses stay within vertexCache-restart; past that budget the walk
// jumps to the face with most corners still cached when that face misses
// less than the strip's next one. When the input order of the usable
// faces misses the simulated cache less often, that order is returned
// instead.
//
// Unused and degenerate faces are left out; their trailing remap slots are
// Unused.
func OptimizeFaces(indices, adjacency []int32, attributes []uint32, vertexCache, restart int) ([]int32, error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return nil, err
	}
	if adjacency == nil {
		return nil, fmt.Errorf("face optimization needs adjacency: %w", ErrInvalidArgument)
	}
	if err := checkAdjacency(adjacency, nFaces); err != nil {
		return nil, err
	}
	if attributes != nil && len(attributes) != nFaces {
		return nil, fmt.Errorf("attribute count %d, want %d: %w", len(attributes), nFaces, ErrInvalidArgument)
	}
	if vertexCache != StripOrder && (vertexCache < 3 || restart < 0 || restart > vertexCache) {
		return nil, fmt.Errorf("vertex cache %d with restart %d: %w", vertexCache, restart, ErrInvalidArgument)
	}

	nVerts := 0
	for i, v := range indices {
		if v == Unused {
			continue
		}
		if v < 0 {
			return nil, fmt.Errorf("index %d at position %d: %w", v, i, ErrIndexOutOfRange)
		}
		nVerts = max(nVerts, int(v)+1)
	}
	for face, k := range adjacency {
		if k != Unused && (k < 0 || int(k) >= nFaces) {
			return nil, fmt.Errorf("neighbor %d on face %d exceeds face count %d: %w", k, face/3, nFaces, ErrIndexOutOfRange)
		}
	}

	subsets := ComputeSubsets(attributes, nFaces)
	status := newMeshStatus(indices, adjacency, subsets)

	faceRemap := make([]int32, 0, nFaces)
	if vertexCache == StripOrder || nVerts == 0 {
		for _, sub := range subsets {
			status.setSubset(sub)
			for face := status.findInitial(); face != Unused; face = status.findInitial() {
				for ; face != Unused; face = status.getNext(face) {
					status.mark(face)
					faceRemap = append(faceRemap, face+int32(sub.Offset))
				}
			}
		}
	} else {
		vf, err := buildVertexFaces(indices, nVerts)
		if err != nil {
			return nil, err
		}
		cache := newFIFOCache(vertexCache, nVerts)
		desired := vertexCache - restart

		for _, sub := range subsets {
			status.setSubset(sub)

			face := status.findInitial()
			locnext := 0
			for face != Unused {
				status.mark(face)
				global := int(face) + sub.Offset
				faceRemap = append(faceRemap, int32(global))
				for point := range 3 {
					if cache.add(indices[global*3+point]) {
						locnext++
					}
				}

				next := status.getNext(face)
				if next != Unused {
					nf := countMisses(cache, indices, int(next)+sub.Offset)
					if locnext+nf <= desired {
						face = next
						continue
					}
					// Budget spent: move to the ring around the cached
					// vertices if that is cheaper than extending the strip.
					face = next
					if ring := status.mostCached(cache, vf, sub); ring != Unused && countMisses(cache, indices, int(ring)+sub.Offset) < nf {
						face = ring
					}
					locnext = 0
					continue
				}

				face = status.mostCached(cache, vf, sub)
				if face == Unused {
					face = status.findInitial()
				}
				locnext = 0
			}
		}

		identity := make([]int32, 0, len(faceRemap))
		for face := range nFaces {
			if usableFace(indices, face) {
				identity = append(identity, int32(face))
			}
		}
		if orderMisses(cache, indices, identity) < orderMisses(cache, indices, faceRemap) {
			faceRemap = identity
		}
	}

	for len(faceRemap) < nFaces {
		faceRemap = append(faceRemap, Unused)
	}
	return faceRemap, nil
}

// countMisses returns how many corners of face are not cached.
func countMisses(cache *fifoCache, indices []int32, face int) int {
	n := 0
	for point := range 3 {
		if !cache.contains(indices[face*3+point]) {
			n++
		}
	}
	return n
}

// orderMisses replays faces in order through the emptied cache and returns
// the number of misses.
func orderMisses(cache *fifoCache, indices []int32, order []int32) int {
	cache.clear()
	n := 0
	for _, face := range order {
		for point := range 3 {
			if cache.add(indices[int(face)*3+point]) {
				n++
			}
		}
	}
	return n
}

// mostCached returns the unprocessed face of sub with the most corners in
// the cache, preferring fewer unprocessed neighbors and then lower ids.
func (s *meshStatus) mostCached(cache *fifoCache, vf *vertexFaces, sub Subset) int32 {
	best := Unused
	bestHits, bestCount := 0, 4
	for _, v := range cache.entries() {
		for _, global := range vf.of(v) {
			if int(global) < sub.Offset || int(global) >= sub.Offset+sub.Count {
				continue
			}
			local := global - int32(sub.Offset)
			if s.isProcessed(local) {
				continue
			}
			hits := 3 - countMisses(cache, s.indices, int(global))
			count := s.faces[local].unprocessed
			if hits > bestHits || (hits == bestHits && (count < bestCount || (count == bestCount && local < best))) {
				best, bestHits, bestCount = local, hits, count
			}
		}
	}
	return best
}
