package meshopt

import "iter"

// Walk selects the rotational direction of an OrbitWalker.
type Walk int

const (
	// WalkAll visits the whole fan: clockwise first and, if that sweep hits
	// an open boundary, counter-clockwise from the start face.
	WalkAll Walk = iota
	// WalkCW walks clockwise and stops at the first boundary.
	WalkCW
	// WalkCCW walks counter-clockwise and stops at the first boundary.
	WalkCCW
)

// OrbitWalker visits the faces incident to one vertex by crossing adjacency
// edges around it. Crossing the edge that leaves the vertex is the clockwise
// step; crossing the edge that enters it is the counter-clockwise step.
//
// A walker is a single-use, strictly sequential cursor: create a new one for
// each walk rather than sharing one between interleaved walks.
type OrbitWalker struct {
	indices   []int32
	adjacency []int32

	walk        Walk
	vertex      int32
	startFace   int32
	startCorner int

	face      int32 // next face Next returns, Unused when done
	corner    int   // position of vertex in face
	clockwise bool
	stopOnEnd bool

	steps  int
	broken bool
}

// NewOrbitWalker positions a walker on the corner of face that references
// vertex. If face does not reference vertex the walker starts out done.
func NewOrbitWalker(indices, adjacency []int32, face, vertex int32, walk Walk) *OrbitWalker {
	w := &OrbitWalker{
		indices:   indices,
		adjacency: adjacency,
		walk:      walk,
		vertex:    vertex,
		startFace: face,
		face:      Unused,
		clockwise: walk != WalkCCW,
		stopOnEnd: walk != WalkAll,
	}
	if face < 0 || int(face)*3 >= len(indices) {
		return w
	}
	if c := cornerOf(indices, face, vertex); c >= 0 {
		w.startCorner = c
		w.face = face
		w.corner = c
	}
	return w
}

// Done reports whether the walk has produced every face.
func (w *OrbitWalker) Done() bool {
	return w.face == Unused
}

// Broken reports whether the walk stopped on an out-of-range neighbor, or
// on a cycle that never returns to the start face.
func (w *OrbitWalker) Broken() bool {
	return w.broken
}

// Corner returns the position of the walked vertex in the face Next will
// return.
func (w *OrbitWalker) Corner() int {
	return w.corner
}

// Next returns the current face and advances to the following one. It
// returns Unused once the walk is done.
func (w *OrbitWalker) Next() int32 {
	ret := w.face
	if ret == Unused {
		return Unused
	}

	w.steps++
	next := w.step(ret, w.corner, w.clockwise)
	switch {
	case next == w.startFace:
		next = Unused
	case next == Unused && w.clockwise && !w.stopOnEnd && !w.broken:
		// Open fan: sweep the other side of the start face.
		w.clockwise = false
		w.corner = w.startCorner
		next = w.step(w.startFace, w.startCorner, false)
		if next == w.startFace {
			next = Unused
		}
	}
	if next != Unused && w.steps > len(w.indices)/3 {
		w.broken = true
		next = Unused
	}
	w.face = next
	return ret
}

// step crosses one edge of face around the walked vertex and updates
// w.corner for the face reached. It returns Unused on a boundary.
func (w *OrbitWalker) step(face int32, corner int, clockwise bool) int32 {
	edge := corner
	if !clockwise {
		edge = (corner + 2) % 3
	}
	next := w.adjacency[int(face)*3+edge]
	if next == Unused {
		return Unused
	}
	if next < 0 || int(next)*3 >= len(w.indices) {
		w.broken = true
		return Unused
	}
	c := cornerOf(w.indices, next, w.vertex)
	if c < 0 {
		// Neighbor across a seam: it shares the edge position, not the vertex.
		return Unused
	}
	w.corner = c
	return next
}

// MoveToCounterClockwise moves the start of the walk to the last face
// reachable counter-clockwise before an open boundary, and restarts the
// walk there. It returns true if a boundary was found; on a closed fan the
// walk restarts at the original start face and it returns false.
func (w *OrbitWalker) MoveToCounterClockwise() bool {
	if w.startFace < 0 || cornerOf(w.indices, w.startFace, w.vertex) < 0 {
		return false
	}

	face, corner := w.startFace, w.startCorner
	boundary := false
	limit := len(w.indices) / 3
	for range limit {
		w.corner = corner
		next := w.step(face, corner, false)
		if next == Unused {
			boundary = !w.broken
			break
		}
		if next == w.startFace {
			break
		}
		face, corner = next, w.corner
	}

	w.startFace, w.startCorner = face, corner
	w.face, w.corner = face, corner
	w.clockwise = w.walk != WalkCCW
	w.steps = 0
	return boundary
}

// OrbitFaces returns the faces around vertex starting from face as a
// sequence. Each call to the returned sequence performs a fresh walk.
func OrbitFaces(indices, adjacency []int32, face, vertex int32, walk Walk) iter.Seq[int32] {
	return func(yield func(int32) bool) {
		w := NewOrbitWalker(indices, adjacency, face, vertex, walk)
		for !w.Done() {
			if !yield(w.Next()) {
				return
			}
		}
	}
}
