package meshopt

import "fmt"

// fifoCache models a post-transform vertex cache: a fixed-size FIFO of
// vertex ids. Hits do not refresh an entry's position.
type fifoCache struct {
	slots   []int32
	present []bool
	head    int
	count   int
}

func newFIFOCache(size, nVerts int) *fifoCache {
	return &fifoCache{
		slots:   make([]int32, size),
		present: make([]bool, nVerts),
	}
}

func (c *fifoCache) clear() {
	for _, v := range c.slots[:c.count] {
		c.present[v] = false
	}
	c.head, c.count = 0, 0
}

func (c *fifoCache) contains(v int32) bool {
	return c.present[v]
}

// add inserts v and reports whether it was a miss.
func (c *fifoCache) add(v int32) bool {
	if c.present[v] {
		return false
	}
	if c.count == len(c.slots) {
		c.present[c.slots[c.head]] = false
	} else {
		c.count++
	}
	c.slots[c.head] = v
	c.present[v] = true
	c.head = (c.head + 1) % len(c.slots)
	return true
}

// entries returns the cached vertex ids in no particular order.
func (c *fifoCache) entries() []int32 {
	return c.slots[:c.count]
}

// ComputeVertexCacheMissRate replays indices through a FIFO cache of
// cacheSize entries. ACMR is the average number of cache misses per used
// face; ATVR is the number of misses per vertex (1.0 is optimal).
func ComputeVertexCacheMissRate(indices []int32, nVerts int, cacheSize int) (acmr, atvr float32, err error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return 0, 0, err
	}
	if err := checkVertexCount(nVerts); err != nil {
		return 0, 0, err
	}
	if cacheSize <= 0 {
		return 0, 0, fmt.Errorf("cache size %d: %w", cacheSize, ErrInvalidArgument)
	}

	cache := newFIFOCache(cacheSize, nVerts)
	misses, used := 0, 0
	for face := range nFaces {
		if isUnusedFace(indices, face) {
			continue
		}
		used++
		for point := range 3 {
			v := indices[face*3+point]
			if v < 0 || int(v) >= nVerts {
				return 0, 0, fmt.Errorf("index %d on face %d exceeds vertex count %d: %w", v, face, nVerts, ErrIndexOutOfRange)
			}
			if cache.add(v) {
				misses++
			}
		}
	}
	if used == 0 {
		return 0, 0, nil
	}
	return float32(misses) / float32(used), float32(misses) / float32(nVerts), nil
}
