package meshopt

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/taigrr/meshforge/pkg/math3d"
)

// NormalsFlags selects the weighting used by ComputeNormals.
type NormalsFlags uint32

const (
	// NormalsWeightByAngle weights each face normal by the corner angle.
	NormalsWeightByAngle NormalsFlags = 0
	// NormalsWeightByArea weights each face normal by the triangle area.
	NormalsWeightByArea NormalsFlags = 1 << 0
	// NormalsWeightEqual gives every face the same weight.
	NormalsWeightEqual NormalsFlags = 1 << 1
	// NormalsWindCW treats clockwise winding as front facing.
	NormalsWindCW NormalsFlags = 1 << 2
)

// ComputeNormals returns one normal per position, accumulated from the
// used, non-degenerate faces around each vertex. Vertices no face uses get
// a zero normal.
func ComputeNormals(indices []int32, positions []math3d.Vec3, flags NormalsFlags) ([]math3d.Vec3, error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return nil, err
	}
	nVerts := len(positions)
	if err := checkVertexCount(nVerts); err != nil {
		return nil, err
	}
	if flags&NormalsWeightByArea != 0 && flags&NormalsWeightEqual != 0 {
		return nil, fmt.Errorf("area and equal weighting are exclusive: %w", ErrInvalidArgument)
	}

	normals := make([]math3d.Vec3, nVerts)
	for face := range nFaces {
		i0, i1, i2 := indices[face*3], indices[face*3+1], indices[face*3+2]
		if i0 == Unused || i1 == Unused || i2 == Unused {
			continue
		}
		if i0 < 0 || i1 < 0 || i2 < 0 || int(i0) >= nVerts || int(i1) >= nVerts || int(i2) >= nVerts {
			return nil, fmt.Errorf("face %d references vertex outside %d: %w", face, nVerts, ErrIndexOutOfRange)
		}
		if isDegenerate(i0, i1, i2) {
			continue
		}

		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		u := p1.Sub(p0)
		v := p2.Sub(p0)
		faceNormal := u.Cross(v)

		switch {
		case flags&NormalsWeightByArea != 0:
			// The cross product length is twice the area.
			normals[i0] = normals[i0].Add(faceNormal)
			normals[i1] = normals[i1].Add(faceNormal)
			normals[i2] = normals[i2].Add(faceNormal)

		case flags&NormalsWeightEqual != 0:
			n := faceNormal.Normalize()
			normals[i0] = normals[i0].Add(n)
			normals[i1] = normals[i1].Add(n)
			normals[i2] = normals[i2].Add(n)

		default:
			n := faceNormal.Normalize()
			a0 := cornerAngle(u, v)
			a1 := cornerAngle(p2.Sub(p1), p0.Sub(p1))
			a2 := cornerAngle(p0.Sub(p2), p1.Sub(p2))
			normals[i0] = normals[i0].Add(n.Scale(a0))
			normals[i1] = normals[i1].Add(n.Scale(a1))
			normals[i2] = normals[i2].Add(n.Scale(a2))
		}
	}

	for i := range normals {
		n := normals[i].Normalize()
		if flags&NormalsWindCW != 0 {
			n = n.Negate()
		}
		normals[i] = n
	}
	return normals, nil
}

// cornerAngle returns the angle between edges a and b leaving a corner.
func cornerAngle(a, b math3d.Vec3) float32 {
	d := a.Normalize().Dot(b.Normalize())
	return math32.Acos(max(-1, min(1, d)))
}
