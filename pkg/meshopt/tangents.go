package meshopt

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/taigrr/meshforge/pkg/math3d"
)

const tangentEpsilon = 1e-4

// ComputeTangentFrame returns per-vertex unit tangents and bitangents,
// orthogonalized against the supplied normals. Vertices no face uses get
// zero vectors.
func ComputeTangentFrame(indices []int32, positions, normals []math3d.Vec3, uvs []math3d.Vec2) (tangents, bitangents []math3d.Vec3, err error) {
	tangents, bitangents, _, err = tangentFrame(indices, positions, normals, uvs)
	return tangents, bitangents, err
}

// ComputeTangentFrameHandedness returns per-vertex unit tangents with the
// bitangent sign in W, so that bitangent = cross(normal, tangent) * W.
func ComputeTangentFrameHandedness(indices []int32, positions, normals []math3d.Vec3, uvs []math3d.Vec2) ([]math3d.Vec4, error) {
	tangents, bitangents, unitNormals, err := tangentFrame(indices, positions, normals, uvs)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec4, len(tangents))
	for i, t := range tangents {
		w := float32(1)
		if unitNormals[i].Cross(t).Dot(bitangents[i]) < 0 {
			w = -1
		}
		out[i] = math3d.V4FromV3(t, w)
	}
	return out, nil
}

func tangentFrame(indices []int32, positions, normals []math3d.Vec3, uvs []math3d.Vec2) (tangents, bitangents, unitNormals []math3d.Vec3, err error) {
	nFaces, err := faceCount(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	nVerts := len(positions)
	if err := checkVertexCount(nVerts); err != nil {
		return nil, nil, nil, err
	}
	if len(normals) != nVerts || len(uvs) != nVerts {
		return nil, nil, nil, fmt.Errorf("%d normals and %d uvs for %d positions: %w", len(normals), len(uvs), nVerts, ErrInvalidArgument)
	}

	tan1 := make([]math3d.Vec3, nVerts)
	tan2 := make([]math3d.Vec3, nVerts)
	used := make([]bool, nVerts)

	for face := range nFaces {
		i0, i1, i2 := indices[face*3], indices[face*3+1], indices[face*3+2]
		if i0 == Unused || i1 == Unused || i2 == Unused {
			continue
		}
		if i0 < 0 || i1 < 0 || i2 < 0 || int(i0) >= nVerts || int(i1) >= nVerts || int(i2) >= nVerts {
			return nil, nil, nil, fmt.Errorf("face %d references vertex outside %d: %w", face, nVerts, ErrIndexOutOfRange)
		}
		used[i0], used[i1], used[i2] = true, true, true

		du := uvs[i1].Sub(uvs[i0])
		dv := uvs[i2].Sub(uvs[i0])
		d := du.X*dv.Y - dv.X*du.Y
		if math32.Abs(d) <= tangentEpsilon {
			d = 1
		} else {
			d = 1 / d
		}

		e1 := positions[i1].Sub(positions[i0])
		e2 := positions[i2].Sub(positions[i0])
		t := e1.Scale(dv.Y).Sub(e2.Scale(du.Y)).Scale(d)
		b := e2.Scale(du.X).Sub(e1.Scale(dv.X)).Scale(d)

		for _, i := range [3]int32{i0, i1, i2} {
			tan1[i] = tan1[i].Add(t)
			tan2[i] = tan2[i].Add(b)
		}
	}

	tangents = make([]math3d.Vec3, nVerts)
	bitangents = make([]math3d.Vec3, nVerts)
	unitNormals = make([]math3d.Vec3, nVerts)
	for v := range nVerts {
		if !used[v] {
			continue
		}
		n := normals[v]
		if n.Len() <= 0 {
			return nil, nil, nil, fmt.Errorf("normal of vertex %d has zero length: %w", v, ErrInvalidData)
		}
		n = n.Normalize()
		unitNormals[v] = n

		// Gram-Schmidt: tangent against the normal, then the bitangent
		// against both.
		t := tan1[v].Sub(n.Scale(n.Dot(tan1[v])))
		lenT := t.Len()
		if lenT > tangentEpsilon {
			t = t.Scale(1 / lenT)
		}

		b := tan2[v].Sub(n.Scale(n.Dot(tan2[v])))
		if lenT > tangentEpsilon {
			b = b.Sub(t.Scale(t.Dot(b)))
		}
		lenB := b.Len()
		if lenB > tangentEpsilon {
			b = b.Scale(1 / lenB)
		}

		switch {
		case lenT > tangentEpsilon && lenB > tangentEpsilon:
		case lenT > tangentEpsilon:
			b = n.Cross(t)
		case lenB > tangentEpsilon:
			t = b.Cross(n)
		default:
			t = n.Cross(leastAlignedAxis(n)).Normalize()
			b = n.Cross(t)
		}

		tangents[v] = t
		bitangents[v] = b
	}
	return tangents, bitangents, unitNormals, nil
}

// leastAlignedAxis returns the world axis most perpendicular to n.
func leastAlignedAxis(n math3d.Vec3) math3d.Vec3 {
	x, y, z := math32.Abs(n.X), math32.Abs(n.Y), math32.Abs(n.Z)
	switch {
	case x <= y && x <= z:
		return math3d.V3(1, 0, 0)
	case y <= z:
		return math3d.V3(0, 1, 0)
	default:
		return math3d.V3(0, 0, 1)
	}
}
