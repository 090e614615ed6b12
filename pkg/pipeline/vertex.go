package pipeline

import (
	"encoding/binary"
	"fmt"

	"github.com/taigrr/meshforge/pkg/math3d"
)

// vertexRecord is the interleaved layout the vertex buffer stages move
// around: position, normal and texture coordinate.
type vertexRecord struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

var vertexStride = binary.Size(vertexRecord{})

// packVertices interleaves the attribute arrays into fixed-stride records.
// Missing normals or UVs are stored as zero.
func packVertices(positions, normals []math3d.Vec3, uvs []math3d.Vec2) ([]byte, error) {
	vb := make([]byte, len(positions)*vertexStride)
	for i, p := range positions {
		rec := vertexRecord{Position: p.Array()}
		if normals != nil {
			rec.Normal = normals[i].Array()
		}
		if uvs != nil {
			rec.UV = [2]float32{uvs[i].X, uvs[i].Y}
		}
		if _, err := binary.Encode(vb[i*vertexStride:], binary.LittleEndian, rec); err != nil {
			return nil, fmt.Errorf("encode vertex %d: %w", i, err)
		}
	}
	return vb, nil
}

// unpackVertices splits records back into attribute arrays. Normals and
// UVs are returned only when requested.
func unpackVertices(vb []byte, wantNormals, wantUVs bool) (positions, normals []math3d.Vec3, uvs []math3d.Vec2, err error) {
	n := len(vb) / vertexStride
	positions = make([]math3d.Vec3, n)
	if wantNormals {
		normals = make([]math3d.Vec3, n)
	}
	if wantUVs {
		uvs = make([]math3d.Vec2, n)
	}
	for i := range n {
		var rec vertexRecord
		if _, err := binary.Decode(vb[i*vertexStride:], binary.LittleEndian, &rec); err != nil {
			return nil, nil, nil, fmt.Errorf("decode vertex %d: %w", i, err)
		}
		positions[i] = math3d.V3FromArray(rec.Position)
		if wantNormals {
			normals[i] = math3d.V3FromArray(rec.Normal)
		}
		if wantUVs {
			uvs[i] = math3d.V2(rec.UV[0], rec.UV[1])
		}
	}
	return positions, normals, uvs, nil
}
