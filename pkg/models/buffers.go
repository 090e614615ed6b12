package models

import (
	"fmt"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
)

// Buffers is a mesh split into the parallel arrays meshopt consumes.
// Normals and Tangents are nil when the mesh has none. Attributes holds
// Face.Material+1 per face, so 0 marks faces without a material.
type Buffers struct {
	Indices    []int32
	Positions  []math3d.Vec3
	Normals    []math3d.Vec3
	UVs        []math3d.Vec2
	Tangents   []math3d.Vec4
	Attributes []uint32
}

// Buffers flattens the mesh.
func (m *Mesh) Buffers() Buffers {
	b := Buffers{
		Indices:    m.indices(),
		Positions:  make([]math3d.Vec3, len(m.Vertices)),
		Attributes: make([]uint32, len(m.Faces)),
	}
	hasNormals, hasTangents := m.HasNormals(), m.HasTangents()
	if hasNormals {
		b.Normals = make([]math3d.Vec3, len(m.Vertices))
	}
	b.UVs = make([]math3d.Vec2, len(m.Vertices))
	if hasTangents {
		b.Tangents = make([]math3d.Vec4, len(m.Vertices))
	}
	for i, v := range m.Vertices {
		b.Positions[i] = v.Position
		b.UVs[i] = v.UV
		if hasNormals {
			b.Normals[i] = v.Normal
		}
		if hasTangents {
			b.Tangents[i] = v.Tangent
		}
	}
	for i, f := range m.Faces {
		if f.Material >= 0 {
			b.Attributes[i] = uint32(f.Material) + 1
		}
	}
	return b
}

// FromBuffers rebuilds a mesh from flat buffers. Unused faces are skipped.
// Attributes that do not address one of materials leave the face without
// a material.
func FromBuffers(name string, b Buffers, materials []Material) (*Mesh, error) {
	n := len(b.Positions)
	if len(b.Indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(b.Indices))
	}
	for what, l := range map[string]int{"normals": len(b.Normals), "uvs": len(b.UVs), "tangents": len(b.Tangents)} {
		if l != 0 && l != n {
			return nil, fmt.Errorf("%d %s for %d positions", l, what, n)
		}
	}
	if b.Attributes != nil && len(b.Attributes) != len(b.Indices)/3 {
		return nil, fmt.Errorf("%d attributes for %d faces", len(b.Attributes), len(b.Indices)/3)
	}

	mesh := NewMesh(name)
	mesh.Materials = append(mesh.Materials, materials...)
	mesh.Vertices = make([]MeshVertex, n)
	for i := range n {
		v := MeshVertex{Position: b.Positions[i]}
		if b.Normals != nil {
			v.Normal = b.Normals[i]
		}
		if b.UVs != nil {
			v.UV = b.UVs[i]
		}
		if b.Tangents != nil {
			v.Tangent = b.Tangents[i]
		}
		mesh.Vertices[i] = v
	}

	for f := 0; f < len(b.Indices)/3; f++ {
		i0, i1, i2 := b.Indices[f*3], b.Indices[f*3+1], b.Indices[f*3+2]
		if i0 == meshopt.Unused || i1 == meshopt.Unused || i2 == meshopt.Unused {
			continue
		}
		for _, i := range [3]int32{i0, i1, i2} {
			if i < 0 || int(i) >= n {
				return nil, fmt.Errorf("face %d references vertex %d of %d", f, i, n)
			}
		}
		material := -1
		if b.Attributes != nil && b.Attributes[f] > 0 && int(b.Attributes[f]) <= len(materials) {
			material = int(b.Attributes[f]) - 1
		}
		mesh.Faces = append(mesh.Faces, Face{V: [3]int{int(i0), int(i1), int(i2)}, Material: material})
	}
	mesh.CalculateBounds()
	return mesh, nil
}
