// Package models loads and stores triangle meshes for meshforge and converts
// them to and from the flat buffers the optimizer works on.
package models

import (
	"fmt"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
	Tangent  math3d.Vec4 // xyz tangent, w bitangent sign; zero when absent
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is the subset of a PBR material that survives a round trip.
type Material struct {
	Name      string
	BaseColor [4]float64 // RGBA in 0-1 range
	Metallic  float64    // 0 = dielectric, 1 = metal
	Roughness float64    // 0 = smooth, 1 = rough
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// HasNormals reports whether any vertex carries a usable normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.Len() > 0.001 {
			return true
		}
	}
	return false
}

// HasTangents reports whether any vertex carries a tangent frame.
func (m *Mesh) HasTangents() bool {
	for _, v := range m.Vertices {
		if v.Tangent.W != 0 {
			return true
		}
	}
	return false
}

// CalculateNormals replaces every vertex normal with the weighted average
// of the face normals around it.
func (m *Mesh) CalculateNormals(flags meshopt.NormalsFlags) error {
	if len(m.Faces) == 0 {
		return nil
	}
	b := m.Buffers()
	normals, err := meshopt.ComputeNormals(b.Indices, b.Positions, flags)
	if err != nil {
		return fmt.Errorf("compute normals: %w", err)
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = normals[i]
	}
	return nil
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulVec3(v.Position)
		v.Normal = mat.MulVec3Dir(v.Normal).Normalize()
		if v.Tangent.W != 0 {
			v.Tangent = math3d.V4FromV3(mat.MulVec3Dir(v.Tangent.Vec3()).Normalize(), v.Tangent.W)
		}
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// faceKey creates a canonical key for a face by sorting vertex indices.
// Two faces with the same vertices (in any order) will have the same key.
func faceKey(v0, v1, v2 int) [3]int {
	if v0 > v1 {
		v0, v1 = v1, v0
	}
	if v1 > v2 {
		v1, v2 = v2, v1
	}
	if v0 > v1 {
		v0, v1 = v1, v0
	}
	return [3]int{v0, v1, v2}
}

// DeduplicateFaces removes duplicate faces from the mesh.
// Two faces are considered duplicates if they have the same three vertices
// (regardless of winding order). When duplicates are found, only the first
// occurrence is kept.
// Returns the number of faces removed.
func (m *Mesh) DeduplicateFaces() int {
	if len(m.Faces) == 0 {
		return 0
	}

	seen := make(map[[3]int]bool)
	kept := make([]Face, 0, len(m.Faces))

	for _, f := range m.Faces {
		key := faceKey(f.V[0], f.V[1], f.V[2])
		if !seen[key] {
			seen[key] = true
			kept = append(kept, f)
		}
	}

	removed := len(m.Faces) - len(kept)
	m.Faces = kept
	return removed
}

// RemoveUnreferencedVertices drops vertices no face uses and renumbers the
// rest in first-use order. Returns the number of vertices removed.
func (m *Mesh) RemoveUnreferencedVertices() (int, error) {
	if len(m.Faces) == 0 || len(m.Vertices) == 0 {
		return 0, nil
	}

	indices := m.indices()
	remap, trailing, err := meshopt.OptimizeVertices(indices, len(m.Vertices))
	if err != nil {
		return 0, fmt.Errorf("order vertices: %w", err)
	}
	if err := meshopt.FinalizeIBInPlace(indices, remap); err != nil {
		return 0, fmt.Errorf("rewrite indices: %w", err)
	}

	kept := make([]MeshVertex, 0, len(remap)-trailing)
	for _, src := range remap[:len(remap)-trailing] {
		kept = append(kept, m.Vertices[src])
	}
	m.Vertices = kept
	for i := range m.Faces {
		for c := range 3 {
			m.Faces[i].V[c] = int(indices[i*3+c])
		}
	}
	return trailing, nil
}

// indices flattens the faces into an engine index buffer.
func (m *Mesh) indices() []int32 {
	out := make([]int32, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		out = append(out, int32(f.V[0]), int32(f.V[1]), int32(f.V[2]))
	}
	return out
}
