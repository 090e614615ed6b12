package models

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/meshforge/pkg/math3d"
)

func TestLoadSimpleOBJ(t *testing.T) {
	objData := `
# Simple triangle
v 0 0 0
v 1 0 0
v 0.5 1 0
f 1 2 3
`
	loader := NewOBJLoader()
	mesh, err := loader.Load(strings.NewReader(objData), "triangle")
	if err != nil {
		t.Fatalf("failed to load OBJ: %v", err)
	}

	if mesh.VertexCount() != 3 {
		t.Errorf("expected 3 vertices, got %d", mesh.VertexCount())
	}

	if mesh.TriangleCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", mesh.TriangleCount())
	}

	// File winding is kept: counter-clockwise in XY faces +Z.
	if got := mesh.Faces[0].V; got != [3]int{0, 1, 2} {
		t.Errorf("face = %v, want [0 1 2]", got)
	}
	if n := mesh.Vertices[0].Normal; n.Sub(math3d.V3(0, 0, 1)).Len() > 1e-6 {
		t.Errorf("calculated normal = %v, want (0,0,1)", n)
	}
}

func TestLoadCubeOBJ(t *testing.T) {
	objData := `
# Cube
v -0.5 -0.5 -0.5
v  0.5 -0.5 -0.5
v  0.5  0.5 -0.5
v -0.5  0.5 -0.5
v -0.5 -0.5  0.5
v  0.5 -0.5  0.5
v  0.5  0.5  0.5
v -0.5  0.5  0.5

f 1 4 3 2
f 5 6 7 8
f 1 5 8 4
f 2 3 7 6
f 4 8 7 3
f 1 2 6 5
`
	loader := NewOBJLoader()
	mesh, err := loader.Load(strings.NewReader(objData), "cube")
	if err != nil {
		t.Fatalf("failed to load cube: %v", err)
	}

	// 6 faces * 2 triangles per quad = 12 triangles
	if mesh.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles (6 quads), got %d", mesh.TriangleCount())
	}

	expectedMin := math3d.V3(-0.5, -0.5, -0.5)
	expectedMax := math3d.V3(0.5, 0.5, 0.5)

	if mesh.BoundsMin != expectedMin {
		t.Errorf("expected min bounds %v, got %v", expectedMin, mesh.BoundsMin)
	}
	if mesh.BoundsMax != expectedMax {
		t.Errorf("expected max bounds %v, got %v", expectedMax, mesh.BoundsMax)
	}

	// Outward winding: every corner normal points away from the center.
	for i, v := range mesh.Vertices {
		if v.Normal.Dot(v.Position) <= 0 {
			t.Errorf("vertex %d normal %v points inward", i, v.Normal)
		}
	}
}

func TestLoadOBJWithUVsAndNormals(t *testing.T) {
	objData := `
v 0 0 0
v 1 0 0
v 0.5 1 0
vt 0 0
vt 1 0
vt 0.5 1
vn 0 0 2
f 1/1/1 2/2/1 3/3/1
`
	loader := NewOBJLoader()
	loader.CalculateNormals = false // Use provided normals
	mesh, err := loader.Load(strings.NewReader(objData), "tri_with_attrs")
	if err != nil {
		t.Fatalf("failed to load OBJ: %v", err)
	}

	v := mesh.Vertices[2]
	if v.UV != math3d.V2(0.5, 1) {
		t.Errorf("expected UV (0.5,1), got %v", v.UV)
	}

	expectedNormal := math3d.V3(0, 0, 1)
	if v.Normal != expectedNormal {
		t.Errorf("expected normal %v, got %v", expectedNormal, v.Normal)
	}
}

func TestNegativeIndices(t *testing.T) {
	// OBJ allows negative indices (counting from end)
	objData := `
v 0 0 0
v 1 0 0
v 0.5 1 0
f -3 -2 -1
`
	loader := NewOBJLoader()
	mesh, err := loader.Load(strings.NewReader(objData), "neg_indices")
	if err != nil {
		t.Fatalf("failed to load OBJ: %v", err)
	}

	if mesh.TriangleCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", mesh.TriangleCount())
	}
}

func TestOBJMaterials(t *testing.T) {
	objData := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
usemtl red
f 1 2 3
usemtl blue
f 1 3 4
usemtl red
f 2 3 4
`
	mesh, err := NewOBJLoader().Load(strings.NewReader(objData), "mats")
	if err != nil {
		t.Fatalf("failed to load OBJ: %v", err)
	}
	if len(mesh.Materials) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(mesh.Materials))
	}
	want := []int{0, 1, 0}
	for i, f := range mesh.Faces {
		if f.Material != want[i] {
			t.Errorf("face %d material = %d, want %d", i, f.Material, want[i])
		}
	}
}

func TestOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"short vertex", "v 1 2\n"},
		{"bad float", "v 1 x 2\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n"},
		{"bad index", "v 0 0 0\nf 1 a 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOBJLoader().Load(strings.NewReader(tt.data), tt.name); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteOBJRoundTrip(t *testing.T) {
	mesh := NewMesh("quad")
	mesh.Vertices = []MeshVertex{
		{Position: math3d.V3(0, 0, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 0)},
		{Position: math3d.V3(1, 0, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(1, 0)},
		{Position: math3d.V3(1, 1, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(1, 1)},
		{Position: math3d.V3(0, 1, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 1)},
	}
	mesh.Materials = []Material{{Name: "paint"}}
	mesh.Faces = []Face{{V: [3]int{0, 1, 2}, Material: 0}, {V: [3]int{0, 2, 3}, Material: 0}}

	var buf bytes.Buffer
	if err := WriteOBJ(&buf, mesh); err != nil {
		t.Fatalf("WriteOBJ: %v", err)
	}
	if !strings.Contains(buf.String(), "usemtl paint") {
		t.Errorf("output is missing the material:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := SaveOBJ(path, mesh); err != nil {
		t.Fatalf("SaveOBJ: %v", err)
	}
	loader := NewOBJLoader()
	loader.CalculateNormals = false
	got, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.VertexCount() != 4 || got.TriangleCount() != 2 {
		t.Fatalf("round trip = %d vertices, %d triangles, want 4 and 2", got.VertexCount(), got.TriangleCount())
	}
	for i, v := range got.Vertices {
		if v != mesh.Vertices[i] {
			t.Errorf("vertex %d = %+v, want %+v", i, v, mesh.Vertices[i])
		}
	}
	for i, f := range got.Faces {
		if f != mesh.Faces[i] {
			t.Errorf("face %d = %+v, want %+v", i, f, mesh.Faces[i])
		}
	}
}
