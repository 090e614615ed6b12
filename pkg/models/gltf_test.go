package models

import (
	"path/filepath"
	"testing"

	"github.com/taigrr/meshforge/pkg/math3d"
)

func TestGLBRoundTrip(t *testing.T) {
	mesh := quadMesh()
	if err := mesh.CalculateNormals(0); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "quad.glb")
	if err := SaveGLB(path, mesh); err != nil {
		t.Fatalf("SaveGLB: %v", err)
	}

	back, err := LoadGLB(path)
	if err != nil {
		t.Fatalf("LoadGLB: %v", err)
	}
	if back.TriangleCount() != 2 {
		t.Fatalf("TriangleCount = %d, want 2", back.TriangleCount())
	}
	if len(back.Materials) != 2 {
		t.Fatalf("Materials = %d, want 2", len(back.Materials))
	}
	for i, m := range mesh.Materials {
		if back.Materials[i] != m {
			t.Errorf("material %d = %+v, want %+v", i, back.Materials[i], m)
		}
	}

	// Each material run is its own primitive, so corners compare by value.
	for fi, f := range mesh.Faces {
		got := back.Faces[fi]
		if got.Material != f.Material {
			t.Errorf("face %d material = %d, want %d", fi, got.Material, f.Material)
		}
		for c := range 3 {
			want := mesh.Vertices[f.V[c]]
			have := back.Vertices[got.V[c]]
			if have.Position != want.Position {
				t.Errorf("face %d corner %d position = %v, want %v", fi, c, have.Position, want.Position)
			}
			if have.UV != want.UV {
				t.Errorf("face %d corner %d uv = %v, want %v", fi, c, have.UV, want.UV)
			}
			if have.Normal.Sub(want.Normal).Len() > 1e-6 {
				t.Errorf("face %d corner %d normal = %v, want %v", fi, c, have.Normal, want.Normal)
			}
		}
	}
}

func TestGLBSingleMaterialSharesVertices(t *testing.T) {
	mesh := quadMesh()
	mesh.Materials = nil
	for i := range mesh.Faces {
		mesh.Faces[i].Material = -1
	}
	mesh.Vertices[0].Tangent = math3d.V4(1, 0, 0, 1)

	path := filepath.Join(t.TempDir(), "quad.glb")
	if err := Save(path, mesh); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.VertexCount() != 4 {
		t.Errorf("VertexCount = %d, want 4", back.VertexCount())
	}
	for i, f := range back.Faces {
		if f.V != mesh.Faces[i].V {
			t.Errorf("face %d = %v, want %v", i, f.V, mesh.Faces[i].V)
		}
		if f.Material != -1 {
			t.Errorf("face %d material = %d, want -1", i, f.Material)
		}
	}
	if got := back.Vertices[0].Tangent; got != math3d.V4(1, 0, 0, 1) {
		t.Errorf("Tangent = %v, want (1,0,0,1)", got)
	}
	// Normals were absent in the file and get computed on load.
	if !back.HasNormals() {
		t.Error("loaded mesh has no normals")
	}
}

func TestSaveGLBEmpty(t *testing.T) {
	if err := SaveGLB(filepath.Join(t.TempDir(), "e.glb"), NewMesh("e")); err == nil {
		t.Error("SaveGLB of empty mesh succeeded")
	}
}

func TestLoadSaveDispatch(t *testing.T) {
	dir := t.TempDir()
	mesh := quadMesh()

	for _, name := range []string{"quad.obj", "QUAD.GLB"} {
		path := filepath.Join(dir, name)
		if err := Save(path, mesh); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		back, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if back.TriangleCount() != 2 {
			t.Errorf("%s: TriangleCount = %d, want 2", name, back.TriangleCount())
		}
	}

	if err := Save(filepath.Join(dir, "quad.stl"), mesh); err == nil {
		t.Error("Save to .stl succeeded, want unsupported format")
	}
	if _, err := Load(filepath.Join(dir, "quad.fbx")); err == nil {
		t.Error("Load of .fbx succeeded, want unsupported format")
	}
}
