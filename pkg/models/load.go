package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load reads a model file, choosing the loader from the extension.
func Load(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".stl":
		return LoadSTL(path)
	case ".glb", ".gltf":
		return LoadGLB(path)
	default:
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}
}

// Save writes a model file, choosing the writer from the extension.
func Save(path string, mesh *Mesh) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return SaveOBJ(path, mesh)
	case ".glb":
		return SaveGLB(path, mesh)
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}
