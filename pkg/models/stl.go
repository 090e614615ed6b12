package models

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
)

// STLLoader loads STL (stereolithography) files in both ASCII and binary formats.
type STLLoader struct {
	// Options
	SmoothNormals  bool    // If true, recompute angle-weighted normals after welding
	NoDedupe       bool    // If true, don't weld vertices (each triangle gets its own)
	MergeTolerance float32 // Welding distance, 0 = bit-identical positions only
}

// NewSTLLoader creates a new STL loader with default settings.
func NewSTLLoader() *STLLoader {
	return &STLLoader{}
}

// LoadFile loads an STL file from disk.
func (l *STLLoader) LoadFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL file: %w", err)
	}

	return l.LoadBytes(data, path)
}

// LoadBytes parses STL from a byte slice.
func (l *STLLoader) LoadBytes(data []byte, name string) (*Mesh, error) {
	var facets []stlFacet
	var err error
	if isBinarySTL(data) {
		facets, err = parseBinarySTL(data)
	} else {
		var solid string
		facets, solid, err = parseASCIISTL(data)
		if solid != "" {
			name = solid
		}
	}
	if err != nil {
		return nil, err
	}
	return l.build(name, facets)
}

// Load parses STL from a reader.
// Note: This reads the entire content into memory to detect format.
func (l *STLLoader) Load(r io.Reader, name string) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL data: %w", err)
	}
	return l.LoadBytes(data, name)
}

// stlFacet is one triangle as stored in the file.
type stlFacet struct {
	normal math3d.Vec3
	v      [3]math3d.Vec3
}

// isBinarySTL detects if the data is binary STL format.
// Binary STL starts with 80-byte header, then 4-byte triangle count.
// ASCII STL starts with "solid".
func isBinarySTL(data []byte) bool {
	if len(data) < 84 {
		return false
	}

	// Binary headers may also start with "solid"; the size check decides.
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("solid")) {
		triCount := binary.LittleEndian.Uint32(data[80:84])
		return uint64(len(data)) == 84+uint64(triCount)*50
	}

	return true
}

// parseBinarySTL reads the 50-byte facet records of a binary STL.
func parseBinarySTL(data []byte) ([]stlFacet, error) {
	if len(data) < 84 {
		return nil, fmt.Errorf("binary STL too short: %d bytes", len(data))
	}

	triCount := binary.LittleEndian.Uint32(data[80:84])
	expectedSize := 84 + uint64(triCount)*50
	if uint64(len(data)) < expectedSize {
		return nil, fmt.Errorf("binary STL truncated: expected %d bytes, got %d", expectedSize, len(data))
	}

	facets := make([]stlFacet, triCount)
	offset := 84
	for i := range facets {
		facets[i].normal = readVec3LE(data[offset:])
		offset += 12
		for v := range 3 {
			facets[i].v[v] = readVec3LE(data[offset:])
			offset += 12
		}
		// Skip 2-byte attribute byte count
		offset += 2
	}
	return facets, nil
}

// readVec3LE reads three little-endian float32 values.
func readVec3LE(data []byte) math3d.Vec3 {
	return math3d.V3(
		math.Float32frombits(binary.LittleEndian.Uint32(data)),
		math.Float32frombits(binary.LittleEndian.Uint32(data[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[8:])),
	)
}

// parseASCIISTL reads facet/outer loop/vertex blocks. It also returns the
// solid name, if any.
func parseASCIISTL(data []byte) ([]stlFacet, string, error) {
	var facets []stlFacet
	var solid string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	var current stlFacet
	corners := 0
	inFacet := false
	inLoop := false

	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "solid":
			if len(fields) > 1 {
				solid = fields[1]
			}

		case "facet":
			current = stlFacet{}
			if len(fields) >= 5 && strings.ToLower(fields[1]) == "normal" {
				n, err := parseFloats(fields[2:], 3)
				if err != nil {
					return nil, "", fmt.Errorf("line %d: invalid normal: %w", lineNum, err)
				}
				current.normal = math3d.V3(n[0], n[1], n[2]).Normalize()
			}
			inFacet = true
			corners = 0

		case "outer":
			if len(fields) >= 2 && strings.ToLower(fields[1]) == "loop" {
				inLoop = true
			}

		case "vertex":
			if !inFacet || !inLoop {
				return nil, "", fmt.Errorf("line %d: vertex outside facet/loop", lineNum)
			}
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, "", fmt.Errorf("line %d: invalid vertex: %w", lineNum, err)
			}
			if corners < 3 {
				current.v[corners] = math3d.V3(p[0], p[1], p[2])
			}
			corners++

		case "endloop":
			inLoop = false

		case "endfacet":
			if corners >= 3 {
				facets = append(facets, current)
			}
			inFacet = false

		default:
			// endsolid and unknown keywords
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("error reading ASCII STL: %w", err)
	}
	return facets, solid, nil
}

// build turns facets into a mesh. Unless NoDedupe is set, corners are
// welded through meshopt point representatives so coincident positions
// share one vertex, and facet normals are averaged onto it.
func (l *STLLoader) build(name string, facets []stlFacet) (*Mesh, error) {
	mesh := NewMesh(name)
	if len(facets) == 0 {
		return mesh, nil
	}

	indices := make([]int32, 0, len(facets)*3)
	positions := make([]math3d.Vec3, 0, len(facets)*3)
	for _, f := range facets {
		for _, p := range f.v {
			indices = append(indices, int32(len(positions)))
			positions = append(positions, p)
		}
	}

	rep := func(v int32) int32 { return v }
	if !l.NoDedupe {
		pointReps, err := meshopt.GeneratePointReps(indices, positions, l.MergeTolerance)
		if err != nil {
			return nil, fmt.Errorf("weld STL vertices: %w", err)
		}
		rep = func(v int32) int32 { return pointReps[v] }
	}

	mesh.Vertices = make([]MeshVertex, len(positions))
	for i, p := range positions {
		mesh.Vertices[i].Position = p
	}
	for fi, f := range facets {
		var face [3]int
		for c := range 3 {
			r := rep(int32(fi*3 + c))
			face[c] = int(r)
			mesh.Vertices[r].Normal = mesh.Vertices[r].Normal.Add(f.normal)
		}
		mesh.Faces = append(mesh.Faces, Face{V: face, Material: -1})
	}
	for i := range mesh.Vertices {
		mesh.Vertices[i].Normal = mesh.Vertices[i].Normal.Normalize()
	}

	if !l.NoDedupe {
		if _, err := mesh.RemoveUnreferencedVertices(); err != nil {
			return nil, err
		}
	}

	mesh.CalculateBounds()

	if l.SmoothNormals {
		if err := mesh.CalculateNormals(meshopt.NormalsWeightByAngle); err != nil {
			return nil, err
		}
	}

	return mesh, nil
}

// LoadSTL is a convenience function to load an STL file with default settings.
func LoadSTL(path string) (*Mesh, error) {
	return NewSTLLoader().LoadFile(path)
}
