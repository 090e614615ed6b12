package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
)

// OBJLoader loads Wavefront OBJ files.
type OBJLoader struct {
	// Options
	CalculateNormals bool                // If true, calculate normals if not provided
	NormalWeights    meshopt.NormalsFlags // Weighting used when calculating normals
}

// NewOBJLoader creates a new OBJ loader with default settings.
func NewOBJLoader() *OBJLoader {
	return &OBJLoader{
		CalculateNormals: true,
		NormalWeights:    meshopt.NormalsWeightByAngle,
	}
}

// LoadFile loads an OBJ file from disk.
func (l *OBJLoader) LoadFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer f.Close()

	return l.Load(f, path)
}

// Load parses an OBJ from a reader. Faces keep the file's counter-clockwise
// winding; polygons are fan triangulated.
func (l *OBJLoader) Load(r io.Reader, name string) (*Mesh, error) {
	mesh := NewMesh(name)

	// Temporary storage for OBJ data (1-indexed in OBJ format)
	var positions []math3d.Vec3
	var normals []math3d.Vec3
	var uvs []math3d.Vec2

	// OBJ indexes position, uv and normal separately; each distinct triple
	// becomes one mesh vertex.
	type vertexKey struct {
		pos, uv, normal int
	}
	vertexMap := make(map[vertexKey]int)
	materialIDs := make(map[string]int)
	material := -1

	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex: %w", lineNum, err)
			}
			positions = append(positions, math3d.V3(v[0], v[1], v[2]))

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid texture coord: %w", lineNum, err)
			}
			uvs = append(uvs, math3d.V2(v[0], v[1]))

		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid normal: %w", lineNum, err)
			}
			normals = append(normals, math3d.V3(v[0], v[1], v[2]).Normalize())

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNum)
			}

			var faceVerts []int
			for _, field := range fields[1:] {
				posIdx, uvIdx, normalIdx, err := parseFaceVertex(field)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}

				// Convert to 0-indexed, handle negative indices
				posIdx = resolveIndex(posIdx, len(positions))
				uvIdx = resolveIndex(uvIdx, len(uvs))
				normalIdx = resolveIndex(normalIdx, len(normals))

				if posIdx < 0 || posIdx >= len(positions) {
					return nil, fmt.Errorf("line %d: position index %d out of range", lineNum, posIdx+1)
				}

				key := vertexKey{posIdx, uvIdx, normalIdx}
				vertIdx, exists := vertexMap[key]
				if !exists {
					vert := MeshVertex{
						Position: positions[posIdx],
					}
					if uvIdx >= 0 && uvIdx < len(uvs) {
						vert.UV = uvs[uvIdx]
					}
					if normalIdx >= 0 && normalIdx < len(normals) {
						vert.Normal = normals[normalIdx]
					}
					vertIdx = len(mesh.Vertices)
					mesh.Vertices = append(mesh.Vertices, vert)
					vertexMap[key] = vertIdx
				}
				faceVerts = append(faceVerts, vertIdx)
			}

			for i := 1; i < len(faceVerts)-1; i++ {
				mesh.Faces = append(mesh.Faces, Face{
					V:        [3]int{faceVerts[0], faceVerts[i], faceVerts[i+1]},
					Material: material,
				})
			}

		case "o", "g": // Object/group name (use as mesh name)
			if len(fields) > 1 {
				mesh.Name = fields[1]
			}

		case "usemtl":
			if len(fields) < 2 {
				material = -1
				continue
			}
			id, ok := materialIDs[fields[1]]
			if !ok {
				id = len(mesh.Materials)
				materialIDs[fields[1]] = id
				mesh.Materials = append(mesh.Materials, Material{
					Name:      fields[1],
					BaseColor: [4]float64{1, 1, 1, 1},
					Roughness: 1,
				})
			}
			material = id

		default:
			// mtllib, s and unknown directives
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading OBJ: %w", err)
	}

	mesh.CalculateBounds()

	if l.CalculateNormals && len(normals) == 0 {
		if err := mesh.CalculateNormals(l.NormalWeights); err != nil {
			return nil, err
		}
	}

	return mesh, nil
}

// parseFloats parses the first n fields as float32 values.
func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("need %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex parses a face vertex in format: v, v/vt, v/vt/vn, or v//vn
// Returns 1-indexed values (0 means not specified)
func parseFaceVertex(s string) (pos, uv, normal int, err error) {
	parts := strings.Split(s, "/")

	pos, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid vertex index: %s", parts[0])
	}

	if len(parts) > 1 && parts[1] != "" {
		uv, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid texture index: %s", parts[1])
		}
	}

	if len(parts) > 2 && parts[2] != "" {
		normal, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid normal index: %s", parts[2])
		}
	}

	return pos, uv, normal, nil
}

// resolveIndex converts OBJ 1-indexed (or negative) index to 0-indexed.
// Returns -1 if index was 0 (not specified).
func resolveIndex(idx, count int) int {
	if idx == 0 {
		return -1
	}
	if idx < 0 {
		return count + idx // Negative indices count from end
	}
	return idx - 1
}

// LoadOBJ is a convenience function to load an OBJ file with default settings.
func LoadOBJ(path string) (*Mesh, error) {
	return NewOBJLoader().LoadFile(path)
}

// WriteOBJ writes mesh as Wavefront OBJ. Every vertex is written with its
// uv and normal so face corners use the v/vt/vn form; materials become
// usemtl runs.
func WriteOBJ(w io.Writer, mesh *Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# meshforge\no %s\n", objName(mesh.Name))

	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", fmtFloat(v.Position.X), fmtFloat(v.Position.Y), fmtFloat(v.Position.Z))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "vt %s %s\n", fmtFloat(v.UV.X), fmtFloat(v.UV.Y))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "vn %s %s %s\n", fmtFloat(v.Normal.X), fmtFloat(v.Normal.Y), fmtFloat(v.Normal.Z))
	}

	current := -1
	for _, f := range mesh.Faces {
		if f.Material != current && f.Material >= 0 && f.Material < len(mesh.Materials) {
			fmt.Fprintf(bw, "usemtl %s\n", objName(mesh.Materials[f.Material].Name))
			current = f.Material
		}
		a, b, c := f.V[0]+1, f.V[1]+1, f.V[2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write OBJ: %w", err)
	}
	return nil
}

// SaveOBJ writes mesh to path as OBJ.
func SaveOBJ(path string, mesh *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create OBJ file: %w", err)
	}
	if err := WriteOBJ(f, mesh); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// objName keeps names on one whitespace-free token.
func objName(s string) string {
	if s == "" {
		return "mesh"
	}
	return strings.Join(strings.Fields(s), "_")
}
