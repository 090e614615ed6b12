package models

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/meshforge/pkg/math3d"
	"github.com/taigrr/meshforge/pkg/meshopt"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool                // Compute normals when the file carries none
	NormalWeights    meshopt.NormalsFlags // Weighting used when computing normals
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		NormalWeights:    meshopt.NormalsWeightByAngle,
	}
}

// LoadGLB loads a binary GLTF (.glb) file.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh. Every triangle
// primitive reachable from the default scene is flattened into one mesh
// in world space.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	mesh.Materials = extractMaterials(doc)

	w := &nodeWalker{doc: doc, mesh: mesh, visiting: make(map[int]bool)}
	for _, nodeIdx := range rootNodes(doc) {
		if err := w.walk(nodeIdx, math3d.Identity()); err != nil {
			return nil, err
		}
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		if err := mesh.CalculateNormals(l.NormalWeights); err != nil {
			return nil, err
		}
	}

	mesh.CalculateBounds()

	return mesh, nil
}

// rootNodes returns the nodes of the default scene, or every parentless
// node when the document has no scenes.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			sceneIdx = *doc.Scene
		}
		return doc.Scenes[sceneIdx].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, child := range n.Children {
			if child >= 0 && child < len(isChild) {
				isChild[child] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

type nodeWalker struct {
	doc      *gltf.Document
	mesh     *Mesh
	visiting map[int]bool
}

// walk processes a node and its children, accumulating transforms.
func (w *nodeWalker) walk(nodeIdx int, parent math3d.Mat4) error {
	if nodeIdx < 0 || nodeIdx >= len(w.doc.Nodes) {
		return fmt.Errorf("node %d out of range", nodeIdx)
	}
	if w.visiting[nodeIdx] {
		return fmt.Errorf("node %d is its own ancestor", nodeIdx)
	}
	w.visiting[nodeIdx] = true
	defer delete(w.visiting, nodeIdx)

	node := w.doc.Nodes[nodeIdx]
	world := parent.Mul(localTransform(node))

	if node.Mesh != nil {
		meshIdx := *node.Mesh
		if meshIdx < 0 || meshIdx >= len(w.doc.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", nodeIdx, meshIdx)
		}
		if err := w.appendMesh(w.doc.Meshes[meshIdx], world); err != nil {
			return fmt.Errorf("mesh %d: %w", meshIdx, err)
		}
	}

	for _, childIdx := range node.Children {
		if err := w.walk(childIdx, world); err != nil {
			return err
		}
	}
	return nil
}

// localTransform builds T*R*S, or the explicit matrix when one is set.
func localTransform(node *gltf.Node) math3d.Mat4 {
	if node.Matrix != [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1} && node.Matrix != [16]float64{} {
		return math3d.Mat4FromSlice(node.Matrix[:])
	}

	m := math3d.Identity()
	if node.Translation != [3]float64{0, 0, 0} {
		m = m.Mul(math3d.Translate(math3d.V3(
			float32(node.Translation[0]),
			float32(node.Translation[1]),
			float32(node.Translation[2]),
		)))
	}
	if node.Rotation != [4]float64{0, 0, 0, 1} && node.Rotation != [4]float64{} {
		m = m.Mul(math3d.QuatToMat4(
			float32(node.Rotation[0]),
			float32(node.Rotation[1]),
			float32(node.Rotation[2]),
			float32(node.Rotation[3]),
		))
	}
	if node.Scale != [3]float64{1, 1, 1} && node.Scale != [3]float64{0, 0, 0} {
		m = m.Mul(math3d.Scale(math3d.V3(
			float32(node.Scale[0]),
			float32(node.Scale[1]),
			float32(node.Scale[2]),
		)))
	}
	return m
}

func (w *nodeWalker) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(w.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return w.doc.Accessors[idx], nil
}

// appendMesh extracts geometry from every triangle primitive of m,
// applying the given transform. Winding is kept as stored.
func (w *nodeWalker) appendMesh(m *gltf.Mesh, transform math3d.Mat4) error {
	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}
		if err := w.appendPrimitive(prim, transform); err != nil {
			return fmt.Errorf("primitive %d: %w", pi, err)
		}
	}
	return nil
}

func (w *nodeWalker) appendPrimitive(prim *gltf.Primitive, transform math3d.Mat4) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	acr, err := w.accessor(posIdx)
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(w.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = w.accessor(idx); err != nil {
			return err
		}
		if normals, err = modeler.ReadNormal(w.doc, acr, nil); err != nil {
			return fmt.Errorf("read normals: %w", err)
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = w.accessor(idx); err != nil {
			return err
		}
		if uvs, err = modeler.ReadTextureCoord(w.doc, acr, nil); err != nil {
			return fmt.Errorf("read uvs: %w", err)
		}
	}

	var tangents [][4]float32
	if idx, ok := prim.Attributes[gltf.TANGENT]; ok {
		if acr, err = w.accessor(idx); err != nil {
			return err
		}
		if tangents, err = modeler.ReadTangent(w.doc, acr, nil); err != nil {
			return fmt.Errorf("read tangents: %w", err)
		}
	}

	materialIdx := -1
	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(w.mesh.Materials) {
		materialIdx = *prim.Material
	}

	baseVertex := len(w.mesh.Vertices)
	for i, p := range positions {
		v := MeshVertex{Position: transform.MulVec3(math3d.V3FromArray(p))}
		if i < len(normals) {
			v.Normal = transform.MulVec3Dir(math3d.V3FromArray(normals[i])).Normalize()
		}
		if i < len(uvs) {
			v.UV = math3d.V2(uvs[i][0], uvs[i][1])
		}
		if i < len(tangents) {
			t := tangents[i]
			dir := transform.MulVec3Dir(math3d.V3(t[0], t[1], t[2])).Normalize()
			v.Tangent = math3d.V4FromV3(dir, t[3])
		}
		w.mesh.Vertices = append(w.mesh.Vertices, v)
	}

	var indices []uint32
	if prim.Indices != nil {
		if acr, err = w.accessor(*prim.Indices); err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(w.doc, acr, nil); err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		var face Face
		face.Material = materialIdx
		for c := range 3 {
			if int(indices[i+c]) >= len(positions) {
				return fmt.Errorf("index %d references vertex %d of %d", i+c, indices[i+c], len(positions))
			}
			face.V[c] = baseVertex + int(indices[i+c])
		}
		w.mesh.Faces = append(w.mesh.Faces, face)
	}
	return nil
}

// extractMaterials extracts all materials from a GLTF document.
func extractMaterials(doc *gltf.Document) []Material {
	materials := make([]Material, len(doc.Materials))

	for i, mat := range doc.Materials {
		m := Material{
			Name:      mat.Name,
			BaseColor: [4]float64{1, 1, 1, 1}, // Default white
			Metallic:  1,
			Roughness: 1,
		}

		if pbr := mat.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				m.BaseColor = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				m.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				m.Roughness = *pbr.RoughnessFactor
			}
		}

		materials[i] = m
	}

	return materials
}

// SaveGLB writes the mesh as a single-node binary glTF. Faces are emitted
// as one primitive per run of equal material, so callers that sorted by
// attribute get one draw per material.
func SaveGLB(path string, mesh *Mesh) error {
	doc, err := buildDocument(mesh)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save glb: %w", err)
	}
	return nil
}

func buildDocument(mesh *Mesh) (*gltf.Document, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", mesh.Name)
	}

	doc := gltf.NewDocument()

	for _, mat := range mesh.Materials {
		color := mat.BaseColor
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name: mat.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &color,
				MetallicFactor:  gltf.Float(mat.Metallic),
				RoughnessFactor: gltf.Float(mat.Roughness),
			},
		})
	}

	n := len(mesh.Vertices)
	positions := make([][3]float32, n)
	uvs := make([][2]float32, n)
	var normals [][3]float32
	var tangents [][4]float32
	hasUVs := false
	if mesh.HasNormals() {
		normals = make([][3]float32, n)
	}
	if mesh.HasTangents() {
		tangents = make([][4]float32, n)
	}
	for i, v := range mesh.Vertices {
		positions[i] = v.Position.Array()
		uvs[i] = [2]float32{v.UV.X, v.UV.Y}
		if v.UV != (math3d.Vec2{}) {
			hasUVs = true
		}
		if normals != nil {
			normals[i] = v.Normal.Array()
		}
		if tangents != nil {
			tangents[i] = v.Tangent.Array()
		}
	}

	attrs := map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)}
	if normals != nil {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}
	if hasUVs {
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, uvs)
	}
	if tangents != nil {
		attrs[gltf.TANGENT] = modeler.WriteTangent(doc, tangents)
	}

	var prims []*gltf.Primitive
	for start := 0; start < len(mesh.Faces); {
		material := mesh.Faces[start].Material
		end := start
		var indices []uint32
		for ; end < len(mesh.Faces) && mesh.Faces[end].Material == material; end++ {
			for _, v := range mesh.Faces[end].V {
				if v < 0 || v >= n {
					return nil, fmt.Errorf("face %d references vertex %d of %d", end, v, n)
				}
				indices = append(indices, uint32(v))
			}
		}

		prim := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: attrs,
		}
		if material >= 0 && material < len(mesh.Materials) {
			prim.Material = gltf.Index(material)
		}
		prims = append(prims, prim)
		start = end
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: mesh.Name, Primitives: prims})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: mesh.Name, Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc, nil
}
