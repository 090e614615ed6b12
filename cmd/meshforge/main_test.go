package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/meshforge/pkg/models"
)

const quadOBJ = `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3
f 1 3 4
`

const bowtieOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
v -1 0 0
v 0 -1 0
f 1 2 3
f 1 4 5
`

// sandbox isolates the command from any config file on the machine.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, format, suffix string
		want                  string
	}{
		{"a/model.obj", "", ".opt", "a/model.opt.obj"},
		{"model.GLB", "", ".opt", "model.opt.glb"},
		{"model.stl", "", ".opt", "model.opt.glb"},
		{"model.gltf", "", "", "model.glb"},
		{"model.obj", "glb", ".opt", "model.opt.glb"},
		{"model.stl", "obj", "_x", "model_x.obj"},
	}
	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.format, func(t *testing.T) {
			if got := outputPath(tt.input, tt.format, tt.suffix); got != tt.want {
				t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.input, tt.format, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestOptimizeCommand(t *testing.T) {
	dir := sandbox(t)
	input := filepath.Join(dir, "quad.obj")
	writeFile(t, input, quadOBJ)
	report := filepath.Join(dir, "report.yaml")

	out, err := execute(t, "optimize", input, "--report", report)
	if err != nil {
		t.Fatalf("optimize: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Triangles:  2 -> 2") {
		t.Errorf("output missing triangle counts:\n%s", out)
	}

	mesh, err := models.Load(filepath.Join(dir, "quad.opt.obj"))
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if mesh.TriangleCount() != 2 || mesh.VertexCount() != 4 {
		t.Errorf("output has %d triangles, %d vertices, want 2, 4", mesh.TriangleCount(), mesh.VertexCount())
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	var reports []fileReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	if r := reports[0]; r.Input != input || !r.Stats.Valid || r.Stats.RunID == "" {
		t.Errorf("report = %+v", r)
	}
}

func TestOptimizeOutputFlag(t *testing.T) {
	dir := sandbox(t)
	input := filepath.Join(dir, "quad.obj")
	writeFile(t, input, quadOBJ)
	output := filepath.Join(dir, "out.glb")

	if out, err := execute(t, "optimize", input, "-o", output, "--normals", "angle"); err != nil {
		t.Fatalf("optimize: %v\n%s", err, out)
	}
	mesh, err := models.Load(output)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if !mesh.HasNormals() {
		t.Error("output has no normals")
	}

	if _, err := execute(t, "optimize", input, input, "-o", output); err == nil {
		t.Error("-o with two inputs succeeded")
	}
}

func TestValidateCommand(t *testing.T) {
	dir := sandbox(t)
	quad := filepath.Join(dir, "quad.obj")
	bowtie := filepath.Join(dir, "bowtie.obj")
	writeFile(t, quad, quadOBJ)
	writeFile(t, bowtie, bowtieOBJ)

	if out, err := execute(t, "validate", quad); err != nil {
		t.Errorf("validate quad: %v\n%s", err, out)
	}
	out, err := execute(t, "validate", bowtie)
	if err == nil {
		t.Errorf("validate bowtie succeeded:\n%s", out)
	}
}

func TestInfoCommand(t *testing.T) {
	dir := sandbox(t)
	input := filepath.Join(dir, "quad.obj")
	writeFile(t, input, quadOBJ)

	out, err := execute(t, "info", input)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"File:       quad.obj", "Format:     OBJ", "Vertices:   4", "Triangles:  2", "Dimensions: 1.00 x 1.00 x 0.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInit(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "meshforge.yaml")

	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "init", path); err == nil {
		t.Error("second init without --force succeeded")
	}
	if _, err := execute(t, "config", "init", path, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}
