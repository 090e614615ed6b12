package meshopt

import (
	"errors"
	"strings"
	"testing"
)

type collector struct {
	msgs []string
}

func (c *collector) report(msg string) {
	c.msgs = append(c.msgs, msg)
}

func TestValidateCleanMesh(t *testing.T) {
	indices, positions := gridMesh(3, 3)
	adjacency := mustAdjacency(t, indices, positions)
	ok, err := Validate(indices, len(positions), adjacency, ValidateAll, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Error("Validate(grid) = false, want true")
	}
}

func TestValidateDegenerate(t *testing.T) {
	indices := []int32{0, 1, 2, 0, 2, 3, 0, 0, 1}
	adjacency := []int32{2, -1, 1, 0, -1, -1, -1, 0, -1}

	var c collector
	ok, err := Validate(indices, 4, adjacency, ValidateDegenerate, c.report)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Error("Validate(degenerate) = true, want false")
	}
	if len(c.msgs) != 2 {
		t.Fatalf("reported %d messages, want 2: %q", len(c.msgs), c.msgs)
	}
	if !strings.Contains(c.msgs[0], "triangle 2") {
		t.Errorf("first message = %q, want it to name triangle 2", c.msgs[0])
	}
	if !strings.Contains(c.msgs[1], "degenerate face (2) has a neighbor 0") {
		t.Errorf("second message = %q, want the neighbor link of face 2", c.msgs[1])
	}

	ok, err = Validate(indices, 4, nil, ValidateDegenerate, nil)
	if err != nil || ok {
		t.Errorf("Validate without adjacency = %v, %v, want false, nil", ok, err)
	}
}

func TestValidateBowtie(t *testing.T) {
	indices, positions := twoFans()
	adjacency := mustAdjacency(t, indices, positions)

	var c collector
	ok, err := Validate(indices, len(positions), adjacency, ValidateBowties, c.report)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Error("Validate(two fans) = true, want false")
	}
	if len(c.msgs) != 1 || !strings.Contains(c.msgs[0], "vertex 0") {
		t.Errorf("messages = %q, want one bowtie at vertex 0", c.msgs)
	}
}

func TestValidateAdjacencyChecks(t *testing.T) {
	indices := []int32{0, 1, 2, 0, 2, 3}
	tests := []struct {
		name      string
		adjacency []int32
		flags     ValidateFlags
		want      bool
	}{
		{"symmetric", []int32{-1, -1, 1, 0, -1, -1}, ValidateAll, true},
		{"one sided", []int32{-1, -1, 1, -1, -1, -1}, ValidateAsymmetricAdjacency, false},
		{"one sided unchecked", []int32{-1, -1, 1, -1, -1, -1}, ValidateBackfacing, true},
		{"duplicate neighbor", []int32{1, -1, 1, 0, -1, -1}, ValidateBackfacing, false},
		{"self neighbor", []int32{0, -1, -1, -1, -1, -1}, ValidateBackfacing, false},
		{"neighbor out of range", []int32{5, -1, -1, -1, -1, -1}, ValidateDefault, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Validate(indices, 4, tt.adjacency, tt.flags, nil)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Validate = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestValidateIndices(t *testing.T) {
	tests := []struct {
		name    string
		indices []int32
		flags   ValidateFlags
		want    bool
	}{
		{"in range", []int32{0, 1, 2}, ValidateDefault, true},
		{"out of range", []int32{0, 1, 7}, ValidateDefault, false},
		{"negative", []int32{0, -3, 2}, ValidateDefault, false},
		{"partially unused", []int32{0, -1, 2, 0, 2, 3}, ValidateUnused, false},
		{"partially unused unchecked", []int32{0, -1, 2, 0, 2, 3}, ValidateDefault, true},
		{"fully unused", []int32{-1, -1, -1, 0, 2, 3}, ValidateUnused, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Validate(tt.indices, 4, nil, tt.flags, nil)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Validate = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestValidateNeedsAdjacency(t *testing.T) {
	for _, flags := range []ValidateFlags{ValidateBackfacing, ValidateBowties, ValidateAsymmetricAdjacency} {
		_, err := Validate([]int32{0, 1, 2}, 3, nil, flags, nil)
		if !errors.Is(err, ErrInvalidArgument) || !errors.Is(err, ErrNotSupported) {
			t.Errorf("Validate(flags=%d, nil adjacency) error = %v, want invalid argument and not supported", flags, err)
		}
	}
}

func TestValidateArguments(t *testing.T) {
	tests := []struct {
		name      string
		indices   []int32
		nVerts    int
		adjacency []int32
	}{
		{"no indices", nil, 3, nil},
		{"partial face", []int32{0, 1}, 3, nil},
		{"zero vertices", []int32{0, 1, 2}, 0, nil},
		{"short adjacency", []int32{0, 1, 2}, 3, []int32{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.indices, tt.nVerts, tt.adjacency, ValidateDefault, nil)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Validate error = %v, want %v", err, ErrInvalidArgument)
			}
		})
	}
}
