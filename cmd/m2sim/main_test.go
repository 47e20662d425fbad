package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const torchYAML = `
name: torch
sequences:
  - id: 0
    duration: 1000
    frequency: 32767
    variation_next: -1
  - id: 4
    duration: 500
    frequency: 32767
    variation_next: -1
bones:
  - parent: -1
    pivot: {x: 0, y: 0, z: 0}
  - parent: 0
    key_bone_id: 1
    pivot: {x: 0, y: 0, z: 2}
    translation:
      interpolation: 1
      timestamps: [[0, 1000]]
      values:
        - - {x: 0, y: 0, z: 0}
          - {x: 10, y: 0, z: 0}
particle_emitters:
  - id: 7
    bone: 1
    emitter_type: 1
    textures: [-1, -1, -1]
    emission_rate:
      timestamps: [[0]]
      values: [[100]]
    lifespan:
      timestamps: [[0]]
      values: [[1]]
ribbon_emitters:
  - id: 3
    bone: 1
    edges_per_second: 20
    edge_lifetime: 0.5
    texture_rows: 1
    texture_cols: 1
`

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "torch.yaml")
	if err := os.WriteFile(path, []byte(torchYAML), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestInfo(t *testing.T) {
	var out bytes.Buffer
	if err := run("info", []string{writeModel(t)}, &out); err != nil {
		t.Fatalf("info: %v", err)
	}

	for _, want := range []string{"Model:     torch", "Bones:     2", "Particle emitters:", "plane", "Ribbon emitters:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	args := []string{"-ticks", "30", "-dt", "16", "-every", "10", writeModel(t)}
	if err := run("run", args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	if n := strings.Count(got, "tick "); n != 3 {
		t.Errorf("progress lines = %d, want 3:\n%s", n, got)
	}
	if !strings.Contains(got, "Ticks:          30 (480ms)") {
		t.Errorf("missing summary:\n%s", got)
	}
	if strings.Contains(got, "Peak particles: 0\n") {
		t.Errorf("emitter produced no particles:\n%s", got)
	}
	if strings.Contains(got, "Peak edges:     0\n") {
		t.Errorf("ribbon produced no edges:\n%s", got)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	path := writeModel(t)
	var a, b bytes.Buffer
	args := []string{"-ticks", "40", "-seed", "9", path}
	if err := run("run", args, &a); err != nil {
		t.Fatal(err)
	}
	if err := run("run", args, &b); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("same seed produced different runs")
	}
}

func TestBones(t *testing.T) {
	var out bytes.Buffer
	if err := run("bones", []string{"-at", "500", writeModel(t)}, &out); err != nil {
		t.Fatalf("bones: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 bones:\n%s", len(lines), out.String())
	}
	// Bone 1 is halfway along its translation at 500ms.
	if !strings.Contains(lines[2], "5.0000") || !strings.Contains(lines[2], "2.0000") {
		t.Errorf("bone 1 = %q, want x=5 z=2", lines[2])
	}
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	tests := []struct {
		command string
		args    []string
	}{
		{"info", nil},
		{"run", nil},
		{"bones", nil},
		{"bogus", nil},
	}
	for _, tt := range tests {
		if err := run(tt.command, tt.args, &out); !errors.Is(err, errUsage) {
			t.Errorf("%s: err = %v, want usage error", tt.command, err)
		}
	}

	if err := run("run", []string{"-anim", "70000", writeModel(t)}, &out); err == nil {
		t.Error("out of range animation id accepted")
	}
	if err := run("info", []string{filepath.Join(t.TempDir(), "missing.yaml")}, &out); err == nil {
		t.Error("missing model accepted")
	}
}
