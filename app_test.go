package main

import (
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"
)

func evalFile(t *testing.T, path string) EvalResult {
	t.Helper()
	source, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	result := NewApp().Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	return result
}

// TestE2EMotorMount exercises the full pipeline: Lisp source -> engine ->
// design -> tessellate -> meshes.
func TestE2EMotorMount(t *testing.T) {
	result := evalFile(t, "examples/motor_mount.fw")

	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.PartName != "mount" {
		t.Errorf("expected part name 'mount', got %q", m.PartName)
	}
	if got := len(m.Vertices) / 3; got != 672 {
		t.Errorf("expected 672 vertices, got %d", got)
	}
	if got := len(m.Indices) / 3; got != 1380 {
		t.Errorf("expected 1380 triangles, got %d", got)
	}
	if len(m.Normals) != len(m.Vertices) {
		t.Errorf("normals: expected %d floats, got %d", len(m.Vertices), len(m.Normals))
	}
	if m.Color != "#9999A6" {
		t.Errorf("expected steel color #9999A6, got %s", m.Color)
	}

	vol := result.Models[0].Volume()
	if math.Abs(vol-4473.69) > 1 {
		t.Errorf("expected volume about 4473.69, got %f", vol)
	}
}

func TestE2EPropellerGuard(t *testing.T) {
	result := evalFile(t, "examples/propeller_guard.fw")

	if len(result.Warnings) > 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	expected := map[string]bool{
		"base":   false,
		"ring.0": false, "ring.1": false,
		"pillar.0": false, "pillar.1": false, "pillar.2": false, "pillar.3": false,
		"arm.0": false, "arm.1": false, "arm.2": false, "arm.3": false,
	}
	if len(result.Meshes) != len(expected) {
		t.Fatalf("expected %d meshes, got %d", len(expected), len(result.Meshes))
	}
	for _, m := range result.Meshes {
		if _, ok := expected[m.PartName]; !ok {
			t.Errorf("unexpected part name: %q", m.PartName)
			continue
		}
		expected[m.PartName] = true

		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("part %q: empty geometry", m.PartName)
		}
		if m.Color == "" {
			t.Errorf("part %q: no color assigned", m.PartName)
		}
		if strings.HasPrefix(m.PartName, "ring.") {
			// closed sweep: 96 sections x 24 ring points x 2, no caps
			if got := len(m.Indices) / 3; got != 96*24*2 {
				t.Errorf("part %q: expected %d triangles, got %d", m.PartName, 96*24*2, got)
			}
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("missing mesh for part %q", name)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate(`(plate "test"`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

// TestE2ESinglePlate ensures a minimal plate renders one mesh with the
// default green material.
func TestE2ESinglePlate(t *testing.T) {
	app := NewApp()
	result := app.Evaluate(`(plate "shelf" :height 2 (rect :width 10))`)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.PartName != "shelf" {
		t.Errorf("expected part name 'shelf', got %q", m.PartName)
	}
	if m.Color != "#00FF00" {
		t.Errorf("expected default green, got %s", m.Color)
	}
	if got := len(m.Indices) / 3; got != 12 {
		t.Errorf("expected 12 triangles, got %d", got)
	}
}

// TestE2EJSONShape checks that empty results still serialize as arrays.
func TestE2EJSONShape(t *testing.T) {
	result := NewApp().Evaluate("")
	b, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"meshes":[],"errors":[],"warnings":[]}`
	if string(b) != want {
		t.Errorf("expected %s, got %s", want, b)
	}
}
