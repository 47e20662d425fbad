package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLayerPriority(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{
		"body.png": {Data: []byte("base")},
		"cape.png": {Data: []byte("base cape")},
	})
	m.AddFS(fstest.MapFS{
		"body.png": {Data: []byte("override")},
	})

	tests := []struct {
		name string
		want string
	}{
		{"body.png", "override"},
		{"cape.png", "base cape"},
	}
	for _, tt := range tests {
		data, err := m.ReadFile(tt.name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", tt.name, err)
		}
		if string(data) != tt.want {
			t.Errorf("ReadFile(%s) = %q, want %q", tt.name, data, tt.want)
		}
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestCaseInsensitiveFallback(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{
		"Creature/Wolf/WolfSkin.png": {Data: []byte("fur")},
	})

	data, err := m.ReadFile("creature/wolf/wolfskin.png")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "fur" {
		t.Errorf("data = %q", data)
	}
}

func TestMissingFile(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"a.png": {Data: []byte("a")}})

	if _, err := m.ReadFile("b.png"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}
	if _, err := m.Open("../escape.png"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("err = %v, want invalid path", err)
	}
}

func TestCacheHits(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"a.png": {Data: []byte("a")}})

	for i := 0; i < 3; i++ {
		if _, err := fs.ReadFile(m, "a.png"); err != nil {
			t.Fatal(err)
		}
	}
	hits, misses := m.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats = %d hits, %d misses; want 2, 1", hits, misses)
	}

	m.Close()
	if m.Len() != 0 {
		t.Error("Close kept layers")
	}
	if hits, _ := m.Stats(); hits != 0 {
		t.Error("Close kept cache stats")
	}
}

func TestAddDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	if _, err := m.ReadFile("x.png"); err != nil {
		t.Errorf("ReadFile: %v", err)
	}

	if err := m.AddDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing dir accepted")
	}
	if err := m.AddDir(filepath.Join(dir, "x.png")); err == nil {
		t.Error("file accepted as dir")
	}
}

func TestSearchPath(t *testing.T) {
	root := t.TempDir()
	override := filepath.Join(root, "hd")
	if err := os.Mkdir(override, 0755); err != nil {
		t.Fatal(err)
	}
	model := filepath.Join(root, "torch.yaml")
	for path, data := range map[string]string{
		filepath.Join(root, "flame.png"):     "sd",
		filepath.Join(root, "wood.png"):      "wood",
		filepath.Join(override, "flame.png"): "hd",
	} {
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := SearchPath(model, " "+override+" ,")
	if err != nil {
		t.Fatalf("SearchPath: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if data, _ := m.ReadFile("flame.png"); string(data) != "hd" {
		t.Errorf("flame.png = %q, want override", data)
	}
	if data, _ := m.ReadFile("wood.png"); string(data) != "wood" {
		t.Errorf("wood.png = %q, want model dir copy", data)
	}

	if _, err := SearchPath(model, filepath.Join(root, "nope")); err == nil {
		t.Error("missing texture dir accepted")
	}
}
