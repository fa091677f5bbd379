package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	scriptPlugin(t, root, "slides", "true\n", "next", "previous")
	scriptPlugin(t, root, "audio", "true\n")

	// Directories without a valid manifest are skipped.
	os.MkdirAll(filepath.Join(root, "empty"), 0755)
	os.MkdirAll(filepath.Join(root, "broken"), 0755)
	os.WriteFile(filepath.Join(root, "broken", ManifestFile), []byte("{not json"), 0644)
	os.MkdirAll(filepath.Join(root, "nameless"), 0755)
	os.WriteFile(filepath.Join(root, "nameless", ManifestFile), []byte(`{"executable":"x"}`), 0644)
	os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644)

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plugins := m.List()
	if len(plugins) != 2 {
		t.Fatalf("List() returned %d plugins, want 2", len(plugins))
	}
	if plugins[0].Manifest.Name != "audio" || plugins[1].Manifest.Name != "slides" {
		t.Errorf("List() should be sorted by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	p, err := m.Get("slides")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Executable != filepath.Join(root, "slides", "run.sh") {
		t.Errorf("Executable = %s", p.Executable)
	}
	if !p.Supports("next") || p.Supports("volume") {
		t.Error("Supports() should follow the manifest action list")
	}

	audio, _ := m.Get("audio")
	if !audio.Supports("anything") {
		t.Error("a manifest without actions should accept any action")
	}
}

func TestManager_Rediscover(t *testing.T) {
	root := t.TempDir()
	scriptPlugin(t, root, "slides", "true\n")

	m := NewManager(root)
	m.Discover()

	os.RemoveAll(filepath.Join(root, "slides"))
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("removed plugins should be forgotten")
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	m := NewManager(t.TempDir())

	if _, err := m.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get() error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nope")
	m := NewManager(dir)

	if err := m.Discover(); err != nil {
		t.Errorf("Discover() error = %v, want nil", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
	if m.PluginDir() != dir {
		t.Errorf("PluginDir() = %s, want %s", m.PluginDir(), dir)
	}
}
