package store

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	mappings := map[string]map[uint16]string{
		"empty":  {},
		"single": {9090: "api"},
		"many":   {1: "tcpmux", 80: "web", 8080: "api", 65535: "edge case", 5432: "postgres (primary)"},
	}

	for _, ext := range []string{".json", ".yaml", ".yml", ".toml", ".cbor"} {
		for name, want := range mappings {
			t.Run(ext+"/"+name, func(t *testing.T) {
				s, err := NewFileStore(filepath.Join(t.TempDir(), "reservations"+ext))
				if err != nil {
					t.Fatalf("NewFileStore failed: %v", err)
				}

				if err := s.Save(want); err != nil {
					t.Fatalf("Save failed: %v", err)
				}

				got, err := s.Load()
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if !maps.Equal(got, want) {
					t.Errorf("Load() = %v, want %v", got, want)
				}
			})
		}
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	_, err = s.Load()
	if !IsNotExist(err) {
		t.Errorf("Load() err = %v, want not-exist", err)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s, _ := NewFileStore(path)
	_, err := s.Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if IsNotExist(err) {
		t.Error("a corrupt ledger must not be reported as missing")
	}
}

func TestFileStore_JSONMatchesFlatMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	s, _ := NewFileStore(path)
	if err := s.Save(map[uint16]string{9090: "api"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"9090": "api"`) {
		t.Errorf("unexpected JSON layout: %s", data)
	}
}

func TestFileStore_AtomicOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	path := filepath.Join(dir, "reservations.json")
	s, _ := NewFileStore(path)

	for i, m := range []map[uint16]string{{1: "a"}, {2: "b"}, {3: "c"}} {
		if err := s.Save(m); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory should only hold the ledger, got %v", names)
	}

	got, _ := s.Load()
	if !maps.Equal(got, map[uint16]string{3: "c"}) {
		t.Errorf("Load() = %v, want the last save", got)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"ledger.json", false},
		{"ledger", false},
		{"ledger.YAML", false},
		{"ledger.toml", false},
		{"ledger.cbor", false},
		{"ledger.xml", true},
	}
	for _, tt := range tests {
		_, err := CodecFor(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("CodecFor(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}

	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore(\"\") should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Load(); !IsNotExist(err) {
		t.Errorf("Load() before Save err = %v, want not-exist", err)
	}

	in := map[uint16]string{9090: "api"}
	if err := s.Save(in); err != nil {
		t.Fatal(err)
	}
	in[9090] = "mutated"

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got[9090] != "api" {
		t.Errorf("stored value = %q, want a private copy", got[9090])
	}

	s.Err = errors.New("disk full")
	if err := s.Save(in); !errors.Is(err, s.Err) {
		t.Errorf("Save() err = %v, want %v", err, s.Err)
	}
}
