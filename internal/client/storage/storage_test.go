package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_FileNotExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	ls, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if ls.Scope != "" || ls.BaseURL != "" {
		t.Errorf("expected empty state, got %+v", ls)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	ls, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !ls.SetScope("http://localhost:8080", "scope-1") {
		t.Error("expected first SetScope to report a change")
	}
	ls.SetName("Asha")
	if err := ls.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.ScopeFor("http://localhost:8080"); got != "scope-1" {
		t.Errorf("ScopeFor = %q; want scope-1", got)
	}
	if got := again.DisplayName(); got != "Asha" {
		t.Errorf("DisplayName = %q; want Asha", got)
	}
}

func TestScopeFor_OtherServer(t *testing.T) {
	ls := &LocalStorage{}
	ls.SetScope("http://a", "s1")
	ls.SetName("Asha")

	if got := ls.ScopeFor("http://b"); got != "" {
		t.Errorf("expected no scope for another server, got %q", got)
	}
	if ls.SetScope("http://a", "s1") {
		t.Error("expected unchanged scope to report no change")
	}
	ls.SetScope("http://b", "s2")
	if ls.DisplayName() != "" {
		t.Error("expected name to be dropped when switching servers")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for corrupt state file")
	}
}
