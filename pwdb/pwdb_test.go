package pwdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/smattr/passwand/entry"
	"github.com/smattr/passwand/kdf"
)

func sealOne(t *testing.T, main string, space, key, value string) *entry.Sealed {
	t.Helper()
	o, err := entry.NewOpen([]byte(space), []byte(key), []byte(value))
	if err != nil {
		t.Fatal(err)
	}
	s, err := entry.Seal(o, []byte(main), kdf.MinWorkFactor)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOpenStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Fatalf("new database has %d entries, want 0", db.Len())
	}
	want := []*entry.Sealed{sealOne(t, "m", "space", "key", "value")}
	db.Replace(want)
	if err := db.Store(); err != nil {
		t.Fatal(err)
	}

	db2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	if db2.Len() != 1 {
		t.Fatalf("reloaded database has %d entries, want 1", db2.Len())
	}
	if diff := gocmp.Diff(want, db2.Entries()); diff != "" {
		t.Errorf("reloaded entries differ from what was stored (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "nope.json"))
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("want ErrMissing, got %v", err)
	}
}

func TestLoadCorruptFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
}

func TestLoadRejectsNonArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
}

func TestExclusiveLockExcludesConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("want ErrLocked, got %v", err)
	}
}

func TestSharedLockExcludesConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	if err := os.WriteFile(path, []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}

	reader, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	if _, err := Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("want ErrLocked, got %v", err)
	}
}
