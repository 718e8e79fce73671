// Package pwdb implements passwand's on-disk database file (spec.md §3.3,
// §4.8): a UTF-8 JSON array of sealed entries, guarded by a non-blocking
// advisory file lock for the whole read-modify-write cycle.
package pwdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/creachadair/atomicfile"
	"github.com/smattr/passwand/entry"
)

// ErrMissing is returned when a read-only operation is given a path that
// does not exist (io/missing). Write operations instead treat a missing
// file as zero existing entries; see Open.
var ErrMissing = errors.New("pwdb: database not found")

// ErrLocked is returned when a non-blocking lock acquisition fails because
// another process holds it (io/locked).
var ErrLocked = errors.New("pwdb: failed to lock database")

// ErrCorrupt is returned when the file's top-level JSON value is not an
// array of entry objects, or an entry object fails to decode
// (io/corrupt).
var ErrCorrupt = errors.New("pwdb: corrupt database")

// DB is an ordered, in-memory copy of a database's sealed entries,
// together with the open file lock that must be released by Close (for
// readers) or by the write performed through Store (for writers).
type DB struct {
	path    string
	entries []*entry.Sealed
	lock    *lockedFile
}

// Entries returns the database's sealed entries in document order. The
// returned slice aliases db's storage and must not be mutated in place;
// use Replace to change the contents.
func (db *DB) Entries() []*entry.Sealed { return db.entries }

// Len reports the number of entries in the database.
func (db *DB) Len() int { return len(db.entries) }

// Replace sets the database's entries to entries, in the given order.
// This does not write anything to disk; call Store to persist the change.
func (db *DB) Replace(entries []*entry.Sealed) { db.entries = entries }

// Load opens the database at path for a read-only operation, taking a
// shared advisory lock that remains held until Close. The file must exist.
func Load(path string) (*DB, error) {
	lf, err := lockShared(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, err
	}
	entries, err := decodeAll(lf.file)
	if err != nil {
		lf.Close()
		return nil, err
	}
	return &DB{path: path, entries: entries, lock: lf}, nil
}

// Close releases the lock held by a DB opened with Load or Open. It is a
// no-op for a DB that has already been persisted via Store, since Store
// releases the exclusive lock itself.
func (db *DB) Close() error {
	if db.lock == nil {
		return nil
	}
	err := db.lock.Close()
	db.lock = nil
	return err
}

// Open opens path for a read-modify-write operation, taking a non-blocking
// exclusive advisory lock that remains held until Store or Close is
// called. If the file does not exist, Open returns a DB with zero entries
// and the lock held on a newly created (empty) file, so New-database
// operations (set, generate) can proceed without a pre-existing file.
func Open(path string) (*DB, error) {
	lf, err := lockExclusive(path)
	if err != nil {
		return nil, err
	}
	info, err := lf.file.Stat()
	if err != nil {
		lf.Close()
		return nil, fmt.Errorf("pwdb: stat: %w", err)
	}
	var entries []*entry.Sealed
	if info.Size() > 0 {
		entries, err = decodeAll(lf.file)
		if err != nil {
			lf.Close()
			return nil, err
		}
	}
	return &DB{path: path, entries: entries, lock: lf}, nil
}

// Store serializes db's current entries and atomically replaces the file
// at db's path, then releases the exclusive lock. After Store returns
// (successfully or not) db must not be reused.
func (db *DB) Store() error {
	defer db.Close()
	data, err := json.Marshal(db.entries)
	if err != nil {
		return fmt.Errorf("pwdb: encode: %w", err)
	}
	if err := atomicfile.Tx(db.path, 0600, func(f *atomicfile.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("pwdb: store: %w", err)
	}
	return nil
}

// decodeAll parses r's contents as a JSON array of sealed entry objects.
// A leading byte-order mark is rejected, matching spec.md §6.1.
func decodeAll(r io.ReadSeeker) ([]*entry.Sealed, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("pwdb: seek: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pwdb: read: %w", err)
	}
	if bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, fmt.Errorf("%w: leading byte-order mark", ErrCorrupt)
	}
	var entries []*entry.Sealed
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}
