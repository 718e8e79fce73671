// Package ops implements passwand's operation engine (spec.md §2 item 10):
// the eight user-facing commands built on entry, pwdb, scan, weak, and
// generate.
package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/smattr/passwand/entry"
	"github.com/smattr/passwand/generate"
	"github.com/smattr/passwand/pwdb"
	"github.com/smattr/passwand/scan"
	"github.com/smattr/passwand/weak"
)

// ErrNotFound is returned by Get/Update/Delete when no entry matches the
// requested (space, key) pair (scan/not-found).
var ErrNotFound = errors.New("ops: no matching entry")

// ErrDuplicate is returned by Set/Generate when an entry already exists
// for the requested (space, key) pair (scan/duplicate).
var ErrDuplicate = errors.New("ops: entry already exists")

// ErrHeterogeneous is returned by mutating operations when any entry in
// the database fails to open under the operation's main password; no
// write is performed (db/heterogeneous).
var ErrHeterogeneous = errors.New("ops: database contains entries for a different main password or work factor")

// ErrWeak is returned by Check when one or more entries hold a weak value
// (check/weak). It is not a failure of the scan itself.
var ErrWeak = errors.New("ops: weak password(s) found")

// Prompter is the interactive password prompter, an external collaborator
// per spec.md §6.2. ReadPasswordWithConfirmation must re-prompt until two
// reads match, or return an error.
type Prompter interface {
	ReadPassword(ctx context.Context, label string) (string, error)
	ReadPasswordWithConfirmation(ctx context.Context, label string) (string, error)
}

// Params bundles the common inputs every operation needs, other than the
// database itself. Per spec.md §4.8, the file lock must already be held
// for the entire duration of the password prompt that precedes an
// operation, so every function here takes an already-opened *pwdb.DB
// rather than a path to open: the caller (cmd/pw, or a test) is
// responsible for calling pwdb.Load/pwdb.Open before prompting, and for
// handing the result to the matching operation below.
type Params struct {
	Jobs       int
	WorkFactor int
}

// SpaceKey identifies one entry by its plaintext namespace and key.
type SpaceKey struct {
	Space, Key string
}

// allOpener opens every entry without filtering; used whenever an
// operation needs every entry opened regardless of content, either to
// classify all of them (List, Check) or to detect a heterogeneous
// database (Set, Update, Delete, Generate, ChangeMain).
func allOpener(main []byte, wf int) scan.Opener {
	return func(ctx context.Context, i int, sealed *entry.Sealed) (*entry.Open, bool, error) {
		o, err := sealed.Open(main, wf)
		if err != nil {
			return nil, false, err
		}
		return o, true, nil
	}
}

// matchOpener opens entry i and reports a match only if its plaintext
// (space, key) equals the arguments; used by Get via scan.FindFirst so
// that decryption of entries past the first match can be cancelled
// (spec.md §4.9/§9). A non-matching entry is released before returning,
// since FindFirst only takes ownership of a reported match.
func matchOpener(main []byte, wf int, space, key string) scan.Opener {
	return func(ctx context.Context, i int, sealed *entry.Sealed) (*entry.Open, bool, error) {
		o, err := sealed.Open(main, wf)
		if err != nil {
			return nil, false, err
		}
		if string(o.Space.Bytes()) == space && string(o.Key.Bytes()) == key {
			return o, true, nil
		}
		o.Release()
		return nil, false, nil
	}
}

// List returns every entry in the database that opens successfully under
// main, as (space, key) pairs in document order. Entries that fail to
// open are recorded but do not abort the scan (spec.md §4.9). db must
// already be locked (pwdb.Load); List closes it before returning.
func List(ctx context.Context, p Params, db *pwdb.DB, main string) (found []SpaceKey, failures map[int]error, err error) {
	defer db.Close()

	type pair struct{ space, key string }
	results, failures := scan.CheckAll(ctx, db.Entries(), p.Jobs, allOpener([]byte(main), p.WorkFactor), func(o *entry.Open) pair {
		return pair{space: string(o.Space.Bytes()), key: string(o.Key.Bytes())}
	})
	for i, r := range results {
		if _, failed := failures[i]; !failed {
			found = append(found, SpaceKey{Space: r.space, Key: r.key})
		}
	}
	return found, failures, nil
}

// Get returns the plaintext value of the first entry (in document order)
// matching (space, key). Unlike the other operations, Get uses
// scan.FindFirst rather than scan.CheckAll: it needs only the first match
// and so is the one command where spec.md §4.9's early-exit cancellation
// (workers examining positions past a confirmed match are cancelled)
// actually applies. db must already be locked (pwdb.Load); Get closes it
// before returning.
func Get(ctx context.Context, p Params, db *pwdb.DB, main, space, key string) (value string, err error) {
	defer db.Close()

	_, o, _ := scan.FindFirst(ctx, db.Entries(), p.Jobs, matchOpener([]byte(main), p.WorkFactor, space, key))
	if o == nil {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, space, key)
	}
	defer o.Release()
	return string(o.Value.Bytes()), nil
}

// findMatch opens every entry under (main, wf) in parallel and reports the
// lowest index whose plaintext (space, key) equals the arguments, together
// with its plaintext value. It opens every entry regardless of match (not
// just until the first one is found), since mutating callers need to know
// about open failures across the whole database in the same pass; use
// failures to detect a heterogeneous database.
func findMatch(ctx context.Context, entries []*entry.Sealed, jobs int, main string, wf int, space, key string) (idx int, value string, failures map[int]error) {
	type verdict struct {
		matched bool
		value   string
	}
	results, failures := scan.CheckAll(ctx, entries, jobs, allOpener([]byte(main), wf), func(o *entry.Open) verdict {
		if string(o.Space.Bytes()) == space && string(o.Key.Bytes()) == key {
			return verdict{matched: true, value: string(o.Value.Bytes())}
		}
		return verdict{}
	})
	idx = -1
	for i, v := range results {
		if v.matched && idx == -1 {
			idx = i
			value = v.value
		}
	}
	return idx, value, failures
}

// Set adds a new entry for (space, key) with the given value. It fails
// with ErrDuplicate if an entry for (space, key) already exists, and with
// ErrHeterogeneous if any existing entry cannot be opened under main. db
// must already be exclusively locked (pwdb.Open); Set closes it on every
// return path, storing the updated contents first on success.
func Set(ctx context.Context, p Params, db *pwdb.DB, main, space, key, value string) error {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	idx, _, failures := findMatch(ctx, db.Entries(), p.Jobs, main, p.WorkFactor, space, key)
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d entries", ErrHeterogeneous, len(failures))
	}
	if idx != -1 {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, space, key)
	}

	o, err := entry.NewOpen([]byte(space), []byte(key), []byte(value))
	if err != nil {
		return err
	}
	defer o.Release()
	sealed, err := entry.Seal(o, []byte(main), p.WorkFactor)
	if err != nil {
		return err
	}
	db.Replace(append(db.Entries(), sealed))
	ok = true
	return db.Store()
}

// Update replaces the value of the first entry matching (space, key).
// It fails with ErrNotFound if no such entry exists, and with
// ErrHeterogeneous if any existing entry cannot be opened under main. db
// must already be exclusively locked (pwdb.Open); Update closes it on
// every return path, storing the updated contents first on success.
func Update(ctx context.Context, p Params, db *pwdb.DB, main, space, key, newValue string) error {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	idx, _, failures := findMatch(ctx, db.Entries(), p.Jobs, main, p.WorkFactor, space, key)
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d entries", ErrHeterogeneous, len(failures))
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, space, key)
	}

	fresh, err := entry.NewOpen([]byte(space), []byte(key), []byte(newValue))
	if err != nil {
		return err
	}
	defer fresh.Release()
	sealed, err := entry.Seal(fresh, []byte(main), p.WorkFactor)
	if err != nil {
		return err
	}

	entries := append([]*entry.Sealed(nil), db.Entries()...)
	entries[idx] = sealed
	db.Replace(entries)
	ok = true
	return db.Store()
}

// Delete removes the first entry matching (space, key). It fails with
// ErrNotFound if no such entry exists, and with ErrHeterogeneous if any
// existing entry cannot be opened under main. db must already be
// exclusively locked (pwdb.Open); Delete closes it on every return path,
// storing the updated contents first on success.
func Delete(ctx context.Context, p Params, db *pwdb.DB, main, space, key string) error {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	idx, _, failures := findMatch(ctx, db.Entries(), p.Jobs, main, p.WorkFactor, space, key)
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d entries", ErrHeterogeneous, len(failures))
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, space, key)
	}

	entries := db.Entries()
	out := make([]*entry.Sealed, 0, len(entries)-1)
	out = append(out, entries[:idx]...)
	out = append(out, entries[idx+1:]...)
	db.Replace(out)
	ok = true
	return db.Store()
}

// CheckResult is one weak-entry finding from Check.
type CheckResult struct {
	Space, Key string
}

// Check opens every entry and classifies its value as weak or strong
// (spec.md §4.10), returning the weak ones in document order. It returns
// ErrWeak alongside a non-empty result slice if any entry is weak; that is
// not a scan failure, only a reportable condition. db must already be
// locked (pwdb.Load); Check closes it before returning.
func Check(ctx context.Context, p Params, db *pwdb.DB, main string) (weakEntries []CheckResult, failures map[int]error, err error) {
	defer db.Close()

	type verdict struct {
		isWeak     bool
		space, key string
	}
	results, failures := scan.CheckAll(ctx, db.Entries(), p.Jobs, allOpener([]byte(main), p.WorkFactor), func(o *entry.Open) verdict {
		return verdict{
			isWeak: weak.Is(o.Value.Bytes()),
			space:  string(o.Space.Bytes()),
			key:    string(o.Key.Bytes()),
		}
	})
	for i, v := range results {
		if _, failed := failures[i]; failed {
			continue
		}
		if v.isWeak {
			weakEntries = append(weakEntries, CheckResult{Space: v.space, Key: v.key})
		}
	}
	if len(weakEntries) > 0 {
		return weakEntries, failures, ErrWeak
	}
	return weakEntries, failures, nil
}

// rewrapped is the plaintext of one entry captured for re-sealing under a
// new main password; it is a plain copy rather than the entry.Open it came
// from because scan.CheckAll wipes each Open as soon as its classify
// callback returns.
type rewrapped struct {
	space, key, value []byte
}

// ChangeMain re-seals every entry in the database under newMain and
// newWorkFactor, rewrapping each entry's ciphertext with a fresh salt, iv,
// and hmac salt. It fails with ErrHeterogeneous if any entry cannot be
// opened under the existing main password. db must already be exclusively
// locked (pwdb.Open); ChangeMain closes it on every return path, storing
// the updated contents first on success.
func ChangeMain(ctx context.Context, p Params, db *pwdb.DB, main string, newMain string, newWorkFactor int) error {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	entries := db.Entries()
	results, failures := scan.CheckAll(ctx, entries, p.Jobs, allOpener([]byte(main), p.WorkFactor), func(o *entry.Open) rewrapped {
		return rewrapped{
			space: append([]byte(nil), o.Space.Bytes()...),
			key:   append([]byte(nil), o.Key.Bytes()...),
			value: append([]byte(nil), o.Value.Bytes()...),
		}
	})
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d entries", ErrHeterogeneous, len(failures))
	}

	out := make([]*entry.Sealed, len(entries))
	for i, r := range results {
		fresh, err := entry.NewOpen(r.space, r.key, r.value)
		if err != nil {
			return err
		}
		sealed, err := entry.Seal(fresh, []byte(newMain), newWorkFactor)
		fresh.Release()
		if err != nil {
			return err
		}
		out[i] = sealed
	}

	db.Replace(out)
	ok = true
	return db.Store()
}

// Generate creates a new entry for (space, key) with a freshly generated
// password of the given length (or generate.DefaultLength if length <= 0)
// drawn from generate.DefaultCharset, and stores the generated value. db
// must already be exclusively locked (pwdb.Open); Generate closes it on
// every return path, storing the updated contents first on success.
func Generate(ctx context.Context, p Params, db *pwdb.DB, main, space, key string, length int) (value string, err error) {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	idx, _, failures := findMatch(ctx, db.Entries(), p.Jobs, main, p.WorkFactor, space, key)
	if len(failures) > 0 {
		return "", fmt.Errorf("%w: %d entries", ErrHeterogeneous, len(failures))
	}
	if idx != -1 {
		return "", fmt.Errorf("%w: %s/%s", ErrDuplicate, space, key)
	}

	if length <= 0 {
		length = generate.DefaultLength
	}
	value, err = generate.Password(length, generate.DefaultCharset)
	if err != nil {
		return "", err
	}

	o, err := entry.NewOpen([]byte(space), []byte(key), []byte(value))
	if err != nil {
		return "", err
	}
	defer o.Release()
	sealed, err := entry.Seal(o, []byte(main), p.WorkFactor)
	if err != nil {
		return "", err
	}
	db.Replace(append(db.Entries(), sealed))
	ok = true
	if err := db.Store(); err != nil {
		return "", err
	}
	return value, nil
}
