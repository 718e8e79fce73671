// Package chain implements passwand's chain resolver (spec.md §3.4,
// §4.12): a stack of secondary databases, each holding exactly one entry
// whose plaintext value is the main password of the next layer.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/smattr/passwand/pwdb"
)

// ErrNotSingleton is returned when a chain database does not contain
// exactly one entry (chain/not-singleton).
var ErrNotSingleton = errors.New("chain: database does not contain exactly one entry")

// ErrOverSkip is returned when the caller skips more chain links than
// exist (chain/over-skip).
var ErrOverSkip = errors.New("chain: skipped past the end of the chain")

// Link names one chain database and the work factor used to open it.
type Link struct {
	Path       string
	WorkFactor int
}

// NextPassword is called to obtain the password for the next link, or for
// the primary database once the chain is exhausted. It is the prompter
// collaborator from spec.md §6.2, parameterized so chain resolution does
// not depend on a concrete I/O implementation.
type NextPassword func(ctx context.Context) (string, error)

// Resolve follows links in order, interpreting top as the password typed
// for the first (outermost) link. Per spec.md §4.12:
//
//   - An empty top skips the first link: the caller is asked (via next)
//     for the password to the following link, and resolution continues
//     with links[1:].
//   - Otherwise links[0] is opened under top; it must contain exactly one
//     entry, whose decrypted value becomes the password for links[1:].
//   - Once links is exhausted, the current password is the effective main
//     password, returned as the result.
//
// An empty password is legal once the chain is exhausted (only the
// topmost link treats empty as "skip"); interior links may legitimately
// decrypt to an empty value.
func Resolve(ctx context.Context, top string, links []Link, next NextPassword) (string, error) {
	return resolve(ctx, top, true, links, next)
}

// resolve does the work of Resolve. typed reports whether top was entered
// by the user, in which case an empty top means "skip"; a password
// decrypted from a link is used as it is, even when empty.
func resolve(ctx context.Context, top string, typed bool, links []Link, next NextPassword) (string, error) {
	if typed && top == "" {
		if len(links) == 0 {
			return "", fmt.Errorf("%w: no password given and no chain link to skip", ErrOverSkip)
		}
		nextPW, err := next(ctx)
		if err != nil {
			return "", err
		}
		return resolve(ctx, nextPW, true, links[1:], next)
	}
	if len(links) == 0 {
		return top, nil
	}

	link := links[0]
	db, err := pwdb.Load(link.Path)
	if err != nil {
		return "", fmt.Errorf("chain: open %s: %w", link.Path, err)
	}
	defer db.Close()

	entries := db.Entries()
	if len(entries) != 1 {
		return "", fmt.Errorf("%w: %s has %d entries", ErrNotSingleton, link.Path, len(entries))
	}

	o, err := entries[0].Open([]byte(top), link.WorkFactor)
	if err != nil {
		return "", fmt.Errorf("chain: open entry in %s: %w", link.Path, err)
	}
	defer o.Release()
	nextPW := string(o.Value.Bytes())

	return resolve(ctx, nextPW, false, links[1:], next)
}
