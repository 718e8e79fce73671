// Package prompt implements the default interactive ops.Prompter, reading
// passwords from the terminal with echo disabled.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creachadair/getpass"
)

// ErrMismatch is returned by ReadPasswordWithConfirmation when the two
// entered passwords do not match (auth/mismatch).
var ErrMismatch = errors.New("prompt: passwords do not match")

// Terminal reads passwords at the controlling terminal via getpass.Prompt.
type Terminal struct{}

// ReadPassword prompts once for a password labeled by label.
func (Terminal) ReadPassword(_ context.Context, label string) (string, error) {
	pw, err := getpass.Prompt(label + ": ")
	if err != nil {
		return "", fmt.Errorf("prompt: read %s: %w", label, err)
	}
	return pw, nil
}

// ReadPasswordWithConfirmation prompts for a password labeled by label,
// then prompts again for confirmation, and fails with ErrMismatch if the
// two do not agree.
func (t Terminal) ReadPasswordWithConfirmation(ctx context.Context, label string) (string, error) {
	pw, err := t.ReadPassword(ctx, label)
	if err != nil {
		return "", err
	}
	confirm, err := getpass.Prompt("Confirm " + strings.ToLower(label) + ": ")
	if err != nil {
		return "", fmt.Errorf("prompt: read confirmation: %w", err)
	}
	if confirm != pw {
		return "", ErrMismatch
	}
	return pw, nil
}
