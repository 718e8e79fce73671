// Package config contains shared configuration settings for pw subcommands.
package config

import (
	"errors"
	"runtime"

	"github.com/creachadair/command"

	"github.com/smattr/passwand/chain"
	"github.com/smattr/passwand/kdf"
	"github.com/smattr/passwand/ops"
)

// Settings are shared settings used by every pw subcommand, populated from
// command-line flags in main.
type Settings struct {
	DataPath   string
	Jobs       int
	WorkFactor int
	ChainPaths []string
}

// Params builds the ops.Params this operation runs with. The database
// itself is not included: per spec.md §4.8 the file lock must be acquired
// by the caller before the password prompt runs, so main.go opens the
// database directly via DataPath and threads it into ops separately.
func Params(env *command.Env) ops.Params {
	set := env.Config.(*Settings)
	jobs := set.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return ops.Params{
		Jobs:       jobs,
		WorkFactor: set.WorkFactor,
	}
}

// DataPath returns the database path configured on the command line.
func DataPath(env *command.Env) string {
	return env.Config.(*Settings).DataPath
}

// ChainLinks builds the chain.Link list for this operation, taken in the
// order given on the command line (outermost first, matching
// chain.Resolve's expectation), each using the same work factor as the
// primary database since pw exposes a single --work-factor flag.
func ChainLinks(env *command.Env) []chain.Link {
	set := env.Config.(*Settings)
	links := make([]chain.Link, len(set.ChainPaths))
	for i, path := range set.ChainPaths {
		links[i] = chain.Link{Path: path, WorkFactor: set.WorkFactor}
	}
	return links
}

// errNoDataPath is returned when --data was not supplied.
var errNoDataPath = errors.New("no database path specified (provide --data)")

// CheckDataPath validates that a data path was provided.
func CheckDataPath(env *command.Env) error {
	if env.Config.(*Settings).DataPath == "" {
		return errNoDataPath
	}
	return nil
}

// DefaultWorkFactor is the work factor pw uses when --work-factor is not
// given on the command line.
const DefaultWorkFactor = kdf.DefaultWorkFactor
