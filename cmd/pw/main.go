// Program pw is the passwand command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"

	"github.com/smattr/passwand/chain"
	"github.com/smattr/passwand/cmd/pw/config"
	"github.com/smattr/passwand/cmd/pw/prompt"
	"github.com/smattr/passwand/ops"
	"github.com/smattr/passwand/pwdb"
)

func main() {
	var flags = struct {
		DataPath   string   `flag:"data,Database path (required)"`
		Jobs       int      `flag:"jobs,Number of parallel decryption workers (default: hardware concurrency)"`
		WorkFactor int      `flag:"work-factor,default=14,Key-derivation work factor (10..31)"`
		ChainPaths []string `flag:"chain,Chain database path outermost first (repeatable)"`
	}{WorkFactor: config.DefaultWorkFactor}

	root := &command.C{
		Name: command.ProgramName(),
		Help: `pw manages a database of site-specific passwords.

Each entry is stored as an independently encrypted record, sealed under a
main password. Use --data to specify the database path. A stack of --chain
databases may be layered in front of the primary database; see "pw help
chain".`,

		SetFlags: command.Flags(flax.MustBind, &flags),

		Init: func(env *command.Env) error {
			env.Config = &config.Settings{
				DataPath:   flags.DataPath,
				Jobs:       flags.Jobs,
				WorkFactor: flags.WorkFactor,
				ChainPaths: flags.ChainPaths,
			}
			return nil
		},

		Commands: []*command.C{
			{
				Name: "list",
				Help: "List the space/key pairs present in the database.",
				Run:  command.Adapt(runList),
			},
			{
				Name:  "get",
				Usage: "--space <space> --key <key>",
				Help:  "Print the value stored for a space/key pair.",
				SetFlags: command.Flags(flax.MustBind, &spaceKeyFlags),
				Run:      command.Adapt(runGet),
			},
			{
				Name:  "set",
				Usage: "--space <space> --key <key> --value <value>",
				Help:  "Add a new entry. Fails if one already exists for the space/key pair.",
				SetFlags: command.Flags(flax.MustBind, &setFlags),
				Run:      command.Adapt(runSet),
			},
			{
				Name:  "update",
				Usage: "--space <space> --key <key> --value <value>",
				Help:  "Replace the value stored for an existing space/key pair.",
				SetFlags: command.Flags(flax.MustBind, &setFlags),
				Run:      command.Adapt(runUpdate),
			},
			{
				Name:  "delete",
				Usage: "--space <space> --key <key>",
				Help:  "Remove the entry for a space/key pair.",
				SetFlags: command.Flags(flax.MustBind, &spaceKeyFlags),
				Run:      command.Adapt(runDelete),
			},
			{
				Name: "check",
				Help: "Report entries whose stored value is weak.",
				Run:  command.Adapt(runCheck),
			},
			{
				Name: "change-main",
				Help: "Re-encrypt every entry under a new main password.",
				Run:  command.Adapt(runChangeMain),
			},
			{
				Name:  "generate",
				Usage: "--space <space> --key <key> [--length <n>]",
				Help:  "Generate a new random value and store it for a space/key pair.",
				SetFlags: command.Flags(flax.MustBind, &generateFlags),
				Run:      command.Adapt(runGenerate),
			},
			command.HelpCommand([]command.HelpTopic{{
				Name: "chain",
				Help: `Chained databases.

Each --chain flag names a secondary database holding exactly one entry,
whose value is the main password for the next layer (the last --chain
feeds the primary database). List --chain flags outermost first: the
first one named is the database whose password you will type.

An empty password at any layer skips that layer and prompts again for
the next one; skipping past the end of the chain is an error.`,
			}}),
			command.VersionCommand(),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

var spaceKeyFlags struct {
	Space string `flag:"space,Entry space"`
	Key   string `flag:"key,Entry key"`
}

var setFlags struct {
	Space string `flag:"space,Entry space"`
	Key   string `flag:"key,Entry key"`
	Value string `flag:"value,Entry value"`
}

var generateFlags struct {
	Space  string `flag:"space,Entry space"`
	Key    string `flag:"key,Entry key"`
	Length int    `flag:"length,Length of the generated value (default: 24)"`
}

// resolveMain runs the chain resolution protocol (spec.md §4.12), prompting
// at the terminal for each layer's password in turn. Per spec.md §6.2, EOF
// on the very first prompt is not an ordinary error: eofFirst reports it so
// the caller can treat the operation as a successful no-op (except for
// get, which treats it as a failure). The caller must already hold the
// database lock before calling this, per spec.md §4.8: lock scope
// encompasses the password prompt, not just the read/write that follows it.
func resolveMain(ctx context.Context, env *command.Env, p *prompt.Terminal) (main string, eofFirst bool, err error) {
	links := config.ChainLinks(env)
	label := "Main password"
	if len(links) > 0 {
		label = "Chain password"
	}
	top, err := p.ReadPassword(ctx, label)
	if errors.Is(err, io.EOF) {
		return "", true, nil
	}
	if err != nil {
		return "", false, err
	}
	next := func(ctx context.Context) (string, error) {
		return p.ReadPassword(ctx, label)
	}
	main, err = chain.Resolve(ctx, top, links, next)
	return main, false, err
}

func runList(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Load(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	found, failures, err := ops.List(ctx, params, db, main)
	if err != nil {
		return err
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Space != found[j].Space {
			return found[i].Space < found[j].Space
		}
		return found[i].Key < found[j].Key
	})
	for _, sk := range found {
		fmt.Fprintf(env, "%s/%s\n", sk.Space, sk.Key)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d entries failed to open", len(failures))
	}
	return nil
}

// errNoPassword is returned by get when the main-password prompt hits EOF.
// Unlike every other verb, get does not treat that as a successful no-op
// (spec.md §6.2).
var errNoPassword = errors.New("no password provided")

func runGet(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Load(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof {
		db.Close()
		return errNoPassword
	}
	if err != nil {
		db.Close()
		return err
	}

	value, err := ops.Get(ctx, params, db, main, spaceKeyFlags.Space, spaceKeyFlags.Key)
	if err != nil {
		return err
	}
	fmt.Fprintln(env, value)
	return nil
}

func runSet(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Open(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	if err := ops.Set(ctx, params, db, main, setFlags.Space, setFlags.Key, setFlags.Value); err != nil {
		return err
	}
	fmt.Fprintln(env, "<stored>")
	return nil
}

func runUpdate(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Open(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	if err := ops.Update(ctx, params, db, main, setFlags.Space, setFlags.Key, setFlags.Value); err != nil {
		return err
	}
	fmt.Fprintln(env, "<updated>")
	return nil
}

func runDelete(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Open(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	if err := ops.Delete(ctx, params, db, main, spaceKeyFlags.Space, spaceKeyFlags.Key); err != nil {
		return err
	}
	fmt.Fprintln(env, "<deleted>")
	return nil
}

func runCheck(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Load(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	weak, failures, err := ops.Check(ctx, params, db, main)
	for _, w := range weak {
		fmt.Fprintf(env, "%s/%s: weak password\n", w.Space, w.Key)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d entries failed to open", len(failures))
	}
	return err
}

func runChangeMain(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Open(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}
	newMain, err := p.ReadPasswordWithConfirmation(ctx, "New main password")
	if err != nil {
		db.Close()
		return err
	}

	if err := ops.ChangeMain(ctx, params, db, main, newMain, params.WorkFactor); err != nil {
		return err
	}
	fmt.Fprintln(env, "<changed>")
	return nil
}

func runGenerate(env *command.Env) error {
	if err := config.CheckDataPath(env); err != nil {
		return err
	}
	ctx := env.Context()
	params := config.Params(env)
	db, err := pwdb.Open(config.DataPath(env))
	if err != nil {
		return err
	}

	var p prompt.Terminal
	main, eof, err := resolveMain(ctx, env, &p)
	if eof || err != nil {
		db.Close()
		return err
	}

	value, err := ops.Generate(ctx, params, db, main, generateFlags.Space, generateFlags.Key, generateFlags.Length)
	if err != nil {
		return err
	}
	fmt.Fprintln(env, value)
	return nil
}
