// karmactl reads the commit-karma store directly, for operators debugging
// a check run without going through the HTTP API.
//
//	karmactl karma --user 42
//	karmactl installation --repo 7 --json
//	karmactl karma --user 42 --driver postgres --database-url postgres://...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/sakif/commit-karma/internal/config"
	"github.com/sakif/commit-karma/internal/github"
	"github.com/sakif/commit-karma/internal/repository"
	"github.com/sakif/commit-karma/internal/server"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// storeFlags are shared by every command. Defaults come from the same
// environment variables the server reads.
type storeFlags struct {
	driver      string
	dbPath      string
	databaseURL string
	asJSON      bool
}

func (f *storeFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&f.driver, "driver", envOr("DB_DRIVER", config.DriverSQLite), "store driver: sqlite or postgres")
	fs.StringVar(&f.dbPath, "db", envOr("DB_PATH", "data/karma.db"), "sqlite database path")
	fs.StringVar(&f.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	fs.BoolVar(&f.asJSON, "json", false, "print JSON instead of a table")
}

func (f *storeFlags) open(ctx context.Context) (repository.Store, error) {
	return server.OpenStore(ctx, f.driver, f.dbPath, f.databaseURL)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("no command given")
	}

	switch args[0] {
	case "karma":
		return runKarma(ctx, args[1:], stdout)
	case "installation":
		return runInstallation(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runKarma(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		store  storeFlags
		userID int64
	)
	fs := pflag.NewFlagSet("karmactl karma", pflag.ContinueOnError)
	fs.Int64Var(&userID, "user", 0, "GitHub user id")
	store.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if userID <= 0 {
		return errors.New("--user must be a positive GitHub user id")
	}

	db, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	karma, err := db.CalculateKarma(ctx, userID)
	if err != nil {
		return err
	}

	if store.asJSON {
		return writeJSON(stdout, karma)
	}
	out := github.Report(strconv.FormatInt(userID, 10), karma)
	fmt.Fprintf(stdout, "user %d: %s (%s)\n\n%s\n", userID, github.Phrase(karma.Score), github.ConclusionFor(karma.Score), out.Text)
	return nil
}

func runInstallation(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		store        storeFlags
		repositoryID int64
	)
	fs := pflag.NewFlagSet("karmactl installation", pflag.ContinueOnError)
	fs.Int64Var(&repositoryID, "repo", 0, "GitHub repository id")
	store.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if repositoryID <= 0 {
		return errors.New("--repo must be a positive GitHub repository id")
	}

	db, err := store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	inst, err := db.ByRepositoryID(ctx, repositoryID)
	if err != nil {
		return err
	}

	if store.asJSON {
		return writeJSON(stdout, inst)
	}
	fmt.Fprintf(stdout, "repository    %d (%s)\ninstallation  %d\ntarget        %d (%s)\nstate         %s\nupdated       %s\n",
		inst.RepositoryID, inst.RepositoryName,
		inst.InstallationID,
		inst.TargetID, inst.TargetType,
		inst.State,
		inst.UpdatedAt.Format("2006-01-02 15:04:05Z07:00"),
	)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `karmactl inspects the commit-karma store.

Usage:
  karmactl karma --user <id>          karma snapshot for a GitHub user
  karmactl installation --repo <id>   active installation for a repository

Flags (all commands):
  --driver sqlite|postgres   store driver (env DB_DRIVER)
  --db <path>                sqlite database path (env DB_PATH)
  --database-url <dsn>       postgres connection string (env DATABASE_URL)
  --json                     print JSON
`)
}
