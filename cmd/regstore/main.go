package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"regstore/internal/config"
	"regstore/internal/repository"
	"regstore/internal/repository/sqlite"
)

const usage = `usage: regstore [-config path] [-db location] [-v] <command> [args]

commands:
  list                                 list all registers
  get NAME                             print a register
  set NAME VALUE                       assign an existing register
  create [-immutable] NAME TYPE VALUE  create or assign a register
  access NAME [VALUE]                  read, optionally writing first
  delete PATTERN                       delete registers matching a wildcard
  export [-format yaml|json]           write all registers to stdout
  import [-watch] FILE                 create registers from a document

VALUE is a YAML literal such as true, [1, 2] or "text".
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("regstore: %v", err)
	}
}

// run parses global flags, opens the repository and dispatches one command
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("regstore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := fs.String("config", "", "config file path (default: search standard locations)")
	dbPath := fs.String("db", "", "SQLite database path, or :memory:")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, _, err = config.LoadFromPath(*configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Storage.Location = *dbPath
	}
	if *verbose {
		cfg.Log.Verbose = true
	}

	logger := cfg.Logger()
	logger.Printf("%s", cfg.Summary())

	storage, err := sqlite.New(cfg.Storage.Location,
		sqlite.WithTimeout(cfg.Storage.Timeout.Duration()),
		sqlite.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	repo := repository.New(storage,
		repository.WithLogger(logger),
		repository.WithNumericPolicy(cfg.NumericPolicy()),
	)
	defer repo.Close()

	c := &cli{repo: repo, out: stdout, errOut: stderr, log: logger}
	return c.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}
