package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"regstore/internal/codec"
	"regstore/internal/domain"
	"regstore/internal/repository"
	"regstore/internal/watcher"
)

type cli struct {
	repo   *repository.Repository
	out    io.Writer
	errOut io.Writer
	log    *log.Logger
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return c.list(ctx, args)
	case "get":
		return c.get(ctx, args)
	case "set":
		return c.set(ctx, args)
	case "create":
		return c.create(ctx, args)
	case "access":
		return c.access(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "export":
		return c.export(ctx, args)
	case "import":
		return c.importFile(ctx, args)
	default:
		fmt.Fprint(c.errOut, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) list(ctx context.Context, args []string) error {
	if err := wantArgs("list", args, 0, 0); err != nil {
		return err
	}
	return c.repo.Each(ctx, func(name string, e domain.Entry) error {
		_, err := fmt.Fprintf(c.out, "%s\t%s\n", name, e)
		return err
	})
}

func (c *cli) get(ctx context.Context, args []string) error {
	if err := wantArgs("get", args, 1, 1); err != nil {
		return err
	}
	e, err := c.repo.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, e)
	return nil
}

func (c *cli) set(ctx context.Context, args []string) error {
	if err := wantArgs("set", args, 2, 2); err != nil {
		return err
	}
	candidate, err := parseLiteral(args[1])
	if err != nil {
		return err
	}
	return c.repo.Set(ctx, args[0], candidate)
}

func (c *cli) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	immutable := fs.Bool("immutable", false, "create the register read-only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs("create", fs.Args(), 3, 3); err != nil {
		return err
	}

	name, typ, literal := fs.Arg(0), fs.Arg(1), fs.Arg(2)
	kind, err := domain.ParseKind(typ)
	if err != nil {
		return err
	}
	v, err := parseValue(kind, literal)
	if err != nil {
		return err
	}
	return c.repo.Create(ctx, name, v, !*immutable)
}

func (c *cli) access(ctx context.Context, args []string) error {
	if err := wantArgs("access", args, 1, 2); err != nil {
		return err
	}
	var candidate any
	if len(args) == 2 {
		var err error
		if candidate, err = parseLiteral(args[1]); err != nil {
			return err
		}
	}
	e, err := c.repo.Access(ctx, args[0], candidate)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, e)
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	if err := wantArgs("delete", args, 1, 1); err != nil {
		return err
	}
	return c.repo.Delete(ctx, args[0])
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	format := fs.String("format", "yaml", "document format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs("export", fs.Args(), 0, 0); err != nil {
		return err
	}

	exporter, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}
	regs, err := c.repo.Snapshot(ctx)
	if err != nil {
		return err
	}
	return exporter.Export(regs, c.out)
}

func (c *cli) importFile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	watch := fs.Bool("watch", false, "re-import whenever the file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs("import", fs.Args(), 1, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	load := func(ctx context.Context) error {
		n, err := c.load(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "imported %d registers\n", n)
		return nil
	}
	if err := load(ctx); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	err := watcher.New(path, load).WithLogger(c.log).Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// load parses the document at path and imports its registers
func (c *cli) load(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	importer, err := codec.ForFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return 0, err
	}
	regs, err := importer.Parse(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.repo.Import(ctx, regs); err != nil {
		return 0, err
	}
	return len(regs), nil
}

func wantArgs(cmd string, args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("%s: wrong number of arguments (run regstore -h for usage)", cmd)
	}
	return nil
}

// parseLiteral decodes a YAML literal into a loose Go value
func parseLiteral(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if v == nil {
		return []any{}, nil
	}
	return v, nil
}

// parseValue builds a value of kind from a literal. Unstructured values are
// given as base64 text, string values are taken verbatim.
func parseValue(kind domain.Kind, literal string) (domain.Value, error) {
	switch kind.Class() {
	case domain.ClassNone:
		return domain.Empty(), nil
	case domain.ClassText:
		v := domain.String(literal)
		return v, v.Validate()
	case domain.ClassBlob:
		b, err := base64.StdEncoding.DecodeString(literal)
		if err != nil {
			return domain.Value{}, fmt.Errorf("unstructured value must be base64: %w", err)
		}
		v := domain.Unstructured(b)
		return v, v.Validate()
	}

	raw, err := parseLiteral(literal)
	if err != nil {
		return domain.Value{}, err
	}
	v, ok := domain.Coerce(kind, raw)
	if !ok {
		return domain.Value{}, fmt.Errorf("value %s is not a valid %s", literal, kind)
	}
	return v, nil
}
