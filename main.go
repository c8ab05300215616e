package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"gopkg.in/yaml.v3"

	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
	"github.com/Conceptual-Machines/prompt-architect/internal/share"
)

// releaseVersion is set via ldflags during build
var releaseVersion = ""

// GetVersion returns the current release version
func GetVersion() string {
	v := releaseVersion
	if v == "" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "(devel)" {
			v = buildInfo.Main.Version
		}
	}
	if v == "" {
		v = "dev"
	}
	return v
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().ParseAndRun(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("prompt-architect", flag.ExitOnError)
	serveCmd := newServeCommand()

	return &ffcli.Command{
		ShortUsage: "prompt-architect [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			// no subcommand boots the server
			return serveCmd.ParseAndRun(ctx, args)
		},
		Subcommands: []*ffcli.Command{
			serveCmd,
			newVersionCommand(),
			newDecodeCommand(os.Stdout),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "prompt-architect version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			fmt.Println(GetVersion())
			return nil
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	opts := serveOptions{}
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringVar(&opts.port, "port", "", "listen port (overrides PORT)")
	fs.StringVar(&opts.dbType, "db-type", "", "database type: sqlite, postgres or mysql (overrides DATABASE_TYPE)")
	fs.StringVar(&opts.dbURL, "db-url", "", "sqlite path or dsn (overrides DATABASE_URL)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("prompt-architect %s [flags]", cmd),
		ShortHelp:  "run the HTTP API",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("PROMPT_ARCHITECT"),
		},
		FlagSet: fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve(ctx, opts)
		},
	}
}

func newDecodeCommand(out io.Writer) *ffcli.Command {
	cmd := "decode"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("prompt-architect %s <token|url>", cmd),
		ShortHelp:  "print the selection carried by a share token",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			return decodeToken(out, args[0])
		},
	}
}

// decodeToken prints the snapshot of a share token or link as YAML and
// reports whether the catalog would accept it
func decodeToken(out io.Writer, raw string) error {
	tok := strings.TrimSpace(raw)
	if strings.Contains(tok, "://") {
		var err error
		if tok, err = share.TokenFromURL(tok); err != nil {
			return err
		}
	}

	snap, err := share.Decode(tok)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}

	machine := selection.NewMachine(catalog.Default(), nil)
	if state, err := machine.Restore(snap); err != nil {
		doc["restorable"] = false
		doc["error"] = err.Error()
	} else {
		doc["restorable"] = true
		doc["category"] = state.Category
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
