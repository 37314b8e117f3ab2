// Package command implements the couchctl subcommands.
package command

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	couch "github.com/patrickjuchli/minicouch"
	"github.com/patrickjuchli/minicouch/internal/config"
)

// Version of couchctl.
const Version = "0.2.0"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := args[0]

	log := hclog.New(&hclog.LoggerOptions{
		Name:   cliName,
		Level:  hclog.Warn,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  Version,
		Commands: Commands(&Meta{Ctx: ctx, Log: log, UI: ui}),
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitCode
}

// Commands returns the command factories, all sharing m.
func Commands(m *Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"root": func() (cli.Command, error) {
			return &RootCommand{Meta: m}, nil
		},
		"db create": func() (cli.Command, error) {
			return &DBCreateCommand{Meta: m}, nil
		},
		"db delete": func() (cli.Command, error) {
			return &DBDeleteCommand{Meta: m}, nil
		},
		"db exists": func() (cli.Command, error) {
			return &DBExistsCommand{Meta: m}, nil
		},
		"uuids": func() (cli.Command, error) {
			return &UUIDsCommand{Meta: m}, nil
		},
		"doc create": func() (cli.Command, error) {
			return &DocCreateCommand{Meta: m}, nil
		},
		"doc get": func() (cli.Command, error) {
			return &DocGetCommand{Meta: m}, nil
		},
		"doc delete": func() (cli.Command, error) {
			return &DocDeleteCommand{Meta: m}, nil
		},
	}
}

// Meta holds what every command needs: the UI, a logger and the common
// -config, -url and -log-level flags.
type Meta struct {
	Ctx context.Context
	Log hclog.Logger
	UI  cli.Ui

	flagConfig   string
	flagURL      string
	flagLogLevel string
}

// FlagSet returns a flag set with the common flags registered.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	f.StringVar(&m.flagConfig, "config", "", "Path to an HCL config file.")
	f.StringVar(&m.flagURL, "url", "", "CouchDB server URL, overrides the config file.")
	f.StringVar(&m.flagLogLevel, "log-level", "", "Log level, overrides the config file.")
	return f
}

func (m *Meta) commonHelp() string {
	return `
Common Options:

  -config=<path>       Path to an HCL config file.
  -url=<url>           CouchDB server URL (default: ` + couch.DefaultURL + `).
  -log-level=<level>   trace, debug, info, warn or error.
`
}

// Client builds a couch client from the config file and flags.
func (m *Meta) Client() (*couch.Client, error) {
	cfg := config.Default()
	if m.flagConfig != "" {
		var err error
		if cfg, err = config.Load(m.flagConfig); err != nil {
			return nil, err
		}
	}
	if m.flagURL != "" {
		cfg.URL = m.flagURL
	}
	if m.flagLogLevel != "" {
		cfg.LogLevel = m.flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.Log.SetLevel(cfg.Level())
	m.Log.Debug("connecting", "url", cfg.URL)
	return couch.NewWithConfig(cfg.ClientConfig(m.Log))
}

func (m *Meta) context() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}

// parse parses args and checks the number of positional arguments.
func (m *Meta) parse(f *flag.FlagSet, args []string, want int) ([]string, bool) {
	if err := f.Parse(args); err != nil {
		m.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return nil, false
	}
	if f.NArg() != want {
		m.UI.Error(fmt.Sprintf("expected %d argument(s), got %d", want, f.NArg()))
		return nil, false
	}
	return f.Args(), true
}

// fail reports err and returns the exit code for failures.
func (m *Meta) fail(err error) int {
	m.UI.Error(err.Error())
	return 1
}

// output prints v as indented JSON.
func (m *Meta) output(v interface{}) int {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return m.fail(err)
	}
	m.UI.Output(string(b))
	return 0
}

func usage(line, description string) string {
	return strings.TrimSpace("Usage: couchctl "+line+"\n\n  "+description) + "\n"
}
