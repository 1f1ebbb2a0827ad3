package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/router"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive device console",
	Long: `Open the console of the device selected with -d.

Commands are parsed with the active vendor profile. Ctrl-C clears the line,
Ctrl-D leaves the console. When stdin is not a terminal, lines are read as a
script and echoed after the prompt.

Examples:
  newtsim -d r1 console
  newtsim -t lab.yaml -d sw1 -p huawei console
  printf 'system-view\nsysname EDGE\n' | newtsim -d r1 console`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()
		d, err := requireDevice(r)
		if err != nil {
			return err
		}

		ctx := router.WithSource(context.Background(), router.Source{
			Kind: audit.SourceConsole,
			User: os.Getenv("USER"),
		})
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return runScript(ctx, r, d.ID, os.Stdin, os.Stdout)
		}

		platform := strings.TrimSpace(d.Vendor + " " + d.Model)
		fmt.Printf("Connected to %s (%s).\n", cli.Bold(d.Hostname), platform)
		fmt.Println("Press Ctrl-D to disconnect.")
		return runConsole(ctx, r, d.ID)
	},
}

func runConsole(ctx context.Context, r *router.Router, id string) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItemDynamic(func(string) []string { return r.History(id) }),
	)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          r.Prompt(id),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return fmt.Errorf("initializing console: %w", err)
	}
	defer l.Close()

	for {
		l.SetPrompt(r.Prompt(id))
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out, err := r.ExecuteCommand(ctx, id, line)
		if err != nil {
			fmt.Fprintln(l.Stderr(), cli.Red(err.Error()))
			continue
		}
		printOutput(l.Stdout(), out)
	}
}

// runScript executes every non-empty line of in, echoing it after the prompt
// the way a console transcript shows it.
func runScript(ctx context.Context, r *router.Router, id string, in io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fmt.Fprintf(w, "%s%s\n", r.Prompt(id), line)
		out, err := r.ExecuteCommand(ctx, id, line)
		if err != nil {
			return err
		}
		printOutput(w, out)
	}
	return sc.Err()
}

func printOutput(w io.Writer, out *router.Outcome) {
	if out == nil {
		return
	}
	for _, l := range out.Output {
		fmt.Fprintln(w, l)
	}
}
