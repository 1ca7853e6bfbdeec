package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/omarriaga/blazer/internal/datasource"
)

func newREPLCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "repl <data-source>",
		Short: "Start an interactive SQL session",
		Long: `Start an interactive session against a configured data source.

SQL statements end with a semicolon and may span multiple lines.
Dot-commands control the session; type .help to list them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.Registry()
			if err != nil {
				return err
			}
			ds, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			return runREPL(cmd, ds, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv")
	return cmd
}

func runREPL(cmd *cobra.Command, ds *datasource.DataSource, format string) error {
	ctx := cmd.Context()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "blazer> ",
		HistoryFile:     historyPath(),
		AutoComplete:    replCompleter(ctx, ds),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (%s)\n", ds.ID(), ds.AdapterKind())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt("blazer> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, ds, line, format); quit {
				break
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}
		rl.SetPrompt("blazer> ")

		statement := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		if err := runAndRender(ctx, cmd, ds, statement, format, false); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func runAndRender(ctx context.Context, cmd *cobra.Command, ds *datasource.DataSource, statement, format string, refresh bool) error {
	res, err := ds.RunStatement(ctx, statement, datasource.RunOptions{RefreshCache: refresh})
	if err != nil {
		return err
	}
	if res.Error != "" {
		return errors.New(res.Error)
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

// handleDotCommand processes a REPL dot-command. It returns true when the
// session should end.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, ds *datasource.DataSource, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		tables, err := ds.Tables(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		for _, name := range tables {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
		}

	case ".cost":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .cost <statement>")
			return false
		}
		statement := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, parts[0])), ";")
		cost, ok := ds.Cost(ctx, statement)
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "unsupported")
			return false
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%g\n", cost)

	case ".refresh":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .refresh <statement>")
			return false
		}
		statement := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, parts[0])), ";")
		if err := runAndRender(ctx, cmd, ds, statement, format, true); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}

	case ".uncache":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .uncache <statement>")
			return false
		}
		statement := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, parts[0])), ";")
		if err := ds.Invalidate(ctx, statement); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")

	case ".clear":
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .tables               List tables in the source's schemas
  .cost <statement>     Show the planner cost estimate
  .refresh <statement>  Run a statement, bypassing the cache
  .uncache <statement>  Drop the cached result for a statement
  .clear                Clear the screen
  .quit / .exit         Exit the session

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blazer", "repl_history")
}

// replCompleter offers table names and dot-commands. Table discovery is
// best-effort; a source that cannot list tables still gets command
// completion.
func replCompleter(ctx context.Context, ds *datasource.DataSource) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if tables, err := ds.Tables(ctx); err == nil {
		for _, name := range tables {
			items = append(items, readline.PcItem(name))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".cost"),
		readline.PcItem(".refresh"),
		readline.PcItem(".uncache"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
