package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".tables"),
	readline.PcItem(".describe"),
	readline.PcItem(".exit"),
	readline.PcItem("SELECT"),
)

const shellHelp = `
Commands:
  .help                   - Show this help message
  .tables                 - List the tables of the schema
  .describe TABLE         - Show the columns of a table
  .exit                   - Exit the shell

  SELECT cols|* FROM [schema.]table [LIMIT n]
                          - Print the projected rows of a table
`

var errExit = errors.New("exit")

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive query shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cfg *config.Config, st store.Store, logger log.Logger) error {
				session, err := newSession(cfg, st, logger)
				if err != nil {
					return err
				}
				defer session.Close()
				return runShell(cmd.Context(), session, cfg)
			})
		},
	}
}

func runShell(ctx context.Context, session *Session, cfg *config.Config) error {
	fmt.Printf("presto-dynamodb shell on %s store %s\n", cfg.StoreDriver, cfg.StoreDSN)
	fmt.Println("Enter .help for usage hints.")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s:%s> ", cfg.ConnectorID, cfg.SchemaName),
		HistoryFile:     filepath.Join(os.TempDir(), ".presto_dynamodb_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if readErr == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}

		if line = strings.TrimSpace(line); line == "" {
			continue
		}

		err := handleShellLine(ctx, session, rl.Stdout(), line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "Error: %s\n", err)
		}
	}
}

// handleShellLine executes one shell line, returning errExit on .exit
func handleShellLine(ctx context.Context, session *Session, out io.Writer, line string) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ".help":
		fmt.Fprint(out, shellHelp)
		return nil
	case ".exit", ".quit":
		return errExit
	case ".tables":
		return session.Tables(ctx, out)
	case ".describe":
		if len(fields) != 2 {
			return fmt.Errorf("usage: .describe TABLE")
		}
		return session.Describe(ctx, out, fields[1])
	case "select":
		q, err := ParseQuery(line, session.schema)
		if err != nil {
			return err
		}
		start := time.Now()
		rows, err := session.Execute(ctx, out, q)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "(%d rows in %s)\n", rows, time.Since(start).Round(time.Millisecond))
		return nil
	default:
		return fmt.Errorf("unknown command %q, enter .help for usage hints", fields[0])
	}
}
