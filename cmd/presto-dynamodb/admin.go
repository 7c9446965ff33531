package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// maxLineSize bounds a single JSON item line read by load
const maxLineSize = 4 * 1024 * 1024

func newCreateTableCmd() *cobra.Command {
	var (
		key     string
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "create-table <name>",
		Short: "Create a table",
		Long: `Create a table keyed by the given attribute. Columns are optional and
declared as name:type pairs, where type is boolean, bigint, double or varchar.
Tables without declared columns have their schema inferred from their items.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := tableDescriptor(args[0], key, columns)
			if err != nil {
				return err
			}
			return withStore(cmd, func(_ *config.Config, st store.Store, _ log.Logger) error {
				if err := st.CreateTable(cmd.Context(), desc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created table %s\n", desc.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "id", "Key attribute")
	cmd.Flags().StringArrayVar(&columns, "column", nil, "Column definition as name:type, repeatable")
	return cmd
}

// tableDescriptor builds a descriptor from command line column definitions
func tableDescriptor(name, key string, columns []string) (store.TableDescriptor, error) {
	desc := store.TableDescriptor{Name: name, KeyAttribute: key}
	for _, def := range columns {
		colName, typeName, ok := strings.Cut(def, ":")
		if !ok {
			return desc, fmt.Errorf("invalid column definition %q, expected name:type", def)
		}
		typ, err := spi.ParseType(typeName)
		if err != nil {
			return desc, err
		}
		desc.Columns = append(desc.Columns, store.ColumnDefinition{Name: colName, Type: typ})
	}
	return desc, desc.Validate()
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(_ *config.Config, st store.Store, _ log.Logger) error {
				return printTables(cmd.Context(), cmd.OutOrStdout(), st)
			})
		},
	}
}

func printTables(ctx context.Context, out io.Writer, st store.Store) error {
	tables, err := st.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		fmt.Fprintln(out, table)
	}
	return nil
}

func newDescribeCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Long: `Describe prints the columns the connector exposes for a table, inferring
them from sampled items when the table declares none. With --raw the stored
descriptor is printed as JSON instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cfg *config.Config, st store.Store, logger log.Logger) error {
				if raw {
					desc, err := st.DescribeTable(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(desc)
				}

				session, err := newSession(cfg, st, logger)
				if err != nil {
					return err
				}
				defer session.Close()
				return session.Describe(cmd.Context(), cmd.OutOrStdout(), args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored table descriptor")
	return cmd
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <table> [file]",
		Short: "Load items into a table",
		Long: `Load reads one DynamoDB JSON item per line from the file, or from standard
input when no file or "-" is given, and puts each item into the table.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return withStore(cmd, func(_ *config.Config, st store.Store, logger log.Logger) error {
				count, err := loadItems(cmd.Context(), st, args[0], in)
				if err != nil {
					return err
				}
				logger.Info("Loaded %d items into %s", count, args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d items\n", count)
				return nil
			})
		},
	}
	return cmd
}

// loadItems puts every JSON line read from in into the table. Blank lines are skipped.
func loadItems(ctx context.Context, st store.Store, table string, in io.Reader) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	count, line := 0, 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		item, err := attribute.ParseItem(data)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if err := st.PutItem(ctx, table, item); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read items: %w", err)
	}
	return count, nil
}

// newTabWriter returns the writer used for tabular output
func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}
