package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/grandgraph/pkg/store"
)

// dbCommand manages the local analytical store.
func (c *CLI) dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local analytical database",
	}

	cmd.AddCommand(c.dbImportCommand())
	cmd.AddCommand(c.dbStatsCommand())

	return cmd
}

func (c *CLI) dbImportCommand() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "import <dataset.json>",
		Short: "Import persons, companies and stints from a JSON dataset",
		Long: `Import reads a dataset of the form

  {"persons": [...], "companies": [...], "stints": [...]}

and inserts or replaces every row in one transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDBImport(cmd.Context(), db, args[0])
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database (default: server.db from config)")
	return cmd
}

func (c *CLI) runDBImport(ctx context.Context, db, path string) error {
	ds, err := store.ReadDataset(path)
	if err != nil {
		return err
	}
	st, err := c.openStore(ctx, db)
	if err != nil {
		return err
	}
	defer st.Close()

	prog := newProgress(c.Logger)
	if err := st.Import(ctx, ds); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	prog.done("Imported dataset", "persons", len(ds.Persons), "companies", len(ds.Companies), "stints", len(ds.Stints))

	printSuccess("Imported %s", path)
	printFile(st.Path())
	printNextStep("Export tiles", "grandgraph cache build <dir>")
	return nil
}

func (c *CLI) dbStatsCommand() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context(), db)
			if err != nil {
				return err
			}
			defer st.Close()

			persons, companies, stints, err := st.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, StyleTitle.Render(st.Path()))
			printKeyValue("persons", StyleNumber.Render(strconv.Itoa(persons)))
			printKeyValue("companies", StyleNumber.Render(strconv.Itoa(companies)))
			printKeyValue("stints", StyleNumber.Render(strconv.Itoa(stints)))
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database (default: server.db from config)")
	return cmd
}
