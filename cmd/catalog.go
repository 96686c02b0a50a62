package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/catalog"
)

type importOutput struct {
	Imported int    `json:"imported" yaml:"imported"`
	Total    int    `json:"total" yaml:"total"`
	Database string `json:"database" yaml:"database"`
}

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local SQLite catalog",
	}
	cmd.AddCommand(newCatalogImportCmd(a))
	return cmd
}

func newCatalogImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import catalog records from JSONL, JSON or Parquet",
		Long: `Upsert catalog records into the SQLite catalog at catalog.dsn.

Records without an id are numbered by position; records without a status are approved.`,
		Example: `  coverscan catalog import books.jsonl
  COVERSCAN_CATALOG_DSN=/data/library.db coverscan catalog import export.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := catalog.LoadRecords(args[0])
			if err != nil {
				return err
			}

			store, err := a.sqliteStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ImportRecords(cmd.Context(), records)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd, a, importOutput{Imported: n, Total: total, Database: a.cfg.Catalog.DSN})
		},
	}
}
