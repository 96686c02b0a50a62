package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/config"
	"github.com/lehigh-university-libraries/coverscan/internal/report"
)

func NewRootCmd() *cobra.Command {
	a := &app{}
	var configPath, format string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "coverscan",
		Short: "Book cover OCR, metadata extraction and catalog matching",
		Long: `Coverscan reads the text printed on book covers with an external OCR runtime,
turns it into structured metadata with an LLM, and matches the book against a catalog.

Covers are given per face (front, spine, inside, back) as file paths or URLs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			initLogging(verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.format = f
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./coverscan.yaml)")
	cmd.PersistentFlags().StringVar(&format, "format", "json", "Output format (json or yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newEnvCmd(a))
	cmd.AddCommand(newOCRCmd(a))
	cmd.AddCommand(newScanCmd(a))
	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newCatalogCmd(a))
	cmd.AddCommand(newEvalCmd(a))

	return cmd
}

// initLogging writes human-readable logs to stderr so stdout carries only
// command output.
func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func writeOutput(cmd *cobra.Command, a *app, v any) error {
	if err := report.Write(cmd.OutOrStdout(), a.format, v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
