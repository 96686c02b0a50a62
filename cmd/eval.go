package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/cover"
	"github.com/lehigh-university-libraries/coverscan/internal/evaluation"
	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
	"github.com/lehigh-university-libraries/coverscan/internal/report"
)

func newEvalCmd(a *app) *cobra.Command {
	var datasetPath, reportDir string
	var sampleSize, concurrency int

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure metadata extraction accuracy against labeled books",
		Long: `Extract metadata for every labeled book and compare each field with the
reference using Levenshtein similarity.

Items carry either OCR text or cover image paths; images are scanned first.
The dataset may be JSONL, a JSON array, or Parquet.`,
		Example: `  # Evaluate 10 labeled books with Ollama
  CATALOGING_PROVIDER=ollama coverscan eval --dataset labels.jsonl --sample 10

  # Evaluate the full set with OpenAI
  CATALOGING_PROVIDER=openai coverscan eval --dataset labels.parquet --sample -1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}

			items, err := evaluation.LoadDataset(datasetPath, sampleSize)
			if err != nil {
				return err
			}

			client, err := a.requireExtractor()
			if err != nil {
				return err
			}

			scanner := cover.NewService(a.engine(), a.resolver(), nil)

			now := time.Now()
			results := evaluation.NewRunner(client, scanner, a.scanOptions(false), concurrency).Run(cmd.Context(), items)

			model := a.cfg.Extraction.Model
			if model == "" {
				model = extraction.DefaultModel(client.Provider())
			}
			rep := evaluation.Report{
				Config: evaluation.Config{
					Provider:   client.Provider(),
					Model:      model,
					Dataset:    datasetPath,
					SampleSize: len(items),
					Timestamp:  now.Format(time.RFC3339),
				},
				Summary: evaluation.Summarize(results),
				Results: results,
			}

			rep.Summary.Print(cmd.ErrOrStderr())
			if reportDir != "" {
				path, err := report.SaveYAML(reportDir, model, now, rep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\nResults saved to: %s\n", path)
			}
			return writeOutput(cmd, a, rep.Summary)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to labeled dataset (.jsonl, .json or .parquet)")
	cmd.Flags().IntVar(&sampleSize, "sample", 10, "Number of items to evaluate (-1 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Items evaluated at once")
	cmd.Flags().StringVar(&reportDir, "report-dir", "evals", "Directory for the YAML report (empty to skip)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
