package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
)

func newExtractCmd(a *app) *cobra.Command {
	var searchTerms bool

	cmd := &cobra.Command{
		Use:   "extract [file]...",
		Short: "Extract book metadata from OCR text",
		Long: `Send OCR text to the configured provider and print the normalized metadata.

Each file is one book. With no files the text is read from stdin.
Requests are paced by extraction.requests_per_second.`,
		Example: `  coverscan extract front.txt
  echo "SAPIENS\nYuval Noah Harari" | coverscan extract
  CATALOGING_PROVIDER=ollama coverscan extract --search-terms cover.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := readTexts(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			client, err := a.requireExtractor()
			if err != nil {
				return err
			}

			if searchTerms {
				results := make([]extraction.SearchTermsResult, len(texts))
				for i, text := range texts {
					results[i] = client.ExtractSearchTerms(cmd.Context(), text)
				}
				return writeOutput(cmd, a, results)
			}
			return writeOutput(cmd, a, client.ExtractAll(cmd.Context(), texts))
		},
	}

	cmd.Flags().BoolVar(&searchTerms, "search-terms", false, "Extract catalog search terms instead of full metadata")
	return cmd
}

func readTexts(stdin io.Reader, paths []string) ([]string, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []string{string(data)}, nil
	}

	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		texts = append(texts, string(data))
	}
	return texts, nil
}
