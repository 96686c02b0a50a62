package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/catalog"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/ocr"
)

type searchOutput struct {
	Query      models.SearchQuery      `json:"query" yaml:"query"`
	Confidence *float64                `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Candidates []models.MatchCandidate `json:"candidates" yaml:"candidates"`
}

func newSearchCmd(a *app) *cobra.Command {
	var q models.SearchQuery
	var imageRefs []string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find catalog records for a book",
		Long: `Search the approved catalog records and rank them by how many terms they contain.

Terms come from flags, or from cover images: the images are OCRed and the
provider is asked for search terms.`,
		Example: `  coverscan search --title "Sapiens" --author "Harari"
  coverscan search --image front.jpg --image spine.jpg
  coverscan search --title dune --keyword arrakis --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := searchOutput{Query: q}

			if len(imageRefs) > 0 {
				text, err := a.ocrText(cmd, imageRefs)
				if err != nil {
					return err
				}
				client, err := a.requireExtractor()
				if err != nil {
					return err
				}
				terms := client.ExtractSearchTerms(cmd.Context(), text)
				if !terms.Success {
					return fmt.Errorf("failed to extract search terms: %s", terms.Error)
				}
				out.Query = terms.Query
				out.Confidence = &terms.Confidence
			}

			store, closeStore, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			out.Candidates, err = catalog.NewMatcher(store).Search(cmd.Context(), out.Query)
			if err != nil {
				return err
			}
			if out.Candidates == nil {
				out.Candidates = []models.MatchCandidate{}
			}
			return writeOutput(cmd, a, out)
		},
	}

	cmd.Flags().StringVar(&q.Title, "title", "", "Title to search for")
	cmd.Flags().StringVar(&q.Author, "author", "", "Author to search for")
	cmd.Flags().StringVar(&q.AlternativeTitle, "alt-title", "", "Alternative title to search for")
	cmd.Flags().StringSliceVar(&q.Keywords, "keyword", nil, "Keywords that raise the match score")
	cmd.Flags().StringSliceVar(&imageRefs, "image", nil, "Cover images to derive search terms from")
	cmd.MarkFlagsMutuallyExclusive("image", "title")
	return cmd
}

// ocrText recognizes refs in order and joins the non-empty text.
func (a *app) ocrText(cmd *cobra.Command, refs []string) (string, error) {
	results := ocr.NewBatch(a.recognizer()).ProcessSequential(cmd.Context(), refs, a.ocrOptions())

	var texts []string
	var lastErr string
	for _, r := range results {
		if !r.Success {
			lastErr = r.Error
			continue
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		if lastErr != "" {
			return "", fmt.Errorf("OCR produced no text: %s", lastErr)
		}
		return "", fmt.Errorf("OCR produced no text")
	}
	return strings.Join(texts, "\n\n"), nil
}
