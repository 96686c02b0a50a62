package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/ocr"
)

func newOCRCmd(a *app) *cobra.Command {
	var parallel int
	var languages []string
	var gpu bool

	cmd := &cobra.Command{
		Use:   "ocr <image>...",
		Short: "Recognize text in one or more images",
		Long: `Run the OCR runtime over each image and print one result per image, in input order.

Images are processed one at a time unless --parallel is set.`,
		Example: `  coverscan ocr front.jpg back.jpg
  coverscan ocr --parallel 3 scans/*.jpg
  coverscan ocr --languages en https://example.org/cover.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.ocrOptions()
			if len(languages) > 0 {
				opts.Languages = languages
			}
			if cmd.Flags().Changed("gpu") {
				opts.UseGPU = gpu
			}

			batch := ocr.NewBatch(a.recognizer())
			var results []models.OCRResult
			if parallel > 0 {
				results = batch.ProcessBounded(cmd.Context(), args, parallel, opts)
			} else {
				results = batch.ProcessSequential(cmd.Context(), args, opts)
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			slog.Info("OCR finished", "images", len(results), "failed", failed)
			return writeOutput(cmd, a, results)
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 0, "Process up to N images at once (0 processes sequentially)")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "OCR languages (default from config, vi,en)")
	cmd.Flags().BoolVar(&gpu, "gpu", false, "Let the OCR runtime use the GPU")
	return cmd
}
