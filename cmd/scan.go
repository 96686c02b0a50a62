package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/catalog"
	"github.com/lehigh-university-libraries/coverscan/internal/cover"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/report"
)

type scanOutput struct {
	Scan    cover.ScanResult        `json:"scan" yaml:"scan"`
	Query   *models.SearchQuery     `json:"query,omitempty" yaml:"query,omitempty"`
	Matches []models.MatchCandidate `json:"matches,omitempty" yaml:"matches,omitempty"`
}

func newScanCmd(a *app) *cobra.Command {
	covers := map[models.CoverRole]*string{}
	var extract, match bool
	var reportDir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the covers of one book",
		Long: `Run OCR over each given cover face in the order front, spine, inside, back,
combine the recognized text, and optionally extract metadata and match the catalog.

A cover that fails OCR does not fail the scan as long as another cover succeeds.`,
		Example: `  coverscan scan --front front.jpg --back back.jpg --extract
  coverscan scan --front https://example.org/cover.jpg --extract --match --format yaml
  coverscan scan --front front.jpg --extract --report-dir reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := models.CoverSet{}
			for role, ref := range covers {
				set[role] = *ref
			}

			svc, err := a.coverService()
			if err != nil {
				return err
			}
			res := svc.ScanCoverSet(cmd.Context(), set, a.scanOptions(extract || match))
			out := scanOutput{Scan: res}

			if match && res.Metadata != nil {
				q := catalog.QueryFromMetadata(*res.Metadata)
				out.Query = &q
				store, closeStore, err := a.store(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore()
				out.Matches, err = catalog.NewMatcher(store).Search(cmd.Context(), q)
				if err != nil {
					return err
				}
			}

			if reportDir != "" {
				if _, err := report.SaveYAML(reportDir, "scan", time.Now(), out); err != nil {
					return err
				}
			}
			if err := writeOutput(cmd, a, out); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("scan failed (%s): %s", res.Outcome, res.Message)
			}
			return nil
		},
	}

	for _, role := range models.CoverRoles {
		covers[role] = cmd.Flags().String(string(role), "", fmt.Sprintf("Image path or URL of the %s cover", role))
	}
	cmd.Flags().BoolVar(&extract, "extract", false, "Extract metadata from the combined text")
	cmd.Flags().BoolVar(&match, "match", false, "Match extracted metadata against the catalog (implies --extract)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Also save the result as a YAML report in this directory")
	return cmd
}
