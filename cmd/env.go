package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/runtimeenv"
)

type envStatus struct {
	State             string                  `json:"state" yaml:"state"`
	Check             *runtimeenv.CheckResult `json:"check,omitempty" yaml:"check,omitempty"`
	Health            models.RuntimeHealth    `json:"health" yaml:"health"`
	Candidates        []string                `json:"candidates" yaml:"candidates"`
	ExtractionEnabled bool                    `json:"extraction_enabled" yaml:"extraction_enabled"`
	Provider          string                  `json:"provider" yaml:"provider"`
}

func newEnvCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect the OCR runtime environment",
	}
	cmd.AddCommand(newEnvCheckCmd(a))
	cmd.AddCommand(newEnvResetCmd(a))
	return cmd
}

func newEnvCheckCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve the OCR interpreter and run the smoke check",
		Example: `  # Check the runtime and print the verdict as YAML
  coverscan env check --format yaml

  # Use a specific interpreter
  COVERSCAN_OCR_PYTHON_PATH=/opt/ocr/bin/python coverscan env check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.runtime()
			check := m.CheckEnvironment(cmd.Context(), force)

			status, err := a.envStatus(m, &check)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, a, status); err != nil {
				return err
			}
			if !check.Success {
				return fmt.Errorf("OCR runtime unavailable (%s): %s", check.CommandPath, check.Details)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore any cached verdict")
	return cmd
}

func newEnvResetCmd(a *app) *cobra.Command {
	var recheck bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the resolved interpreter and cached verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.runtime()
			m.ResetCache()

			var check *runtimeenv.CheckResult
			if recheck {
				res := m.CheckEnvironment(cmd.Context(), true)
				check = &res
			}
			status, err := a.envStatus(m, check)
			if err != nil {
				return err
			}
			return writeOutput(cmd, a, status)
		},
	}

	cmd.Flags().BoolVar(&recheck, "recheck", false, "Run a fresh smoke check after the reset")
	return cmd
}

func (a *app) envStatus(m *runtimeenv.Manager, check *runtimeenv.CheckResult) (envStatus, error) {
	client, err := a.extractor()
	if err != nil {
		return envStatus{}, err
	}
	return envStatus{
		State:             m.State().String(),
		Check:             check,
		Health:            m.Health(),
		Candidates:        m.Candidates(),
		ExtractionEnabled: client != nil,
		Provider:          a.cfg.Extraction.Provider,
	}, nil
}
