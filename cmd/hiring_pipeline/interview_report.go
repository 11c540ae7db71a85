package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/observability"
	"github.com/spf13/cobra"
)

var reportInterviewID string

var interviewReportCmd = &cobra.Command{
	Use:   "interview-report",
	Short: "Print an interview with its scores and evaluation",
	RunE:  runInterviewReport,
}

func init() {
	interviewReportCmd.Flags().StringVar(&reportInterviewID, "id", "", "Interview ID (required)")
	_ = interviewReportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(interviewReportCmd)
}

func runInterviewReport(cmd *cobra.Command, _ []string) error {
	id, err := uuid.Parse(reportInterviewID)
	if err != nil {
		return fmt.Errorf("invalid interview id: %w", err)
	}

	cfg, err := loadConfig(configPath, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Operators read the store directly; answers are never redacted here.
	iv, err := a.store.GetInterview(ctx, id)
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintInterviewReport(iv)
	return nil
}
