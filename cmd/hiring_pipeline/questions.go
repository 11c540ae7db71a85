package main

import (
	"fmt"
	"strings"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/observability"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/spf13/cobra"
)

var (
	questionsJobTitle    string
	questionsDescription string
	questionsTechStack   []string
	questionsCount       int
	questionsFallback    bool
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Preview the interview questions for a job",
	Long: `Generate interview questions for a job title the same way scheduling does:
ask the oracle first and fall back to the question bank when it is unavailable.`,
	RunE: runQuestions,
}

func init() {
	questionsCmd.Flags().StringVar(&questionsJobTitle, "job-title", "", "Job title (required)")
	questionsCmd.Flags().StringVar(&questionsDescription, "description", "", "Job description")
	questionsCmd.Flags().StringSliceVar(&questionsTechStack, "tech-stack", nil, "Comma-separated technologies")
	questionsCmd.Flags().IntVar(&questionsCount, "count", 0, "Number of questions (overrides INTERVIEW_QUESTION_COUNT)")
	questionsCmd.Flags().BoolVar(&questionsFallback, "fallback-only", false, "Skip the oracle and use the question bank")
	_ = questionsCmd.MarkFlagRequired("job-title")
	rootCmd.AddCommand(questionsCmd)
}

func runQuestions(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(questionsJobTitle) == "" {
		return fmt.Errorf("--job-title must not be blank")
	}

	cfg, err := loadConfig(configPath, func(c *config.Config) {
		// No store is opened for a preview.
		c.StoreBackend = config.StoreMemory
		if questionsCount != 0 {
			c.QuestionCount = questionsCount
		}
		if questionsFallback {
			c.APIKey = ""
		}
	})
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	orc, client, err := newOracle(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	source := types.SourceOracle
	qs, err := orc.GenerateQuestions(ctx, oracle.QuestionRequest{
		JobTitle:       questionsJobTitle,
		JobDescription: questionsDescription,
		TechStack:      questionsTechStack,
		Count:          cfg.QuestionCount,
	})
	if err != nil || len(qs) == 0 {
		if err != nil && client != nil {
			logger.Warn("oracle unavailable, using question bank", "error", err)
		}
		source = types.SourceFallback
		qs = bank.Select(questionsJobTitle, questionsTechStack, cfg.QuestionCount)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintQuestions(qs, source)
	return nil
}
