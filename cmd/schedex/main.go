// Package main provides the command-line entry point for schedex.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"schedex/internal/auth"
	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/logging"
	"schedex/internal/mapper"
	"schedex/internal/pipeline"
	"schedex/internal/port"
	"schedex/internal/repository/memory"
	"schedex/internal/similarity"
	"schedex/internal/similarity/claude"
	"schedex/internal/source/excel"
)

var (
	outputPath  string
	pretty      bool
	confirmMode string
	subject     string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "schedex",
		Short:         "Extract electrical schedules from Excel workbooks",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	runCmd := &cobra.Command{
		Use:   "run [input.xlsx]",
		Short: "Run the extraction pipeline over a workbook and print the report",
		Long: `run classifies every sheet of the workbook, maps its columns, extracts
loads, cables, buses and transformers, then repairs, deduplicates and validates
the result. The processing report is written as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runPipeline,
	}
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	runCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	runCmd.Flags().StringVar(&confirmMode, "confirm", "", "Gray-zone mapping policy: accept, reject, or prompt (default: configured policy)")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the run API",
		Args:  cobra.NoArgs,
		RunE:  issueToken,
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(runCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	deps := pipeline.Deps{Store: memory.NewMappingStore()}

	switch confirmMode {
	case "":
	case "accept", "reject":
		deps.Confirmer = mapper.ConfirmerForPolicy(confirmMode)
	case "prompt":
		deps.Confirmer = mapper.NewPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	default:
		return fmt.Errorf("invalid confirm mode: %s (must be accept, reject, or prompt)", confirmMode)
	}

	similarity.RegisterProvider("claude", func(c *config.SimilarityConfig) (port.SimilarityScorer, error) {
		return claude.NewScorer(c), nil
	})
	scorer, err := similarity.NewScorer(&cfg.Similarity)
	if err != nil {
		return fmt.Errorf("failed to initialize similarity scorer: %w", err)
	}
	if scorer != nil {
		defer scorer.Close()
		deps.Scorer = scorer
	}

	res := pipeline.New(&cfg.Pipeline, deps).Run(cmd.Context(), excel.Open(inputPath))

	jsonData, err := marshalReport(res.Report)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	}

	if res.Err != nil {
		return fmt.Errorf("run %s failed: %w", res.Report.RunID, res.Err)
	}
	return nil
}

func marshalReport(report *domain.ProcessingReport) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}

func issueToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	token, expiresAt, err := auth.NewTokenService(cfg.JWT).Issue(subject)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
