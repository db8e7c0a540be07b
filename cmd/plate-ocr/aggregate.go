package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ironsheep/plate-ocr/internal/aggregate"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <results.yaml|results.json>",
		Short: "Merge stored attempt results into one answer per plate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("strategy") {
				cfg.Aggregation.Strategy, _ = flags.GetString("strategy")
			}
			if flags.Changed("topn") {
				cfg.Aggregation.TopN, _ = flags.GetInt("topn")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			results, err := loadResults(args[0])
			if err != nil {
				return err
			}

			agg := aggregate.New(aggregate.FromConfig(cfg.Aggregation), slog.Default())
			for _, r := range results {
				agg.Add(r)
			}
			merged, err := agg.Results()
			if err != nil {
				return fmt.Errorf("failed to aggregate %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), merged)
		},
	}
	cmd.Flags().String("strategy", "", "Merge strategy: combine or pick-best (default from config)")
	cmd.Flags().Int("topn", 0, "Candidates kept per plate (default from config)")
	return cmd
}

// loadResults reads a list of attempt results. JSON input is accepted since
// it is valid YAML.
func loadResults(path string) ([]plate.AttemptResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var results []plate.AttemptResult
	if err := yaml.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return results, nil
}
