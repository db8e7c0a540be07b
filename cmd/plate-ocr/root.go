package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plate-ocr",
		Short: "License plate character recognition",
		Long: `plate-ocr reads the characters of cropped license plate images.

Each image is read several times with slightly different binarizations and the
attempts are merged into one ranked list of plate strings per plate.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ll, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(ll)})))
			slog.Debug("plate-ocr starting", "version", Version, "built", BuildTime, "commit", GitCommit)
			return nil
		},
	}

	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	root.PersistentFlags().String("log-level", ll, "The logging level for the command")
	root.PersistentFlags().String("config", os.Getenv("PLATE_OCR_CONFIG"), "YAML configuration file")

	root.AddCommand(newReadCmd(), newAggregateCmd())
	return root
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads --config and applies environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
