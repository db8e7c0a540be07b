package main

import (
	"fmt"
	"log/slog"

	"github.com/ironsheep/plate-ocr/internal/imaging"
	"github.com/ironsheep/plate-ocr/internal/ocr"
	"github.com/ironsheep/plate-ocr/internal/pipeline"
	"github.com/ironsheep/plate-ocr/internal/plate"
	"github.com/ironsheep/plate-ocr/internal/trace"
	"github.com/spf13/cobra"
)

// readOutput is the JSON document printed per image.
type readOutput struct {
	Image  string                 `json:"image"`
	Plates []plate.AttemptResult  `json:"plates"`
	Stats  pipeline.StatsSnapshot `json:"stats"`
	Engine string                 `json:"engine"`
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <image>...",
		Short: "Read the characters of cropped plate images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("attempts") {
				cfg.Pipeline.Attempts, _ = flags.GetInt("attempts")
			}
			if flags.Changed("workers") {
				cfg.Pipeline.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("trace-dir") {
				cfg.Pipeline.TraceDir, _ = flags.GetString("trace-dir")
			}

			var sink trace.Sink
			if cfg.Pipeline.TraceDir != "" {
				d, err := trace.NewDirSink(cfg.Pipeline.TraceDir, slog.Default())
				if err != nil {
					return err
				}
				sink = d
			}

			factory := ocr.NewFactory(ocr.Options{
				Language:       cfg.OCR.Language,
				TessdataPrefix: cfg.OCR.TessdataPrefix,
				Whitelist:      cfg.OCR.Whitelist,
			})
			// The same crop may be listed more than once; it is decoded once.
			cache := imaging.NewGrayCache()

			for _, path := range args {
				cached := cache.Contains(path)
				gray, err := cache.LoadGray(path)
				if err != nil {
					return err
				}
				slog.Debug("loaded plate crop", "image", path, "cached", cached, "size", gray.Bounds().Size())

				reader, err := pipeline.NewReader(cfg, slog.Default().With("image", path), trace.Scoped(sink, path))
				if err != nil {
					return err
				}
				plates, err := reader.Read(cmd.Context(), factory, gray, nil)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				out := readOutput{Image: path, Plates: plates, Stats: reader.Stats(), Engine: ocr.Version()}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("attempts", 0, "Number of recognition attempts per image (default from config)")
	cmd.Flags().Int("workers", 0, "Number of attempts run in parallel (default from config)")
	cmd.Flags().String("trace-dir", "", "Write intermediate stage images to this directory")
	return cmd
}
