// Package config defines the recognition settings: physical character sizes,
// segmentation thresholds, OCR, post-processing, aggregation, binarization,
// and attempt scheduling.
//
// Settings start from Default, are overlaid by an optional YAML file (Load),
// then by PLATE_OCR_* environment variables (ApplyEnv).
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Merge strategies for aggregation.
const (
	StrategyCombine  = "combine"
	StrategyPickBest = "pick-best"
)

// LineSpec is the physical character size of one text line.
type LineSpec struct {
	CharHeightMM float64 `yaml:"char_height_mm"`
	CharWidthMM  float64 `yaml:"char_width_mm"`
}

// Segmentation holds the character segmenter thresholds.
type Segmentation struct {
	MinBoxWidthPx           int     `yaml:"min_box_width_px"`
	MinCharHeightPercent    float64 `yaml:"min_char_height_percent"`
	MaxCharWidthRatio       float64 `yaml:"max_char_width_ratio"`
	MinSpeckleHeightPercent float64 `yaml:"min_speckle_height_percent"`
}

// OCR configures the Tesseract engine.
type OCR struct {
	Language       string  `yaml:"language"`
	TessdataPrefix string  `yaml:"tessdata_prefix"`
	Whitelist      string  `yaml:"whitelist"`
	MinFontSize    float64 `yaml:"min_font_size"`
}

// Template is a plate format for one region, as a regular expression
// matched against the whole candidate string.
type Template struct {
	Region  string `yaml:"region"`
	Pattern string `yaml:"pattern"`
}

// PostProcess configures per-position letter accumulation.
type PostProcess struct {
	MinCharacters       int        `yaml:"min_characters"`
	MaxCharacters       int        `yaml:"max_characters"`
	MinConfidence       float64    `yaml:"min_confidence"`
	ConfidenceSkipLevel float64    `yaml:"confidence_skip_level"`
	TopN                int        `yaml:"top_n"`
	Templates           []Template `yaml:"templates"`
}

// Aggregation configures the result aggregator.
type Aggregation struct {
	Strategy      string  `yaml:"strategy"`
	TopN          int     `yaml:"top_n"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// Binarize configures the threshold set produced for each attempt.
type Binarize struct {
	Levels         []uint8 `yaml:"levels"`
	Adaptive       bool    `yaml:"adaptive"`
	AdaptiveRadius float64 `yaml:"adaptive_radius"`
	AdaptiveOffset int     `yaml:"adaptive_offset"`
}

// Pipeline configures attempt scheduling.
type Pipeline struct {
	Attempts int    `yaml:"attempts"`
	Workers  int    `yaml:"workers"`
	TraceDir string `yaml:"trace_dir"`
}

// Config is the full recognition configuration.
type Config struct {
	Lines        []LineSpec   `yaml:"lines"`
	Segmentation Segmentation `yaml:"segmentation"`
	OCR          OCR          `yaml:"ocr"`
	PostProcess  PostProcess  `yaml:"postprocess"`
	Aggregation  Aggregation  `yaml:"aggregation"`
	Binarize     Binarize     `yaml:"binarize"`
	Pipeline     Pipeline     `yaml:"pipeline"`
}

// Default returns settings tuned for single-line US plates.
func Default() *Config {
	return &Config{
		Lines: []LineSpec{{CharHeightMM: 70, CharWidthMM: 35}},
		Segmentation: Segmentation{
			MinBoxWidthPx:           4,
			MinCharHeightPercent:    0.5,
			MaxCharWidthRatio:       1.35,
			MinSpeckleHeightPercent: 0.3,
		},
		OCR: OCR{
			Language:    "eng",
			Whitelist:   "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
			MinFontSize: 10,
		},
		PostProcess: PostProcess{
			MinCharacters:       4,
			MaxCharacters:       8,
			MinConfidence:       65,
			ConfidenceSkipLevel: 80,
			TopN:                10,
			Templates: []Template{
				{Region: "us", Pattern: `^[A-Z0-9]{5,7}$`},
			},
		},
		Aggregation: Aggregation{
			Strategy:      StrategyCombine,
			TopN:          10,
			MinConfidence: 50,
		},
		Binarize: Binarize{
			Levels:         []uint8{90, 128, 166},
			Adaptive:       true,
			AdaptiveRadius: 8,
			AdaptiveOffset: 10,
		},
		Pipeline: Pipeline{
			Attempts: 3,
			Workers:  2,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays PLATE_OCR_* environment variables.
func (c *Config) ApplyEnv() {
	c.OCR.Language = getEnvOrDefault("PLATE_OCR_LANGUAGE", c.OCR.Language)
	c.OCR.TessdataPrefix = getEnvOrDefault("PLATE_OCR_TESSDATA_PREFIX", c.OCR.TessdataPrefix)
	c.OCR.Whitelist = getEnvOrDefault("PLATE_OCR_WHITELIST", c.OCR.Whitelist)
	c.Aggregation.Strategy = getEnvOrDefault("PLATE_OCR_MERGE_STRATEGY", c.Aggregation.Strategy)
	c.Aggregation.TopN = getEnvAsIntOrDefault("PLATE_OCR_TOPN", c.Aggregation.TopN)
	c.PostProcess.MinConfidence = getEnvAsFloatOrDefault("PLATE_OCR_MIN_CONFIDENCE", c.PostProcess.MinConfidence)
	c.Pipeline.Attempts = getEnvAsIntOrDefault("PLATE_OCR_ATTEMPTS", c.Pipeline.Attempts)
	c.Pipeline.Workers = getEnvAsIntOrDefault("PLATE_OCR_WORKERS", c.Pipeline.Workers)
	c.Pipeline.TraceDir = getEnvOrDefault("PLATE_OCR_TRACE_DIR", c.Pipeline.TraceDir)
}

// Validate checks the configuration for values no stage can work with.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Lines) == 0 {
		problems = append(problems, "at least one line spec is required")
	}
	for i, l := range c.Lines {
		if l.CharHeightMM <= 0 || l.CharWidthMM <= 0 {
			problems = append(problems, fmt.Sprintf("lines[%d]: character dimensions must be positive", i))
		}
	}
	if c.PostProcess.MaxCharacters < 1 {
		problems = append(problems, "postprocess.max_characters must be at least 1")
	}
	if c.PostProcess.TopN < 1 || c.Aggregation.TopN < 1 {
		problems = append(problems, "top_n must be at least 1")
	}
	switch c.Aggregation.Strategy {
	case StrategyCombine, StrategyPickBest:
	default:
		problems = append(problems, fmt.Sprintf("unknown aggregation strategy %q", c.Aggregation.Strategy))
	}
	for _, t := range c.PostProcess.Templates {
		if _, err := regexp.Compile(t.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf("template %s: %v", t.Region, err))
		}
	}
	if len(c.Binarize.Levels) == 0 && !c.Binarize.Adaptive {
		problems = append(problems, "binarize needs at least one level or adaptive mode")
	}
	if c.Pipeline.Attempts < 1 {
		problems = append(problems, "pipeline.attempts must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// LineSpecFor returns the character size for line i. Lines beyond the
// configured list reuse the last entry.
func (c *Config) LineSpecFor(i int) LineSpec {
	if len(c.Lines) == 0 {
		return LineSpec{CharHeightMM: 70, CharWidthMM: 35}
	}
	return c.Lines[min(i, len(c.Lines)-1)]
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
