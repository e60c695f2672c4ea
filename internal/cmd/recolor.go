package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/hueswap/assets"
	"github.com/MeKo-Tech/hueswap/internal/imageio"
	"github.com/MeKo-Tech/hueswap/internal/recolor"
	"github.com/MeKo-Tech/hueswap/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var recolorCmd = &cobra.Command{
	Use:   "recolor",
	Short: "Recolor an image file",
	Long: `Recolor an image file by applying hue swap rules in order.

Each rule repaints pixels with alpha >= 200 whose hue lies strictly within
RANGE degrees of FROM, moving them to hue TO. Later rules see the output of
earlier ones.

Examples:
  hueswap recolor -i logo.png -r 0:120
  hueswap recolor -i logo.png -o out.png -r '#ff0000:#0000ff' -r 350:200:15:wrap
  hueswap recolor -i photo.jpg --rules-file rules.json --max-size 1024
  hueswap recolor -i map.png --preset warm-to-cool

Rules are applied in this order: --preset, --rule, --rules-file.`,
	RunE: runRecolor,
}

func init() {
	rootCmd.AddCommand(recolorCmd)

	recolorCmd.Flags().StringP("input", "i", "", "Input image (png, jpeg, gif, bmp, tiff, webp)")
	recolorCmd.Flags().StringP("output", "o", "", "Output image (default: <input>-recolored.png)")
	recolorCmd.Flags().StringArrayP("rule", "r", nil, "Rule FROM:TO[:RANGE][:wrap] (repeatable, applied in order)")
	recolorCmd.Flags().String("rules-file", "", "JSON file with rules, applied after --rule ones")
	recolorCmd.Flags().String("preset", "", "Built-in rule preset ("+strings.Join(assets.PresetNames(), ", ")+")")
	recolorCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	recolorCmd.Flags().Int("max-size", 0, "Downscale so neither side exceeds this many pixels (0 keeps the size)")
	recolorCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	recolorCmd.Flags().Bool("progress", false, "Show progress bar while recoloring")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"recolor.input", "input"},
		{"recolor.output", "output"},
		{"recolor.rules", "rule"},
		{"recolor.rules_file", "rules-file"},
		{"recolor.preset", "preset"},
		{"recolor.workers", "workers"},
		{"recolor.max_size", "max-size"},
		{"recolor.png_compression", "png-compression"},
		{"recolor.progress", "progress"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, recolorCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRecolor(cmd *cobra.Command, args []string) error {
	input := viper.GetString("recolor.input")
	output := viper.GetString("recolor.output")
	specs := viper.GetStringSlice("recolor.rules")
	rulesFile := viper.GetString("recolor.rules_file")
	preset := viper.GetString("recolor.preset")
	workers := viper.GetInt("recolor.workers")
	maxSize := viper.GetInt("recolor.max_size")
	pngCompression := viper.GetString("recolor.png_compression")
	showProgress := viper.GetBool("recolor.progress")

	if logger == nil {
		initLogging()
	}

	if input == "" {
		return fmt.Errorf("--input is required")
	}
	if output == "" {
		output = defaultOutputPath(input)
	}

	level, err := imageio.ParsePNGCompression(pngCompression)
	if err != nil {
		return err
	}

	rules, err := loadRules(preset, specs, rulesFile)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("no rules given: use --rule, --rules-file, --preset or recolor.rules in the config")
	}

	img, err := imageio.Load(input)
	if err != nil {
		return err
	}
	origBounds := img.Bounds()
	img = imageio.Downscale(img, maxSize)

	ruleStrings := make([]string, len(rules))
	for i, r := range rules {
		ruleStrings[i] = r.Normalize().String()
	}

	logger.Info("Starting recolor",
		"input", input,
		"output", output,
		"size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"downscaled", img.Bounds() != origBounds,
		"rules", strings.Join(ruleStrings, " "),
	)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := worker.NewProgress(0, "chunks", showProgress)
	rc := recolor.New(recolor.Config{
		Workers:    workers,
		Logger:     logger,
		OnProgress: progress.Callback(),
	})

	stats, err := rc.Recolor(ctx, img.Pix, rules)
	progress.Done()
	if err != nil {
		return fmt.Errorf("failed to recolor %s: %w", input, err)
	}
	logger.Debug(progress.Summary())

	for i, r := range rules {
		logger.Debug("Rule result", "rule", ruleStrings[i], "wrap", r.Wrap, "matched", stats.Matched[i])
	}

	if err := imageio.Save(output, img, level); err != nil {
		return err
	}

	logger.Info("Image recolored",
		"output", output,
		"pixels", stats.Pixels,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"ms", stats.Elapsed.Milliseconds(),
	)

	return nil
}

// loadRules combines an optional preset, command-line rule strings and an
// optional JSON rules file, in that order.
func loadRules(preset string, specs []string, rulesFile string) ([]recolor.Rule, error) {
	var rules []recolor.Rule
	if preset != "" {
		data, err := assets.Preset(preset)
		if err != nil {
			return nil, err
		}
		if rules, err = recolor.UnmarshalRules(data); err != nil {
			return nil, fmt.Errorf("preset %s: %w", preset, err)
		}
	}

	flagRules, err := recolor.ParseRules(specs)
	if err != nil {
		return nil, err
	}
	rules = append(rules, flagRules...)

	if rulesFile == "" {
		return rules, nil
	}

	data, err := os.ReadFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	fileRules, err := recolor.UnmarshalRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rulesFile, err)
	}

	return append(rules, fileRules...), nil
}

// defaultOutputPath maps photo.jpg to photo-recolored.png in the same directory.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-recolored.png"
}
