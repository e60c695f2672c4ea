package cmd

import (
	"fmt"
	"strconv"

	"github.com/MeKo-Tech/hueswap/internal/colorspace"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
)

var hueCmd = &cobra.Command{
	Use:   "hue (R G B | #RRGGBB)",
	Short: "Print the hue, saturation and lightness of a color",
	Long: `Print the HSL components of a color, to help pick rule bands.

Examples:
  hueswap hue 255 128 0
  hueswap hue '#ff8000'`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("expected R G B or a hex color, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		r, g, b, err := parseColorArgs(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeColor(r, g, b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hueCmd)
}

func parseColorArgs(args []string) (r, g, b uint8, err error) {
	if len(args) == 1 {
		c, err := colorful.Hex(args[0])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", args[0], err)
		}
		r, g, b = c.RGB255()
		return r, g, b, nil
	}

	var ch [3]uint8
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid channel %q: must be 0-255", a)
		}
		ch[i] = uint8(v)
	}
	return ch[0], ch[1], ch[2], nil
}

func describeColor(r, g, b uint8) string {
	h, s, l := colorspace.RGBToHSL(r, g, b)
	return fmt.Sprintf("#%02x%02x%02x hue=%.2f saturation=%.1f%% lightness=%.1f%%",
		r, g, b, h*360, s*100, l*100)
}
