package recolor

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultRange is the half-width of the hue band, in degrees, used when a rule leaves Range at zero.
	DefaultRange = 20

	// AlphaThreshold is the lowest alpha value a pixel needs to be considered for recoloring.
	AlphaThreshold = 200
)

// Rule replaces hues inside the band (From-Range, From+Range) with the hue To.
// All values are in degrees. A zero Range means DefaultRange.
//
// The band does not wrap around 0°/360° unless Wrap is set: a rule with From 0 and
// Range 15 ignores hues in (345, 360) by default.
type Rule struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Range float64 `json:"range,omitempty"`
	Wrap  bool    `json:"wrap,omitempty"`
}

// Normalize returns the rule with From and To folded into [0, 360) and the default range applied.
func (r Rule) Normalize() Rule {
	r.From = foldDegrees(r.From)
	r.To = foldDegrees(r.To)
	if r.Range == 0 {
		r.Range = DefaultRange
	}
	return r
}

// Validate reports why the rule cannot be applied, or "" if it can.
func (r Rule) Validate() string {
	switch {
	case !finite(r.From):
		return "from must be a finite number"
	case !finite(r.To):
		return "to must be a finite number"
	case !finite(r.Range):
		return "range must be a finite number"
	case r.Range < 0:
		return "range must not be negative"
	}
	return ""
}

// Matches reports whether a hue (degrees) falls strictly inside the rule's band.
// The rule must already be normalized.
func (r Rule) Matches(hue float64) bool {
	if !r.Wrap {
		return hue > r.From-r.Range && hue < r.From+r.Range
	}

	d := math.Mod(math.Abs(hue-r.From), 360)
	if d > 180 {
		d = 360 - d
	}
	return d < r.Range
}

// String formats the rule in the FROM:TO:RANGE[:wrap] form accepted by ParseRule.
func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString(formatDegrees(r.From))
	sb.WriteByte(':')
	sb.WriteString(formatDegrees(r.To))
	sb.WriteByte(':')
	if r.Range == 0 {
		sb.WriteString(formatDegrees(DefaultRange))
	} else {
		sb.WriteString(formatDegrees(r.Range))
	}
	if r.Wrap {
		sb.WriteString(":wrap")
	}
	return sb.String()
}

func foldDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	// -1e-17 folds to 360 after the addition above
	if v >= 360 {
		v = 0
	}
	return v
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// prepareRules validates and normalizes a rule sequence.
func prepareRules(rules []Rule) ([]Rule, error) {
	prepared := make([]Rule, len(rules))
	for i, r := range rules {
		if reason := r.Validate(); reason != "" {
			return nil, &InvalidRuleError{Index: i, Rule: r, Reason: reason}
		}
		prepared[i] = r.Normalize()
	}
	return prepared, nil
}
