package recolor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/hueswap/internal/colorspace"
	"github.com/lucasb-eyer/go-colorful"
)

// ParseRule parses a rule of the form FROM:TO[:RANGE][:wrap].
//
// FROM and TO are hues in degrees ("0", "212.5") or hex colors ("#f00", "#00ff80");
// a hex color stands for its own hue. RANGE defaults to DefaultRange.
//
//	0:120          reds become greens
//	#ff0000:#0000ff:10
//	350:200:20:wrap
func ParseRule(s string) (Rule, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Rule{}, fmt.Errorf("rule %q: expected FROM:TO[:RANGE][:wrap]", s)
	}

	var r Rule
	if last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1])); last == "wrap" {
		r.Wrap = true
		parts = parts[:len(parts)-1]
		if len(parts) < 2 {
			return Rule{}, fmt.Errorf("rule %q: expected FROM:TO before wrap", s)
		}
	}
	if len(parts) > 3 {
		return Rule{}, fmt.Errorf("rule %q: unexpected field %q", s, parts[3])
	}

	var err error
	if r.From, err = parseHue(parts[0]); err != nil {
		return Rule{}, fmt.Errorf("rule %q: from: %w", s, err)
	}
	if r.To, err = parseHue(parts[1]); err != nil {
		return Rule{}, fmt.Errorf("rule %q: to: %w", s, err)
	}
	if len(parts) == 3 {
		if r.Range, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
			return Rule{}, fmt.Errorf("rule %q: range: %w", s, err)
		}
	}

	if reason := r.Validate(); reason != "" {
		return Rule{}, fmt.Errorf("rule %q: %s", s, reason)
	}

	return r, nil
}

// ParseRules parses each string with ParseRule, keeping their order.
func ParseRules(specs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		if strings.TrimSpace(s) == "" {
			continue
		}
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// UnmarshalRules decodes a JSON rule list. A single JSON object is accepted as a one-rule list.
func UnmarshalRules(data []byte) ([]Rule, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty rules document")
	}

	if data[0] == '{' {
		var r Rule
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode rule: %w", err)
		}
		return []Rule{r}, nil
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	return rules, nil
}

func parseHue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return 0, err
		}
		r, g, b := c.RGB255()
		return colorspace.HueDegrees(r, g, b), nil
	}
	return strconv.ParseFloat(s, 64)
}
