package recolor

import "fmt"

// InvalidBufferError reports a pixel buffer whose length is not a whole number of RGBA pixels.
type InvalidBufferError struct {
	Len int
}

func (e *InvalidBufferError) Error() string {
	return fmt.Sprintf("invalid pixel buffer: length %d is not a multiple of %d", e.Len, BytesPerPixel)
}

// InvalidRuleError reports a rule that cannot be applied.
// Index is the rule's position in the sequence passed to Recolor.
type InvalidRuleError struct {
	Rule   Rule
	Reason string
	Index  int
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule #%d (%s): %s", e.Index, e.Rule, e.Reason)
}
