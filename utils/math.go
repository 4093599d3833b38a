package utils

import "math"

// Percent returns part/total as a whole-number percentage, rounded to the
// nearest integer and capped at 100. A zero total yields 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) / float64(total) * 100))
	if p > 100 {
		p = 100
	}
	return p
}
