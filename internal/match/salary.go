package match

import (
	"regexp"
	"strconv"
	"strings"
)

var salaryNumberPattern = regexp.MustCompile(`\$?\s*(\d[\d,]*)(?:\s*([kK]))?`)

// ParseSalaryRange extracts a best-effort numeric range from unstructured
// salary text. Returns ok=false when no usable number is present.
func ParseSalaryRange(text string) (low, high int, ok bool) {
	var numbers []int
	for _, m := range salaryNumberPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		if m[2] != "" {
			value *= 1000
		}
		numbers = append(numbers, value)
	}
	if len(numbers) == 0 {
		return 0, 0, false
	}
	low, high = numbers[0], numbers[0]
	for _, n := range numbers[1:] {
		if n < low {
			low = n
		}
		if n > high {
			high = n
		}
	}
	return low, high, true
}

// salaryCredit maps a posting salary against the profile floor onto
// [0, maxSalaryPoints]. Unparseable text earns half credit so postings that
// omit compensation are not penalized as hard misses.
func salaryCredit(salaryText string, floor int) float64 {
	if floor <= 0 {
		return maxSalaryPoints
	}
	low, high, ok := ParseSalaryRange(salaryText)
	if !ok {
		return maxSalaryPoints / 2
	}
	f := float64(floor)
	switch {
	case low >= floor:
		return maxSalaryPoints
	case high >= floor:
		// The range straddles the floor: credit the fraction at or above it.
		if high == low {
			return maxSalaryPoints
		}
		return maxSalaryPoints * float64(high-floor) / float64(high-low)
	case float64(high) >= 0.9*f:
		// Ceiling below the floor but within 10%: linear ramp to zero.
		return maxSalaryPoints * (float64(high) - 0.9*f) / (0.1 * f)
	default:
		return 0
	}
}
