package match

import (
	"math"
	"testing"
)

func TestParseSalaryRange(t *testing.T) {
	cases := []struct {
		text      string
		low, high int
		ok        bool
	}{
		{"$70,000 - $90,000", 70000, 90000, true},
		{"$70k-$90k", 70000, 90000, true},
		{"120,000", 120000, 120000, true},
		{"up to 95K per year", 95000, 95000, true},
		{"Competitive pay", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tc := range cases {
		low, high, ok := ParseSalaryRange(tc.text)
		if ok != tc.ok || low != tc.low || high != tc.high {
			t.Fatalf("ParseSalaryRange(%q) = %d, %d, %v; want %d, %d, %v",
				tc.text, low, high, ok, tc.low, tc.high, tc.ok)
		}
	}
}

func TestSalaryCredit(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		floor int
		want  float64
	}{
		{"no floor", "whatever", 0, 25},
		{"unparseable neutral", "Competitive", 80000, 12.5},
		{"range above floor", "$90,000 - $120,000", 80000, 25},
		{"straddling range", "$70,000 - $90,000", 80000, 12.5},
		{"just below floor", "$75,000", 80000, 25 * (75000.0 - 72000.0) / 8000.0},
		{"far below floor", "$40,000", 80000, 0},
	}

	for _, tc := range cases {
		if got := salaryCredit(tc.text, tc.floor); math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("%s: salaryCredit(%q, %d) = %v, want %v", tc.name, tc.text, tc.floor, got, tc.want)
		}
	}
}
