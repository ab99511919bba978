package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	amountPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(k|l|lac|lacs|lakh|lakhs|cr|crore|crores)?$`)
	salaryPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(k|lpa|l|lac|lacs|lakh|lakhs|cr|crore|crores)?\b`)

	amountReplacer = strings.NewReplacer("₹", "", ",", "", " ", "", "\u00a0", "", "/-", "")
	displayPrinter = message.NewPrinter(language.MustParse("en-IN"))
)

func unitMultiplier(unit string) float64 {
	switch unit {
	case "k":
		return 1e3
	case "l", "lac", "lacs", "lakh", "lakhs", "lpa":
		return 1e5
	case "cr", "crore", "crores":
		return 1e7
	}
	return 1
}

// ParseAmount normalizes an amount like "₹50,000", "50k" or "1.5 lakh" to
// rupees. Unparseable input yields 0.
func ParseAmount(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"inr", "rs.", "rs"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = amountReplacer.Replace(s)

	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v * unitMultiplier(m[2])
}

// FormatAmount renders rupees for display: crore above 1e7, lakh above 1e5,
// grouped digits below.
func FormatAmount(v float64) string {
	switch {
	case v >= 1e7:
		return fmt.Sprintf("₹%.1f Cr", v/1e7)
	case v >= 1e5:
		return fmt.Sprintf("₹%.1f Lakh", v/1e5)
	default:
		return displayPrinter.Sprintf("₹%d", int64(math.Round(v)))
	}
}

// ParseSalaryCeiling returns the upper bound of a free-text salary range such
// as "₹4-8 LPA", taking the last number and its unit. Unparseable input
// yields 0.
func ParseSalaryCeiling(s string) float64 {
	matches := salaryPattern.FindAllStringSubmatch(strings.ToLower(s), -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	v, err := strconv.ParseFloat(strings.ReplaceAll(last[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	unit := last[2]
	if unit == "" {
		// "4 lakh - 8": reuse the nearest unit written earlier
		unit = trailingUnit(matches)
	}
	return v * unitMultiplier(unit)
}

func trailingUnit(matches [][]string) string {
	for i := len(matches) - 1; i >= 0; i-- {
		if matches[i][2] != "" {
			return matches[i][2]
		}
	}
	return ""
}
