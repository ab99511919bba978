package catalog_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/careercompass/internal/catalog"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"₹50,000", 50000},
		{"50k", 50000},
		{"50K", 50000},
		{"abc", 0},
		{"", 0},
		{"Rs. 1,20,000", 120000},
		{"INR 7500", 7500},
		{"1.5 lakh", 150000},
		{"2 Lakhs", 200000},
		{"1 crore", 1e7},
		{"₹10,000/-", 10000},
		{"up to 50k", 0},
		{"-500", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := catalog.ParseAmount(tt.in); got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{50000, "₹50,000"},
		{999, "₹999"},
		{150000, "₹1.5 Lakh"},
		{100000, "₹1.0 Lakh"},
		{25000000, "₹2.5 Cr"},
		{0, "₹0"},
	}

	for _, tt := range tests {
		if got := catalog.FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSalaryCeiling(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"₹4-8 LPA", 8e5},
		{"4 lakh - 8", 8e5},
		{"₹25,000 - ₹40,000 per month", 40000},
		{"Not disclosed", 0},
		{"1-2 crore", 2e7},
	}

	for _, tt := range tests {
		if got := catalog.ParseSalaryCeiling(tt.in); got != tt.want {
			t.Errorf("ParseSalaryCeiling(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDeadline(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		in     string
		ok     bool
		year   int
		month  time.Month
		dayNum int
	}{
		{"2026-11-30", true, 2026, time.November, 30},
		{"2026-11-30T18:00:00Z", true, 2026, time.November, 30},
		{"30/11/2026", true, 2026, time.November, 30},
		{"November 30, 2026", true, 2026, time.November, 30},
		{"30 Nov 2026", true, 2026, time.November, 30},
		{"", false, 0, 0, 0},
		{"next month", false, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := catalog.ParseDeadline(tt.in, ist)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Year() != tt.year || got.Month() != tt.month || got.Day() != tt.dayNum {
				t.Errorf("ParseDeadline(%q) = %v", tt.in, got)
			}
		})
	}

	got, _ := catalog.ParseDeadline("2026-11-30", ist)
	if got.Location() != ist {
		t.Errorf("date-only deadline location = %v, want IST", got.Location())
	}
}

func TestDaysUntil(t *testing.T) {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		deadline time.Time
		want     int
	}{
		{base, 0},
		{base.Add(time.Hour), 1},
		{base.Add(-time.Hour), 0},
		{base.Add(-25 * time.Hour), -1},
		{base.Add(48 * time.Hour), 2},
	}
	for _, tt := range tests {
		if got := catalog.DaysUntil(tt.deadline, base); got != tt.want {
			t.Errorf("DaysUntil(%v) = %d, want %d", tt.deadline, got, tt.want)
		}
	}
}
