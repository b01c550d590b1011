package oa

import "testing"

func TestFormatJSNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-42, "-42"},
		{1.5, "1.5"},
		{0.000001, "0.000001"},
		{0.0000001, "1e-7"},
		{1e21, "1e+21"},
		{123456789012345680000, "123456789012345680000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatJSNumber(tt.in); got != tt.want {
				t.Errorf("formatJSNumber(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"<b>&", `"<b>&"`},
		{"line\nbreak", `"line\nbreak"`},
		{"sep\u2028", "\"sep\u2028\""},
		{`quote"`, `"quote\""`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := jsQuote(tt.in); got != tt.want {
				t.Errorf("jsQuote(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
