package core

import (
	"errors"
	"testing"
)

func TestFormatCOP(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$ 0 COP"},
		{999, "$ 999 COP"},
		{1000, "$ 1.000 COP"},
		{74000, "$ 74.000 COP"},
		{1234567.6, "$ 1.234.568 COP"},
		{-2500, "-$ 2.500 COP"},
	}
	for _, tc := range cases {
		if got := FormatCOP(tc.in); got != tc.want {
			t.Errorf("FormatCOP(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3", 3, true},
		{"1.5", 1.5, true},
		{"1,5", 1.5, true},
		{"", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseQuantity(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("ParseQuantity(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("ParseQuantity(%q) expected ErrInvalidQuantity, got %v", tc.in, err)
		}
	}
}

func TestParseAmountOrZero(t *testing.T) {
	cases := map[string]float64{
		"8000":         8000,
		"10.000":       10000,
		"10,000":       10000,
		"$ 1.234.000":  1234000,
		"$ 74.000 COP": 74000,
		"12.5":         12.5,
		"not a number": 0,
		"-5":           0,
		"":             0,
	}
	for in, want := range cases {
		if got := ParseAmountOrZero(in); got != want {
			t.Errorf("ParseAmountOrZero(%q) = %v, want %v", in, got, want)
		}
	}
}
