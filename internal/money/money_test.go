package money

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10", 1000},
		{"10.00", 1000},
		{" 4.5 ", 450},
		{"$3.25", 325},
		{"0.01", 1},
		{"1e2", 10000},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-5", "1.005", "NaN", "$", "100000000000000"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Parse(%q): expected ErrInvalidAmount, got %v", in, err)
		}
	}
}

func TestFromFloat(t *testing.T) {
	got, err := FromFloat(10.5)
	if err != nil || got != 1050 {
		t.Fatalf("FromFloat(10.5) = %d, %v", got, err)
	}
	if _, err := FromFloat(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromFloat(0): expected ErrInvalidAmount, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(600); got != "$6.00" {
		t.Errorf("Format(600) = %q", got)
	}
	if got := Format(-125); got != "-$1.25" {
		t.Errorf("Format(-125) = %q", got)
	}
	if got := String(5); got != "0.05" {
		t.Errorf("String(5) = %q", got)
	}
}

func TestWholeUnits(t *testing.T) {
	if got := WholeUnits(1099); got != 10 {
		t.Errorf("WholeUnits(1099) = %d, want 10", got)
	}
	if got := WholeUnits(99); got != 0 {
		t.Errorf("WholeUnits(99) = %d, want 0", got)
	}
}
