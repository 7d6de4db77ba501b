package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRate(t *testing.T) {
	if got := Rate(decimal.NewFromInt(5)); !got.Equal(decimal.NewFromFloat(0.05)) {
		t.Fatalf("Rate(5) = %s, want 0.05", got)
	}
}

func TestAnnual(t *testing.T) {
	if got := Annual(decimal.NewFromInt(2500)); !got.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("Annual(2500) = %s, want 30000", got)
	}
}

func TestCompound(t *testing.T) {
	tests := []struct {
		name  string
		rate  decimal.Decimal
		years int
		want  decimal.Decimal
	}{
		{"zero years", decimal.NewFromFloat(0.05), 0, decimal.NewFromInt(1)},
		{"zero rate", decimal.Zero, 10, decimal.NewFromInt(1)},
		{"one year", decimal.NewFromFloat(0.05), 1, decimal.NewFromFloat(1.05)},
		{"two years", decimal.NewFromFloat(0.05), 2, decimal.NewFromFloat(1.1025)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compound(tt.rate, tt.years); !got.Equal(tt.want) {
				t.Fatalf("Compound(%s, %d) = %s, want %s", tt.rate, tt.years, got, tt.want)
			}
		})
	}
}

func TestRoundCents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.004", "10"},
		{"10.005", "10.01"},
		{"37735.849056", "37735.85"},
	}
	for _, tt := range tests {
		in := decimal.RequireFromString(tt.in)
		want := decimal.RequireFromString(tt.want)
		if got := RoundCents(in); !got.Equal(want) {
			t.Errorf("RoundCents(%s) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestCheckBalance(t *testing.T) {
	if err := CheckBalance("401k", decimal.NewFromInt(1_000_000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := CheckBalance("401k", decimal.New(2, 18))
	if !errors.Is(err, ErrNumeric) {
		t.Fatalf("got %v, want ErrNumeric", err)
	}
}
