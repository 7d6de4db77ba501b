package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAssetClassification(t *testing.T) {
	tests := []struct {
		typ        IncomeType
		hasBalance bool
		deferred   bool
		free       bool
	}{
		{Qualified, true, true, false},
		{Roth, true, false, true},
		{NonQualified, true, false, false},
		{Annuity, true, false, false},
		{SocialSecurity, false, false, false},
		{Pension, false, false, false},
		{Wages, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			a := Asset{Type: tt.typ}
			if a.HasBalance() != tt.hasBalance {
				t.Errorf("HasBalance() = %v, want %v", a.HasBalance(), tt.hasBalance)
			}
			if a.IsTaxDeferred() != tt.deferred {
				t.Errorf("IsTaxDeferred() = %v, want %v", a.IsTaxDeferred(), tt.deferred)
			}
			if a.IsTaxFree() != tt.free {
				t.Errorf("IsTaxFree() = %v, want %v", a.IsTaxFree(), tt.free)
			}
		})
	}
}

func TestAssetActiveAt(t *testing.T) {
	a := Asset{Type: Qualified, AgeToBegin: 65, AgeToEnd: 70}
	for age, want := range map[int]bool{64: false, 65: true, 70: true, 71: false} {
		if got := a.ActiveAt(age); got != want {
			t.Errorf("ActiveAt(%d) = %v, want %v", age, got, want)
		}
	}

	open := Asset{Type: Qualified, AgeToBegin: 65}
	if !open.ActiveAt(119) {
		t.Error("open-ended window should remain active at 119")
	}
}

func TestAssetLabel(t *testing.T) {
	tests := []struct {
		name string
		a    Asset
		want string
	}{
		{"named", Asset{Name: "My 401k", Type: Qualified}, "my_401k"},
		{"fallback to type", Asset{Type: SocialSecurity}, "social_security"},
		{"trimmed", Asset{Name: "  Roth IRA ", Type: Roth}, "roth_ira"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Label(); got != tt.want {
				t.Fatalf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetValidate(t *testing.T) {
	valid := Asset{
		Name:    "401k",
		Type:    Qualified,
		Balance: decimal.NewFromInt(500000),
	}

	tests := []struct {
		name    string
		mutate  func(*Asset)
		wantErr error
	}{
		{"valid", func(a *Asset) {}, nil},
		{"unknown type", func(a *Asset) { a.Type = "Crypto" }, ErrUnknownIncomeType},
		{"negative balance", func(a *Asset) { a.Balance = decimal.NewFromInt(-1) }, ErrNegativeBalance},
		{"negative monthly amount", func(a *Asset) { a.MonthlyAmount = decimal.NewFromInt(-100) }, ErrNegativeAmount},
		{"spouse owner without spouse", func(a *Asset) { a.Owner = OwnerSpouse }, ErrNoSpouse},
		{"exclusion ratio above one", func(a *Asset) {
			a.Type = Annuity
			a.ExclusionRatio = decimal.NewFromFloat(1.5)
		}, ErrBadExclusionRatio},
		{"window ends before begin", func(a *Asset) {
			a.AgeToBegin = 70
			a.AgeToEnd = 65
		}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate(false)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("spouse owner with spouse", func(t *testing.T) {
		a := valid
		a.Owner = OwnerSpouse
		if err := a.Validate(true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestAssetConversionCap(t *testing.T) {
	a := Asset{Type: Qualified, Balance: decimal.NewFromInt(300000)}
	if got := a.ConversionCap(); !got.Equal(a.Balance) {
		t.Fatalf("uncapped ConversionCap() = %s, want %s", got, a.Balance)
	}
	a.MaxToConvert = decimal.NewFromInt(100000)
	if got := a.ConversionCap(); !got.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("capped ConversionCap() = %s, want 100000", got)
	}
	a.MaxToConvert = decimal.NewFromInt(400000)
	if got := a.ConversionCap(); !got.Equal(a.Balance) {
		t.Fatalf("cap above balance: ConversionCap() = %s, want %s", got, a.Balance)
	}
}
