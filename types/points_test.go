package types

import (
	"encoding/json"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Color
		wantErr bool
	}{
		{"red", "red", ColorRed, false},
		{"green", "green", ColorGreen, false},
		{"blue", "blue", ColorBlue, false},
		{"uppercase", "BLUE", ColorBlue, false},
		{"mixed case", "Red", ColorRed, false},
		{"unknown", "purple", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{"attendance", "attendance", CategoryAttendance, false},
		{"academic", "academic", CategoryAcademic, false},
		{"behavior", "behavior", CategoryBehavior, false},
		{"event", "event", CategoryEvent, false},
		{"peer", "peer", CategoryPeer, false},
		{"uppercase", "PEER", CategoryPeer, false},
		{"redemption is internal", "redemption", "", true},
		{"unknown", "bribery", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCategory(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBalancesArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Balances
		expected Balances
	}{
		{"Add red", func() Balances { return ZeroBalances().Add(ColorRed, 10) }, Balances{Red: 10}},
		{"Add green", func() Balances { return ZeroBalances().Add(ColorGreen, 5) }, Balances{Green: 5}},
		{"Add negative", func() Balances { return Balances{Blue: 50}.Add(ColorBlue, -20) }, Balances{Blue: 30}},
		{"Chained", func() Balances {
			return ZeroBalances().Add(ColorRed, 10).Add(ColorBlue, 25).Add(ColorRed, -3)
		}, Balances{Red: 7, Blue: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op()
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBalancesTotal(t *testing.T) {
	b := Balances{Red: 1, Green: 2, Blue: 3}
	if b.Total() != 6 {
		t.Errorf("Total: got %d, want 6", b.Total())
	}
	if !ZeroBalances().IsZero() {
		t.Error("ZeroBalances should be zero")
	}
	if b.IsZero() {
		t.Error("non-empty balances reported zero")
	}
	if !b.NonNegative() {
		t.Error("expected non-negative")
	}
	if (Balances{Red: -1}).NonNegative() {
		t.Error("negative balance reported non-negative")
	}
}

func TestBalancesGet(t *testing.T) {
	b := Balances{Red: 1, Green: 2, Blue: 3}
	for _, tt := range []struct {
		color Color
		want  int64
	}{
		{ColorRed, 1},
		{ColorGreen, 2},
		{ColorBlue, 3},
	} {
		if got := b.Get(tt.color); got != tt.want {
			t.Errorf("Get(%s): got %d, want %d", tt.color, got, tt.want)
		}
	}
}

func TestBalancesJSONRoundTrip(t *testing.T) {
	b := Balances{Red: 10, Blue: 25}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]int64
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal to map failed: %v", err)
	}
	if decoded["total"] != 35 {
		t.Errorf("total: got %d, want 35", decoded["total"])
	}

	var restored Balances
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !restored.Equal(b) {
		t.Errorf("round-trip mismatch: %v != %v", restored, b)
	}
}

func TestBalancesString(t *testing.T) {
	b := Balances{Red: 1, Green: 0, Blue: 25}
	if got := b.String(); got != "red:1 green:0 blue:25" {
		t.Errorf("String: got %q", got)
	}
}
