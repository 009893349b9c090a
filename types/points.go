// Package types provides common types used across the rewards ledger.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color is one of the three fixed point colors of the reward economy.
// Colors are independent currencies; there is no conversion between them.
type Color string

// The fixed point colors. The set is closed: any other value is rejected
// at the boundary by ParseColor.
const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)

// Colors returns all point colors in canonical order.
func Colors() []Color {
	return []Color{ColorRed, ColorGreen, ColorBlue}
}

// Valid reports whether c is one of the fixed point colors.
func (c Color) Valid() bool {
	switch c {
	case ColorRed, ColorGreen, ColorBlue:
		return true
	default:
		return false
	}
}

// String returns the lowercase color name.
func (c Color) String() string { return string(c) }

// ParseColor parses a color name, case-insensitively.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(s))
	if !c.Valid() {
		return "", fmt.Errorf("types: unknown color %q", s)
	}
	return c, nil
}

// Balances holds a non-negative integer point balance per color.
// All arithmetic is integer-only — no floating point.
type Balances struct {
	Red   int64 `json:"red"`
	Green int64 `json:"green"`
	Blue  int64 `json:"blue"`
}

// ZeroBalances returns an all-zero Balances value.
func ZeroBalances() Balances { return Balances{} }

// Get returns the balance for the given color.
// Panics on an invalid color (programming error — callers validate at the boundary).
func (b Balances) Get(c Color) int64 {
	switch c {
	case ColorRed:
		return b.Red
	case ColorGreen:
		return b.Green
	case ColorBlue:
		return b.Blue
	default:
		panic(fmt.Sprintf("types: balances: unknown color %q", c))
	}
}

// Add returns a copy of b with delta added to the given color.
// Delta may be negative; the caller is responsible for rejecting results
// below zero before committing.
func (b Balances) Add(c Color, delta int64) Balances {
	switch c {
	case ColorRed:
		b.Red += delta
	case ColorGreen:
		b.Green += delta
	case ColorBlue:
		b.Blue += delta
	default:
		panic(fmt.Sprintf("types: balances: unknown color %q", c))
	}
	return b
}

// Total returns the aggregate balance across all colors.
func (b Balances) Total() int64 { return b.Red + b.Green + b.Blue }

// IsZero returns true if every color balance is zero.
func (b Balances) IsZero() bool { return b.Red == 0 && b.Green == 0 && b.Blue == 0 }

// NonNegative reports whether every color balance is >= 0.
func (b Balances) NonNegative() bool { return b.Red >= 0 && b.Green >= 0 && b.Blue >= 0 }

// Equal returns true if both Balances hold the same amounts.
func (b Balances) Equal(other Balances) bool { return b == other }

// String returns a compact human-readable rendering, e.g. "red:10 green:0 blue:25".
func (b Balances) String() string {
	return fmt.Sprintf("red:%d green:%d blue:%d", b.Red, b.Green, b.Blue)
}

// MarshalJSON implements json.Marshaler, including the aggregate total.
func (b Balances) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Red   int64 `json:"red"`
		Green int64 `json:"green"`
		Blue  int64 `json:"blue"`
		Total int64 `json:"total"`
	}{
		Red:   b.Red,
		Green: b.Green,
		Blue:  b.Blue,
		Total: b.Total(),
	})
}

// UnmarshalJSON implements json.Unmarshaler, ignoring the derived total.
func (b *Balances) UnmarshalJSON(data []byte) error {
	var raw struct {
		Red   int64 `json:"red"`
		Green int64 `json:"green"`
		Blue  int64 `json:"blue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Red, b.Green, b.Blue = raw.Red, raw.Green, raw.Blue
	return nil
}
