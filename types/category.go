package types

import (
	"fmt"
	"strings"
)

// Category classifies the intent of a point transfer. The taxonomy is fixed;
// unknown categories are rejected at the boundary by ParseCategory.
type Category string

const (
	CategoryAttendance Category = "attendance" // Attendance bonuses
	CategoryAcademic   Category = "academic"   // Merit awards for academic performance
	CategoryBehavior   Category = "behavior"   // Conduct awards
	CategoryEvent      Category = "event"      // Event participation
	CategoryPeer       Category = "peer"       // Peer-to-peer appreciation
	CategoryRedemption Category = "redemption" // Points spent on coupon redemption
)

// Categories returns all award categories, excluding the internal
// redemption category (which only the redemption engine writes).
func Categories() []Category {
	return []Category{
		CategoryAttendance,
		CategoryAcademic,
		CategoryBehavior,
		CategoryEvent,
		CategoryPeer,
	}
}

// Valid reports whether c is a recognized award category.
// CategoryRedemption is not a valid award category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAttendance, CategoryAcademic, CategoryBehavior, CategoryEvent, CategoryPeer:
		return true
	default:
		return false
	}
}

// String returns the lowercase category name.
func (c Category) String() string { return string(c) }

// ParseCategory parses an award category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(s))
	if !c.Valid() {
		return "", fmt.Errorf("types: unknown category %q", s)
	}
	return c, nil
}
