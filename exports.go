package rewards

import (
	"github.com/srujanreddynadipi/rewards/transaction"
	"github.com/srujanreddynadipi/rewards/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Color is re-exported from types package.
type Color = types.Color

// Balances is re-exported from types package.
type Balances = types.Balances

// Category is re-exported from types package.
type Category = types.Category

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export color constants
const (
	ColorRed   = types.ColorRed
	ColorGreen = types.ColorGreen
	ColorBlue  = types.ColorBlue
)

// Re-export award categories
const (
	CategoryAttendance = types.CategoryAttendance
	CategoryAcademic   = types.CategoryAcademic
	CategoryBehavior   = types.CategoryBehavior
	CategoryEvent      = types.CategoryEvent
	CategoryPeer       = types.CategoryPeer
)

// Re-export system actors
const (
	SystemMint    = transaction.SystemMint
	SystemCatalog = transaction.SystemCatalog
)

// Re-export constructors
var (
	ParseColor    = types.ParseColor
	ParseCategory = types.ParseCategory
	ZeroBalances  = types.ZeroBalances
	NewEntity     = types.NewEntity
)
