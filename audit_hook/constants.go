package audithook

// Action constants for audit events.
const (
	// Transfer actions
	ActionPointsAwarded     = "points.awarded"
	ActionRateLimited       = "transfer.rate_limited"
	ActionInsufficientFunds = "transfer.insufficient_funds"

	// Redemption actions
	ActionCouponRedeemed = "coupon.redeemed"
	ActionCouponUsed     = "coupon.used"
	ActionCouponsExpired = "coupon.expired"

	// Outbox actions
	ActionNotificationDropped = "notification.dropped"
)

// Resource constants for audit events.
const (
	ResourceTransfer     = "transfer"
	ResourceRedemption   = "redemption"
	ResourceNotification = "notification"
)

// Category constants for audit events.
const (
	CategoryEconomy    = "economy"
	CategoryRedemption = "redemption"
	CategoryOperations = "operations"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
