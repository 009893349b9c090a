// Package rewards provides a multi-color points ledger and coupon
// redemption engine for Go applications.
//
// Rewards is designed as a library, not a service. Import it directly into
// your Go application and wire it to your own identity and notification
// layers. It provides:
//
//   - Per-user balances across three independent point colors
//   - Capability-gated peer-to-peer and minted point transfers
//   - Persistent fixed-window quotas committed atomically with transfers
//   - An append-only transaction ledger with continuation-token paging
//   - A coupon catalog with atomic redemption and unique code minting
//   - Single-use redemption receipts with expiry sweeps
//   - On-demand leaderboards behind a short-TTL cache
//   - A plugin system for audit, metrics, and redemption policy
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/srujanreddynadipi/rewards"
//	    "github.com/srujanreddynadipi/rewards/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	engine := rewards.New(store, rewards.WithCapabilities(caps))
//
//	// Start the engine (migrates the store, begins the outbox worker)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Awards move points between accounts. The sender is debited and the
// recipient credited in one atomic commit, together with the quota counters
// that gate the transfer:
//
//	txID, err := engine.Award(ctx, teacherID, rewards.SystemMint, studentID,
//	    rewards.ColorBlue, 10, "perfect attendance", rewards.CategoryAttendance)
//
// Redemptions exchange points for a coupon, minting a single-use receipt
// with a generated code:
//
//	receipt, err := engine.Redeem(ctx, studentID, couponID, rewards.ColorBlue)
//	fmt.Println(receipt.Code) // e.g. STAR-260115-3F9A2C41
//
// Balances and history are plain reads; unknown users read as zero:
//
//	balances, err := engine.GetBalance(ctx, studentID)
//	page, next, err := engine.GetHistory(ctx, studentID, 20, "")
//
// # Consistency
//
// Every mutating operation runs inside a store transaction. Conflicting
// writers are retried transparently up to a configurable bound; when retries
// are exhausted the operation fails without partial effects. Balances never
// go negative and every balance change has a matching ledger entry.
//
// Notifications are the one exception: they are published after commit on a
// best-effort outbox and are never allowed to roll back a ledger operation.
//
// # Stores
//
// Four store backends ship with the engine:
//
//   - memory: in-process, for tests and prototyping
//   - sqlite: embedded, single-file persistence
//   - postgres: production SQL backend
//   - mongo: production document backend
//
// All backends satisfy the same store.Store interface, so they are
// interchangeable at construction time.
package rewards
