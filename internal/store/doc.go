// Package store provides SQLite-backed storage for liftfop.
//
// The store holds:
//   - Platforms and their groups, with a done flag per group
//   - Competitors: entry data, recorded lifts, requested weight and ranks
//   - Journal: every input an engine processed, numbered per platform
//
// Store is the persistent engine.Repository and engine.Journal. The engine
// owns the working copies of the athletes of its active group; the store
// only sees snapshots through SaveLift and SaveRanks.
//
// # Ordering
//
//   - Competitors are read in start order: ORDER BY start_number, id
//   - Journal entries are read by sequence: ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
