// Package fslock provides advisory file locking built on flock(2).
//
// PlotVault's durable tables are plain files shared by independent server
// processes; every read-modify-write of such a file runs inside an exclusive
// advisory lock so concurrent writers from different processes cannot
// interleave. Locks are advisory: all writers must go through this package
// for the exclusion to hold.
//
// Lock acquisition polls with LOCK_NB rather than blocking in flock(2), so a
// caller-supplied context can abandon the wait. Once acquired, critical
// sections run to completion; cancellation never interrupts a write that has
// started.
package fslock
