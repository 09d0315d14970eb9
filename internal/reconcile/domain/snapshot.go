package domain

import "time"

// State tracks a snapshot through its recomputation lifecycle.
type State string

const (
	// StateStale marks a snapshot invalidated by a capacity-affecting mutation.
	StateStale State = "stale"
	// StateRecomputing marks a snapshot currently being rederived.
	StateRecomputing State = "recomputing"
	// StateFresh marks a snapshot consistent with ledger and registry state.
	StateFresh State = "fresh"
)

// UsageSnapshot is the derived per-organization capacity summary. One row
// per organization, recomputed from authoritative state on every
// capacity-affecting mutation and never hand-edited.
type UsageSnapshot struct {
	OrgID          string
	ActiveDevices  int
	TotalCapacity  int
	ActiveLicenses int
	// UnusedDevices is max(0, TotalCapacity - ActiveDevices).
	UnusedDevices int
	State         State
	UpdatedAt     time.Time
}
