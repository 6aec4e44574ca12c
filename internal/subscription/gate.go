// Package subscription evaluates whether a subject's subscription admits
// them to attend.
//
// The gate is a pure policy function: it reads a snapshot and a clock value
// and produces a decision. Writes to subscriptions belong to the billing
// collaborator, never to this package.
package subscription

import "time"

// Status is the billing state of a subscription snapshot.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusExpired || s == StatusSuspended
}

// Snapshot is the read-only view of a subject's subscription at decision
// time. It is denormalized from the directory record; this package never
// refreshes it.
type Snapshot struct {
	Status  Status
	EndDate time.Time
}

// Decision is the gate's admission outcome. Denials carry the status and end
// date so callers can render a user-facing message without a second lookup.
type Decision struct {
	Admitted bool
	Reason   string
	Status   Status
	EndDate  time.Time
}

// Admit decides admission for a snapshot at the given instant. Only an
// active subscription admits. Pure: no I/O, no side effects. The now
// parameter is unused by the current status-only policy but kept in the
// contract so an end-date grace policy can slot in without changing callers.
func Admit(snap Snapshot, now time.Time) Decision {
	if snap.Status == StatusActive {
		return Decision{Admitted: true, Status: snap.Status, EndDate: snap.EndDate}
	}
	return Decision{
		Admitted: false,
		Reason:   "Cannot check in. Subscription is " + string(snap.Status),
		Status:   snap.Status,
		EndDate:  snap.EndDate,
	}
}

// GatePolicy selects which entry paths the gate applies to. The source
// system gated only manual check-ins; treating biometric entry as a pure
// access-control concern. Both behaviors are supported and the choice is
// explicit configuration.
type GatePolicy string

const (
	// GateManualOnly applies the subscription gate to manual check-ins only.
	GateManualOnly GatePolicy = "manual_only"
	// GateAllEntries applies the subscription gate to every entry path,
	// including biometric punches.
	GateAllEntries GatePolicy = "all_entries"
)

// AppliesToBiometric reports whether biometric punches must pass the gate.
func (p GatePolicy) AppliesToBiometric() bool { return p == GateAllEntries }
