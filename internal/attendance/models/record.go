package models

import (
	"time"

	"gymgate/internal/attendance/day"
	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/sentinel"
)

// EntryMethod records which protocol admitted the subject.
type EntryMethod string

const (
	EntryBiometric EntryMethod = "biometric"
	EntryManual    EntryMethod = "manual"
	EntryQR        EntryMethod = "qr"
)

func (m EntryMethod) Valid() bool {
	return m == EntryBiometric || m == EntryManual || m == EntryQR
}

// VerificationMethod is the optional identity-verification detail behind an
// entry. Informational; never part of any uniqueness key.
type VerificationMethod string

const (
	VerifyFingerprint VerificationMethod = "fingerprint"
	VerifyFace        VerificationMethod = "face"
	VerifyCard        VerificationMethod = "card"
	VerifyManual      VerificationMethod = "manual"
)

// Record is one attendance session for a subject on a tenant-local day.
//
// Invariants:
//   - I1: per (OrgID, Subject.ID, Day) at most one record has CheckOutTime
//     unset at any time. Enforced by the ledger stores, not here.
//   - I2: CheckOutTime, once set, is never mutated again; DurationMinutes is
//     always floor((CheckOutTime-CheckInTime)/1m) when both are present.
//   - I3: Day is computed once at creation from CheckInTime using the
//     organization's timezone and never recomputed.
//
// Records are created once per admitted entry and mutated at most once (to
// close them). Retention and deletion belong to an external archival
// concern; nothing in this module deletes records.
type Record struct {
	ID    id.RecordID
	OrgID id.OrgID

	Subject id.Subject
	// UserName is a display-name snapshot taken at check-in on the biometric
	// path. It is not re-synced when the directory record changes later.
	UserName string

	CheckInTime  time.Time
	CheckOutTime *time.Time
	// DurationMinutes is derived from the two timestamps when both are
	// present and is absent (zero with open CheckOutTime) otherwise.
	DurationMinutes int64

	Day day.Key

	EntryMethod        EntryMethod
	VerificationMethod VerificationMethod

	// Provenance metadata, informational only.
	DeviceID string
	Location string
}

// NewRecord opens a session at checkIn, bucketing the day in loc.
func NewRecord(orgID id.OrgID, subject id.Subject, checkIn time.Time, loc *time.Location) (*Record, error) {
	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization id is required")
	}
	if !subject.Kind.Valid() || subject.ID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if checkIn.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "check-in time is required")
	}
	return &Record{
		ID:          id.NewRecordID(),
		OrgID:       orgID,
		Subject:     subject,
		CheckInTime: checkIn,
		Day:         day.Bucket(checkIn, loc),
	}, nil
}

// IsOpen reports whether the session has not been checked out yet.
func (r *Record) IsOpen() bool { return r.CheckOutTime == nil }

// CanClose checks whether the session may transition to closed at checkOut.
// Returns ErrAlreadyClosed when the session is closed and ErrInvalidState
// when checkOut precedes the check-in. A checkout equal to the check-in is
// allowed and yields a zero duration.
func (r *Record) CanClose(checkOut time.Time) error {
	if !r.IsOpen() {
		return sentinel.ErrAlreadyClosed
	}
	if checkOut.Before(r.CheckInTime) {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyClose sets the checkout timestamp and derives the duration. Call
// CanClose first; stores enforce the same transition atomically.
func (r *Record) ApplyClose(checkOut time.Time) {
	out := checkOut
	r.CheckOutTime = &out
	r.DurationMinutes = DurationMinutes(r.CheckInTime, checkOut)
}

// DurationMinutes computes the closed-session duration in whole minutes,
// rounding down. Deterministic for fixed inputs no matter how many times it
// is recomputed.
func DurationMinutes(checkIn, checkOut time.Time) int64 {
	return int64(checkOut.Sub(checkIn) / time.Minute)
}
