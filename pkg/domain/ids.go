// Package domain holds typed identifiers and shared value types.
//
// IDs are distinct named types over uuid.UUID so that an OrgID can never be
// passed where a SubjectID is expected. Parse functions enforce the trust
// boundary invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "gymgate/pkg/domain-errors"
)

type (
	// OrgID identifies a tenant organization. Every attendance query and
	// uniqueness constraint is scoped by it.
	OrgID uuid.UUID

	// SubjectID identifies an attending subject (member or trainer).
	SubjectID uuid.UUID

	// RecordID identifies a single attendance record.
	RecordID uuid.UUID

	// EnrollmentID identifies a biometric enrollment template.
	EnrollmentID uuid.UUID
)

func (id OrgID) String() string        { return uuid.UUID(id).String() }
func (id SubjectID) String() string    { return uuid.UUID(id).String() }
func (id RecordID) String() string     { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string { return uuid.UUID(id).String() }

func (id OrgID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }

// NewRecordID mints a fresh record identifier.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseOrgID parses and validates an organization ID from its string form.
func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw, "organization")
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(parsed), nil
}

// ParseSubjectID parses and validates a subject ID from its string form.
func ParseSubjectID(raw string) (SubjectID, error) {
	parsed, err := parseUUID(raw, "subject")
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(parsed), nil
}

// ParseRecordID parses and validates an attendance record ID from its string form.
func ParseRecordID(raw string) (RecordID, error) {
	parsed, err := parseUUID(raw, "record")
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(parsed), nil
}
