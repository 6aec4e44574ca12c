package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"gymgate/internal/biometric"
	dErrors "gymgate/pkg/domain-errors"
)

// CheckInRequest is the HTTP request body for POST /attendance/check-in.
// Exactly one of subject_id and membership_number selects the subject.
type CheckInRequest struct {
	SubjectID        string `json:"subject_id"`
	MembershipNumber string `json:"membership_number"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CheckInRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.MembershipNumber = strings.TrimSpace(r.MembershipNumber)

	if r.SubjectID == "" && r.MembershipNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id or membership_number is required")
	}
	if r.SubjectID != "" && r.MembershipNumber != "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id and membership_number are mutually exclusive")
	}
	if len(r.MembershipNumber) > 40 {
		return dErrors.New(dErrors.CodeValidation, "membership_number must be at most 40 characters")
	}
	return nil
}

// PunchRequest is the HTTP request body for POST /attendance/punch.
type PunchRequest struct {
	Type   string `json:"type"`
	Sample string `json:"sample"`

	// Parsed values (populated by Validate)
	parsedKind   biometric.Kind
	parsedSample []byte
}

// Validate validates and parses the request.
func (r *PunchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Type = strings.TrimSpace(strings.ToLower(r.Type))
	kind := biometric.Kind(r.Type)
	if !kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "type must be one of fingerprint, face, card")
	}
	r.parsedKind = kind

	if r.Sample == "" {
		return dErrors.New(dErrors.CodeValidation, "sample is required")
	}
	sample, err := base64.StdEncoding.DecodeString(r.Sample)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "sample must be base64-encoded")
	}
	r.parsedSample = sample
	return nil
}

// ParsedKind returns the validated biometric type.
func (r *PunchRequest) ParsedKind() biometric.Kind {
	return r.parsedKind
}

// ParsedSample returns the decoded sample bytes.
func (r *PunchRequest) ParsedSample() []byte {
	return r.parsedSample
}

// parseDate parses the ?date=YYYY-MM-DD query parameter.
func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	return t, nil
}
