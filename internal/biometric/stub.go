package biometric

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"

	id "gymgate/pkg/domain"
)

// Enrollment is one stored template reference. The stub keys enrollments by
// a digest of the raw sample; a real matcher stores vendor templates and
// similarity-scores them.
type Enrollment struct {
	ID          id.EnrollmentID
	OrgID       id.OrgID
	Subject     id.Subject
	DisplayName string
	Kind        Kind
	SampleKey   string
	Active      bool
}

// StubResolver resolves identities by exact sample-digest equality. It
// exists so the attendance core can be exercised end to end without a
// matching engine; it is not a biometric matcher and must never ship as
// one.
type StubResolver struct {
	mu          sync.RWMutex
	enrollments map[string]Enrollment
}

func NewStubResolver() *StubResolver {
	return &StubResolver{enrollments: make(map[string]Enrollment)}
}

// SampleKey digests a raw sample into the stub's lookup key.
func SampleKey(sample []byte) string {
	sum := sha256.Sum256(sample)
	return hex.EncodeToString(sum[:])
}

func enrollmentKey(orgID id.OrgID, kind Kind, sampleKey string) string {
	return orgID.String() + "/" + string(kind) + "/" + sampleKey
}

// Enroll registers a sample for a subject within an organization.
func (r *StubResolver) Enroll(orgID id.OrgID, subject id.Subject, displayName string, kind Kind, sample []byte) Enrollment {
	enrollment := Enrollment{
		ID:          id.EnrollmentID(uuid.New()),
		OrgID:       orgID,
		Subject:     subject,
		DisplayName: displayName,
		Kind:        kind,
		SampleKey:   SampleKey(sample),
		Active:      true,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments[enrollmentKey(orgID, kind, enrollment.SampleKey)] = enrollment
	return enrollment
}

// Revoke deactivates an enrollment; revoked templates never match again.
func (r *StubResolver) Revoke(orgID id.OrgID, kind Kind, sample []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := enrollmentKey(orgID, kind, SampleKey(sample))
	if enrollment, ok := r.enrollments[key]; ok {
		enrollment.Active = false
		r.enrollments[key] = enrollment
	}
}

func (r *StubResolver) Resolve(_ context.Context, orgID id.OrgID, kind Kind, sample []byte) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enrollment, ok := r.enrollments[enrollmentKey(orgID, kind, SampleKey(sample))]
	if !ok || !enrollment.Active {
		return Identity{}, ErrNotRecognized
	}
	return Identity{Subject: enrollment.Subject, DisplayName: enrollment.DisplayName}, nil
}

var _ Resolver = (*StubResolver)(nil)
