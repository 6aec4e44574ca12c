// Package biometric defines the identity-resolution contract consumed by
// the attendance core, plus the registry of scanning devices.
//
// The matching algorithm itself (minutiae scoring, face embeddings,
// thresholds) lives in an external subsystem. This package only states what
// a resolver must guarantee and supplies a deliberately trivial stub for
// tests and local runs.
package biometric

import (
	"context"
	"errors"

	id "gymgate/pkg/domain"
)

// Kind names the biometric modality a sample was captured with.
type Kind string

const (
	KindFingerprint Kind = "fingerprint"
	KindFace        Kind = "face"
	KindCard        Kind = "card"
)

func (k Kind) Valid() bool {
	return k == KindFingerprint || k == KindFace || k == KindCard
}

// ErrNotRecognized is returned when no enrolled template matches a sample.
// A definitive no-match, not a transient failure.
var ErrNotRecognized = errors.New("biometric sample not recognized")

// Identity is a resolved match: the owning subject and a display-name
// snapshot suitable for denormalizing onto the attendance record.
type Identity struct {
	Subject     id.Subject
	DisplayName string
}

// Resolver maps a captured sample to an enrolled identity.
//
// Implementations must:
//   - scope matching to the organization: a template enrolled under one org
//     never matches a sample presented under another
//   - consider only active enrollments; revoked templates never match
//   - return a single best match or ErrNotRecognized, never a ranked list
type Resolver interface {
	Resolve(ctx context.Context, orgID id.OrgID, kind Kind, sample []byte) (Identity, error)
}
