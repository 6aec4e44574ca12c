package domain

import dErrors "gymgate/pkg/domain-errors"

// SubjectKind discriminates the two attending populations.
type SubjectKind string

const (
	SubjectMember  SubjectKind = "member"
	SubjectTrainer SubjectKind = "trainer"
)

// Valid reports whether the kind is one of the known variants.
func (k SubjectKind) Valid() bool {
	return k == SubjectMember || k == SubjectTrainer
}

// Subject is a tagged (kind, id) pair. Construct it through MemberSubject,
// TrainerSubject, or NewSubject so an invalid combination cannot exist:
// the zero Subject is recognizably invalid via Kind.Valid().
type Subject struct {
	ID   SubjectID
	Kind SubjectKind
}

// MemberSubject builds a member-kinded subject.
func MemberSubject(id SubjectID) Subject {
	return Subject{ID: id, Kind: SubjectMember}
}

// TrainerSubject builds a trainer-kinded subject.
func TrainerSubject(id SubjectID) Subject {
	return Subject{ID: id, Kind: SubjectTrainer}
}

// NewSubject validates the discriminator before pairing it with the id.
func NewSubject(id SubjectID, kind SubjectKind) (Subject, error) {
	if id.IsZero() {
		return Subject{}, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if !kind.Valid() {
		return Subject{}, dErrors.New(dErrors.CodeInvalidInput, "subject kind must be member or trainer")
	}
	return Subject{ID: id, Kind: kind}, nil
}
