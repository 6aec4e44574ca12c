package directory

import (
	"context"

	id "gymgate/pkg/domain"
)

// Store looks up attending subjects within a single organization. Lookups
// are always tenant-scoped: a subject enrolled under one organization is
// invisible under another.
type Store interface {
	FindByID(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID) (*Profile, error)
	FindByMembershipNumber(ctx context.Context, orgID id.OrgID, number string) (*Profile, error)
}

// SettingsStore resolves per-organization settings.
type SettingsStore interface {
	Settings(ctx context.Context, orgID id.OrgID) (*Settings, error)
}
