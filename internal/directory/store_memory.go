package directory

import (
	"context"
	"sync"
	"time"

	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
)

// InMemoryStore keeps directory fixtures for tests and local runs. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	byNumber map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*Profile),
		byNumber: make(map[string]string),
	}
}

func profileKey(orgID id.OrgID, subjectID id.SubjectID) string {
	return orgID.String() + "/" + subjectID.String()
}

// Add registers a profile under its organization. Later adds with the same
// subject overwrite earlier ones.
func (s *InMemoryStore) Add(orgID id.OrgID, profile *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profileKey(orgID, profile.Subject.ID)
	copied := *profile
	s.profiles[key] = &copied
	if profile.MembershipNumber != "" {
		s.byNumber[orgID.String()+"/"+profile.MembershipNumber] = key
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, orgID id.OrgID, subjectID id.SubjectID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if profile, ok := s.profiles[profileKey(orgID, subjectID)]; ok {
		copied := *profile
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByMembershipNumber(_ context.Context, orgID id.OrgID, number string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.byNumber[orgID.String()+"/"+number]; ok {
		if profile, ok := s.profiles[key]; ok {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// InMemorySettingsStore serves org settings from a map, defaulting to UTC
// for unknown organizations.
type InMemorySettingsStore struct {
	mu       sync.RWMutex
	settings map[string]*Settings
}

func NewInMemorySettingsStore() *InMemorySettingsStore {
	return &InMemorySettingsStore{settings: make(map[string]*Settings)}
}

func (s *InMemorySettingsStore) Set(orgID id.OrgID, settings *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[orgID.String()] = settings
}

func (s *InMemorySettingsStore) Settings(_ context.Context, orgID id.OrgID) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.settings[orgID.String()]; ok {
		return settings, nil
	}
	return &Settings{Timezone: time.UTC}, nil
}
