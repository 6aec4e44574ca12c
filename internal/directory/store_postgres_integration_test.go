//go:build integration

package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gymgate/internal/directory"
	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
	"gymgate/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *directory.PostgresStore
	settings *directory.PostgresSettingsStore
}

func TestPostgresDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(directory.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = directory.NewPostgres(s.postgres.DB)
	s.settings = directory.NewPostgresSettings(s.postgres.DB)
}

func (s *PostgresDirectorySuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "directory_subjects", "organization_settings")
	s.Require().NoError(err)
}

func (s *PostgresDirectorySuite) insertMember(orgID id.OrgID, number string) id.SubjectID {
	subjectID := id.SubjectID(uuid.New())
	_, err := s.postgres.DB.ExecContext(context.Background(), `
		INSERT INTO directory_subjects
			(org_id, subject_id, subject_kind, name, membership_number, plan_name,
			 subscription_status, subscription_end_date)
		VALUES ($1, $2, 'member', 'Asha Rao', $3, 'Quarterly', 'active', $4)
	`, uuid.UUID(orgID), uuid.UUID(subjectID), number, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	return subjectID
}

func (s *PostgresDirectorySuite) TestFindByIDAndNumber() {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	subjectID := s.insertMember(orgID, "GM-0042")

	byID, err := s.store.FindByID(ctx, orgID, subjectID)
	s.Require().NoError(err)
	s.Equal("Asha Rao", byID.Name)
	s.Equal(id.SubjectMember, byID.Subject.Kind)
	s.Require().NotNil(byID.Subscription)
	s.Equal(subscription.StatusActive, byID.Subscription.Status)

	byNumber, err := s.store.FindByMembershipNumber(ctx, orgID, "GM-0042")
	s.Require().NoError(err)
	s.Equal(subjectID, byNumber.Subject.ID)
}

func (s *PostgresDirectorySuite) TestTrainerHasNoSubscription() {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO directory_subjects (org_id, subject_id, subject_kind, name)
		VALUES ($1, $2, 'trainer', 'Marco Diaz')
	`, uuid.UUID(orgID), uuid.UUID(subjectID))
	s.Require().NoError(err)

	profile, err := s.store.FindByID(ctx, orgID, subjectID)
	s.Require().NoError(err)
	s.Nil(profile.Subscription)
}

func (s *PostgresDirectorySuite) TestTenantScoping() {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	subjectID := s.insertMember(orgID, "GM-0042")

	_, err := s.store.FindByID(ctx, id.OrgID(uuid.New()), subjectID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByMembershipNumber(ctx, id.OrgID(uuid.New()), "GM-0042")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDirectorySuite) TestSettingsDefaultToUTC() {
	ctx := context.Background()
	settings, err := s.settings.Settings(ctx, id.OrgID(uuid.New()))
	s.Require().NoError(err)
	s.Equal(time.UTC, settings.Timezone)
}

func (s *PostgresDirectorySuite) TestSettingsLoadTimezone() {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO organization_settings (org_id, timezone) VALUES ($1, 'Asia/Kolkata')
	`, uuid.UUID(orgID))
	s.Require().NoError(err)

	settings, err := s.settings.Settings(ctx, orgID)
	s.Require().NoError(err)
	s.Equal("Asia/Kolkata", settings.Timezone.String())
}
