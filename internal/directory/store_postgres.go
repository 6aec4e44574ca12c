package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresStore reads subjects from the SaaS directory tables. This store is
// pure I/O; admission rules belong to the subscription gate and the
// attendance service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const subjectColumns = `subject_id, subject_kind, name, membership_number, plan_name,
	subscription_status, subscription_end_date`

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID) (*Profile, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM directory_subjects
		WHERE org_id = $1 AND subject_id = $2
	`
	profile, err := scanProfile(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(subjectID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) FindByMembershipNumber(ctx context.Context, orgID id.OrgID, number string) (*Profile, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM directory_subjects
		WHERE org_id = $1 AND membership_number = $2
	`
	profile, err := scanProfile(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject by membership number: %w", err)
	}
	return profile, nil
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var (
		subjectID uuid.UUID
		kind      string
		name      string
		number    sql.NullString
		planName  sql.NullString
		subStatus sql.NullString
		subEnd    sql.NullTime
	)
	if err := row.Scan(&subjectID, &kind, &name, &number, &planName, &subStatus, &subEnd); err != nil {
		return nil, err
	}
	subject, err := id.NewSubject(id.SubjectID(subjectID), id.SubjectKind(kind))
	if err != nil {
		return nil, fmt.Errorf("directory row has invalid subject: %w", err)
	}
	profile := &Profile{
		Subject:          subject,
		Name:             name,
		MembershipNumber: number.String,
		PlanName:         planName.String,
	}
	if subStatus.Valid {
		profile.Subscription = &subscription.Snapshot{
			Status:  subscription.Status(subStatus.String),
			EndDate: subEnd.Time,
		}
	}
	return profile, nil
}

// PostgresSettingsStore reads per-organization settings.
type PostgresSettingsStore struct {
	db *sql.DB
}

func NewPostgresSettings(db *sql.DB) *PostgresSettingsStore {
	return &PostgresSettingsStore{db: db}
}

func (s *PostgresSettingsStore) Settings(ctx context.Context, orgID id.OrgID) (*Settings, error) {
	var tzName string
	err := s.db.QueryRowContext(ctx,
		`SELECT timezone FROM organization_settings WHERE org_id = $1`,
		uuid.UUID(orgID),
	).Scan(&tzName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Settings{Timezone: time.UTC}, nil
		}
		return nil, fmt.Errorf("load organization settings: %w", err)
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("organization %s has invalid timezone %q: %w", orgID, tzName, err)
	}
	return &Settings{Timezone: loc}, nil
}

// Schema creates the directory tables when they do not exist. The
// surrounding SaaS owns these tables in production; this is for integration
// tests and local runs.
const Schema = `
CREATE TABLE IF NOT EXISTS directory_subjects (
	org_id UUID NOT NULL,
	subject_id UUID NOT NULL,
	subject_kind TEXT NOT NULL,
	name TEXT NOT NULL,
	membership_number TEXT,
	plan_name TEXT,
	subscription_status TEXT,
	subscription_end_date TIMESTAMPTZ,
	PRIMARY KEY (org_id, subject_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS directory_subjects_membership
	ON directory_subjects (org_id, membership_number)
	WHERE membership_number IS NOT NULL;

CREATE TABLE IF NOT EXISTS organization_settings (
	org_id UUID PRIMARY KEY,
	timezone TEXT NOT NULL
);
`

// EnsureSchema applies the directory schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure directory schema: %w", err)
	}
	return nil
}
