package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gymgate/internal/attendance/day"
	"gymgate/internal/attendance/models"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
)

// PostgresLedger persists attendance records in PostgreSQL.
//
// Correctness does not depend on application-level timing:
//   - one session per (org, subject, day) is a unique index, so the
//     check-then-insert race between concurrent writers resolves to exactly
//     one successful INSERT
//   - closing is a conditional UPDATE on "still open", so two concurrent
//     closes resolve to one success and one ErrAlreadyClosed
const uniqueViolation = "23505"

type PostgresLedger struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attendance ledger.
func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const recordColumns = `id, org_id, subject_id, subject_kind, user_name,
	check_in_time, check_out_time, duration_minutes, day_start, tz,
	entry_method, verification_method, device_id, location`

// FindOpenSession returns the open record for the bucket, or ErrNotFound.
func (l *PostgresLedger) FindOpenSession(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE org_id = $1 AND subject_id = $2 AND day_start = $3 AND check_out_time IS NULL
	`
	record, err := scanRecord(l.db.QueryRowContext(ctx, query,
		uuid.UUID(orgID), uuid.UUID(subjectID), key.Time()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return record, nil
}

// FindByDay returns the bucket's record regardless of state, or ErrNotFound.
func (l *PostgresLedger) FindByDay(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE org_id = $1 AND subject_id = $2 AND day_start = $3
	`
	record, err := scanRecord(l.db.QueryRowContext(ctx, query,
		uuid.UUID(orgID), uuid.UUID(subjectID), key.Time()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session by day: %w", err)
	}
	return record, nil
}

// CreateSession inserts an open record. The unique index on
// (org_id, subject_id, day_start) makes concurrent creates race-safe: the
// losers see ErrAlreadyOpen (bucket has an open session) or ErrConflict
// (bucket's session is already completed).
func (l *PostgresLedger) CreateSession(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO attendance_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, 0, $7, $8, $9, $10, $11, $12)
	`
	_, err := l.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.OrgID),
		uuid.UUID(record.Subject.ID),
		string(record.Subject.Kind),
		record.UserName,
		record.CheckInTime,
		record.Day.Time(),
		record.Day.Time().Location().String(),
		string(record.EntryMethod),
		string(record.VerificationMethod),
		record.DeviceID,
		record.Location,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return l.classifyCreateConflict(ctx, record)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// classifyCreateConflict distinguishes "lost to a concurrent open" from
// "day already completed" after a unique violation.
func (l *PostgresLedger) classifyCreateConflict(ctx context.Context, record *models.Record) error {
	existing, err := l.FindByDay(ctx, record.OrgID, record.Subject.ID, record.Day)
	if err != nil {
		// The winning row should be visible; if it is not, surface the
		// conflict rather than guessing.
		return sentinel.ErrConflict
	}
	if existing.IsOpen() {
		return sentinel.ErrAlreadyOpen
	}
	return sentinel.ErrConflict
}

// CloseSession transitions a record from open to closed exactly once via a
// conditional UPDATE; the duration is derived inside the statement so it is
// always consistent with the stored timestamps.
func (l *PostgresLedger) CloseSession(ctx context.Context, orgID id.OrgID, recordID id.RecordID, checkOut time.Time) (*models.Record, error) {
	query := `
		UPDATE attendance_records
		SET check_out_time = $3,
		    duration_minutes = FLOOR(EXTRACT(EPOCH FROM ($3 - check_in_time)) / 60)
		WHERE id = $1 AND org_id = $2
		  AND check_out_time IS NULL
		  AND check_in_time <= $3
		RETURNING ` + recordColumns + `
	`
	record, err := scanRecord(l.db.QueryRowContext(ctx, query,
		uuid.UUID(recordID), uuid.UUID(orgID), checkOut))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("close session: %w", err)
	}
	// The conditional update matched nothing; read the row to say why.
	existing, findErr := l.findByID(ctx, orgID, recordID)
	switch {
	case errors.Is(findErr, sql.ErrNoRows):
		return nil, sentinel.ErrNotFound
	case findErr != nil:
		return nil, fmt.Errorf("close session: %w", findErr)
	case !existing.IsOpen():
		return nil, sentinel.ErrAlreadyClosed
	default:
		return nil, sentinel.ErrInvalidState
	}
}

func (l *PostgresLedger) findByID(ctx context.Context, orgID id.OrgID, recordID id.RecordID) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE id = $1 AND org_id = $2
	`
	return scanRecord(l.db.QueryRowContext(ctx, query, uuid.UUID(recordID), uuid.UUID(orgID)))
}

// ListDay returns the organization's records for a day, ordered by
// check-in time.
func (l *PostgresLedger) ListDay(ctx context.Context, orgID id.OrgID, key day.Key) ([]*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE org_id = $1 AND day_start = $2
		ORDER BY check_in_time
	`
	rows, err := l.db.QueryContext(ctx, query, uuid.UUID(orgID), key.Time())
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list day: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		recordID     uuid.UUID
		orgID        uuid.UUID
		subjectID    uuid.UUID
		subjectKind  string
		userName     string
		checkIn      time.Time
		checkOut     sql.NullTime
		duration     int64
		dayStart     time.Time
		tzName       string
		entryMethod  string
		verification sql.NullString
		deviceID     string
		location     string
	)
	if err := row.Scan(&recordID, &orgID, &subjectID, &subjectKind, &userName,
		&checkIn, &checkOut, &duration, &dayStart, &tzName,
		&entryMethod, &verification, &deviceID, &location); err != nil {
		return nil, err
	}
	subject, err := id.NewSubject(id.SubjectID(subjectID), id.SubjectKind(subjectKind))
	if err != nil {
		return nil, fmt.Errorf("attendance row has invalid subject: %w", err)
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("attendance row has invalid timezone %q: %w", tzName, err)
	}
	record := &models.Record{
		ID:                 id.RecordID(recordID),
		OrgID:              id.OrgID(orgID),
		Subject:            subject,
		UserName:           userName,
		CheckInTime:        checkIn,
		DurationMinutes:    duration,
		Day:                day.FromMidnight(dayStart.In(loc)),
		EntryMethod:        models.EntryMethod(entryMethod),
		VerificationMethod: models.VerificationMethod(verification.String),
		DeviceID:           deviceID,
		Location:           location,
	}
	if checkOut.Valid {
		out := checkOut.Time
		record.CheckOutTime = &out
	}
	return record, nil
}

// Schema creates the ledger table and its uniqueness constraint. The unique
// index over (org_id, subject_id, day_start) enforces both invariants at
// once: at most one session per bucket, hence at most one open session,
// and closed stays terminal for the day.
const Schema = `
CREATE TABLE IF NOT EXISTS attendance_records (
	id UUID PRIMARY KEY,
	org_id UUID NOT NULL,
	subject_id UUID NOT NULL,
	subject_kind TEXT NOT NULL,
	user_name TEXT NOT NULL DEFAULT '',
	check_in_time TIMESTAMPTZ NOT NULL,
	check_out_time TIMESTAMPTZ,
	duration_minutes BIGINT NOT NULL DEFAULT 0,
	day_start TIMESTAMPTZ NOT NULL,
	tz TEXT NOT NULL,
	entry_method TEXT NOT NULL,
	verification_method TEXT NOT NULL DEFAULT '',
	device_id TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	CONSTRAINT attendance_checkout_after_checkin
		CHECK (check_out_time IS NULL OR check_out_time >= check_in_time)
);
CREATE UNIQUE INDEX IF NOT EXISTS attendance_one_session_per_day
	ON attendance_records (org_id, subject_id, day_start);
`

// EnsureSchema applies the ledger schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure attendance schema: %w", err)
	}
	return nil
}
