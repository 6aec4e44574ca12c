//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gymgate/internal/attendance/day"
	"gymgate/internal/attendance/models"
	"gymgate/internal/attendance/store"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
	"gymgate/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *store.PostgresLedger
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.ledger = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "attendance_records")
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) newRecord(checkIn time.Time) *models.Record {
	record, err := models.NewRecord(
		id.OrgID(uuid.New()),
		id.MemberSubject(id.SubjectID(uuid.New())),
		checkIn,
		time.UTC,
	)
	s.Require().NoError(err)
	record.EntryMethod = models.EntryBiometric
	record.VerificationMethod = models.VerifyFingerprint
	record.UserName = "Asha Rao"
	return record
}

func (s *PostgresLedgerSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)

	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	found, err := s.ledger.FindOpenSession(ctx, record.OrgID, record.Subject.ID, record.Day)
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.Equal("Asha Rao", found.UserName)
	s.Equal(models.EntryBiometric, found.EntryMethod)
	s.True(found.CheckInTime.Equal(checkIn))
	s.Nil(found.CheckOutTime)
	s.True(found.Day.Equal(record.Day), "day bucket must survive the round trip")
}

func (s *PostgresLedgerSuite) TestFindScopesToTenantAndDay() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	_, err := s.ledger.FindByDay(ctx, id.OrgID(uuid.New()), record.Subject.ID, record.Day)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.ledger.FindByDay(ctx, record.OrgID, record.Subject.ID, record.Day.Next())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestCloseDerivesDuration() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	closed, err := s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn.Add(90*time.Minute+59*time.Second))
	s.Require().NoError(err)
	s.Require().NotNil(closed.CheckOutTime)
	s.EqualValues(90, closed.DurationMinutes, "partial minutes floor")

	// Second close must not succeed.
	_, err = s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn.Add(2*time.Hour))
	s.ErrorIs(err, sentinel.ErrAlreadyClosed)
}

func (s *PostgresLedgerSuite) TestCloseRejectsBackwardsCheckout() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	_, err := s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn.Add(-time.Minute))
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresLedgerSuite) TestZeroDurationClose() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	closed, err := s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn)
	s.Require().NoError(err)
	s.EqualValues(0, closed.DurationMinutes)
}

func (s *PostgresLedgerSuite) TestClosedBucketRejectsNewSession() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))
	_, err := s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn.Add(time.Hour))
	s.Require().NoError(err)

	again, err := models.NewRecord(record.OrgID, record.Subject, checkIn.Add(3*time.Hour), time.UTC)
	s.Require().NoError(err)
	s.ErrorIs(s.ledger.CreateSession(ctx, again), sentinel.ErrConflict)
}

// TestConcurrentCreates verifies the unique index resolves the
// check-then-insert race: one writer wins, the rest see ErrAlreadyOpen.
func (s *PostgresLedgerSuite) TestConcurrentCreates() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	orgID := id.OrgID(uuid.New())
	subject := id.MemberSubject(id.SubjectID(uuid.New()))
	const goroutines = 50

	var wg sync.WaitGroup
	var created atomic.Int32
	var alreadyOpen atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := models.NewRecord(orgID, subject, checkIn, time.UTC)
			s.Require().NoError(err)
			record.EntryMethod = models.EntryBiometric

			switch err := s.ledger.CreateSession(ctx, record); {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyOpen):
				alreadyOpen.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one create may win the bucket")
	s.Equal(int32(goroutines-1), alreadyOpen.Load())
}

// TestConcurrentCloses verifies the conditional UPDATE lets exactly one
// close succeed.
func (s *PostgresLedgerSuite) TestConcurrentCloses() {
	ctx := context.Background()
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	record := s.newRecord(checkIn)
	s.Require().NoError(s.ledger.CreateSession(ctx, record))
	const goroutines = 10

	var wg sync.WaitGroup
	var closedCount atomic.Int32
	var alreadyClosed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch _, err := s.ledger.CloseSession(ctx, record.OrgID, record.ID, checkIn.Add(time.Hour)); {
			case err == nil:
				closedCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyClosed):
				alreadyClosed.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), closedCount.Load(), "exactly one close may win")
	s.Equal(int32(goroutines-1), alreadyClosed.Load())
}

func (s *PostgresLedgerSuite) TestListDayOrdersByCheckIn() {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	base := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)

	var want []id.RecordID
	for i := 0; i < 3; i++ {
		record, err := models.NewRecord(orgID, id.MemberSubject(id.SubjectID(uuid.New())), base.Add(time.Duration(i)*time.Hour), time.UTC)
		s.Require().NoError(err)
		record.EntryMethod = models.EntryManual
		s.Require().NoError(s.ledger.CreateSession(ctx, record))
		want = append(want, record.ID)
	}

	records, err := s.ledger.ListDay(ctx, orgID, day.Bucket(base, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for i, record := range records {
		s.Equal(want[i], record.ID)
	}
}

// TestTimezoneRoundTrip verifies day buckets built in a non-UTC org zone
// rehydrate to the same bucket.
func (s *PostgresLedgerSuite) TestTimezoneRoundTrip() {
	ctx := context.Background()
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	s.Require().NoError(err)

	// 01:30 IST is still the previous day in UTC.
	checkIn := time.Date(2026, 4, 2, 1, 30, 0, 0, kolkata)
	record, err := models.NewRecord(id.OrgID(uuid.New()), id.MemberSubject(id.SubjectID(uuid.New())), checkIn, kolkata)
	s.Require().NoError(err)
	record.EntryMethod = models.EntryManual
	s.Require().NoError(s.ledger.CreateSession(ctx, record))

	found, err := s.ledger.FindByDay(ctx, record.OrgID, record.Subject.ID, day.Bucket(checkIn, kolkata))
	s.Require().NoError(err)
	s.Equal("2026-04-02", found.Day.String())
}
