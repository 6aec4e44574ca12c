package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymgate/internal/attendance/day"
	"gymgate/internal/attendance/models"
	"gymgate/internal/attendance/store"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
)

func newOpenRecord(t *testing.T, orgID id.OrgID, subjectID id.SubjectID, checkIn time.Time) *models.Record {
	t.Helper()
	record, err := models.NewRecord(orgID, id.MemberSubject(subjectID), checkIn, time.UTC)
	require.NoError(t, err)
	record.EntryMethod = models.EntryManual
	return record
}

func TestInMemoryLedger_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewInMemoryLedger()

	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	key := day.Bucket(checkIn, time.UTC)

	record := newOpenRecord(t, orgID, subjectID, checkIn)
	require.NoError(t, ledger.CreateSession(ctx, record))

	t.Run("open session is findable", func(t *testing.T) {
		found, err := ledger.FindOpenSession(ctx, orgID, subjectID, key)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.True(t, found.IsOpen())
	})

	t.Run("second create for the bucket fails AlreadyOpen", func(t *testing.T) {
		dup := newOpenRecord(t, orgID, subjectID, checkIn.Add(time.Hour))
		assert.ErrorIs(t, ledger.CreateSession(ctx, dup), sentinel.ErrAlreadyOpen)
	})

	t.Run("other buckets are independent", func(t *testing.T) {
		otherSubject := newOpenRecord(t, orgID, id.SubjectID(uuid.New()), checkIn)
		assert.NoError(t, ledger.CreateSession(ctx, otherSubject))

		otherOrg := newOpenRecord(t, id.OrgID(uuid.New()), subjectID, checkIn)
		assert.NoError(t, ledger.CreateSession(ctx, otherOrg))

		nextDay := newOpenRecord(t, orgID, subjectID, checkIn.AddDate(0, 0, 1))
		assert.NoError(t, ledger.CreateSession(ctx, nextDay))
	})

	t.Run("no open session for an empty bucket", func(t *testing.T) {
		_, err := ledger.FindOpenSession(ctx, orgID, id.SubjectID(uuid.New()), key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryLedger_Close(t *testing.T) {
	ctx := context.Background()
	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*store.InMemoryLedger, *models.Record) {
		t.Helper()
		ledger := store.NewInMemoryLedger()
		record := newOpenRecord(t, orgID, subjectID, checkIn)
		require.NoError(t, ledger.CreateSession(ctx, record))
		return ledger, record
	}

	t.Run("close computes duration and persists", func(t *testing.T) {
		ledger, record := setup(t)
		closed, err := ledger.CloseSession(ctx, orgID, record.ID, checkIn.Add(90*time.Minute))
		require.NoError(t, err)
		assert.False(t, closed.IsOpen())
		assert.Equal(t, int64(90), closed.DurationMinutes)

		_, err = ledger.FindOpenSession(ctx, orgID, subjectID, record.Day)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("second close fails AlreadyClosed", func(t *testing.T) {
		ledger, record := setup(t)
		_, err := ledger.CloseSession(ctx, orgID, record.ID, checkIn.Add(time.Hour))
		require.NoError(t, err)
		_, err = ledger.CloseSession(ctx, orgID, record.ID, checkIn.Add(2*time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyClosed)
	})

	t.Run("checkout before check-in fails InvalidState", func(t *testing.T) {
		ledger, record := setup(t)
		_, err := ledger.CloseSession(ctx, orgID, record.ID, checkIn.Add(-time.Minute))
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("create after close fails Conflict, closed is terminal", func(t *testing.T) {
		ledger, record := setup(t)
		_, err := ledger.CloseSession(ctx, orgID, record.ID, checkIn.Add(time.Hour))
		require.NoError(t, err)

		reopen := newOpenRecord(t, orgID, subjectID, checkIn.Add(3*time.Hour))
		assert.ErrorIs(t, ledger.CreateSession(ctx, reopen), sentinel.ErrConflict)
	})

	t.Run("unknown record fails NotFound", func(t *testing.T) {
		ledger, _ := setup(t)
		_, err := ledger.CloseSession(ctx, orgID, id.NewRecordID(), checkIn.Add(time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = ledger.CloseSession(ctx, id.OrgID(uuid.New()), id.NewRecordID(), checkIn.Add(time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

// TestInMemoryLedger_ConcurrentCreates verifies the linchpin property: under
// N concurrent creates for one bucket, exactly one succeeds and N-1 observe
// AlreadyOpen.
func TestInMemoryLedger_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewInMemoryLedger()

	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	const writers = 50

	var wg sync.WaitGroup
	var created, alreadyOpen atomic.Int32

	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record := &models.Record{
				ID:          id.NewRecordID(),
				OrgID:       orgID,
				Subject:     id.MemberSubject(subjectID),
				CheckInTime: checkIn,
				Day:         day.Bucket(checkIn, time.UTC),
				EntryMethod: models.EntryBiometric,
			}
			switch err := ledger.CreateSession(ctx, record); {
			case err == nil:
				created.Add(1)
			case err == sentinel.ErrAlreadyOpen:
				alreadyOpen.Add(1)
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "exactly one create must win")
	assert.Equal(t, int32(writers-1), alreadyOpen.Load())
}

// TestInMemoryLedger_ConcurrentCloses verifies exactly one of two racing
// closes wins and the loser observes AlreadyClosed.
func TestInMemoryLedger_ConcurrentCloses(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewInMemoryLedger()

	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	record := newOpenRecord(t, orgID, subjectID, checkIn)
	require.NoError(t, ledger.CreateSession(ctx, record))

	const closers = 10
	var wg sync.WaitGroup
	var closedCount, alreadyClosed atomic.Int32

	for i := range closers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkOut := checkIn.Add(time.Hour + time.Duration(i)*time.Minute)
			switch _, err := ledger.CloseSession(ctx, orgID, record.ID, checkOut); {
			case err == nil:
				closedCount.Add(1)
			case err == sentinel.ErrAlreadyClosed:
				alreadyClosed.Add(1)
			default:
				t.Errorf("unexpected close error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), closedCount.Load(), "exactly one close must win")
	assert.Equal(t, int32(closers-1), alreadyClosed.Load())
}

func TestInMemoryLedger_ListDay(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewInMemoryLedger()
	orgID := id.OrgID(uuid.New())
	key := day.Bucket(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.UTC)

	times := []time.Time{
		time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, checkIn := range times {
		record := newOpenRecord(t, orgID, id.SubjectID(uuid.New()), checkIn)
		require.NoError(t, ledger.CreateSession(ctx, record))
	}
	// Another org's record must not appear.
	other := newOpenRecord(t, id.OrgID(uuid.New()), id.SubjectID(uuid.New()), times[0])
	require.NoError(t, ledger.CreateSession(ctx, other))

	records, err := ledger.ListDay(ctx, orgID, key)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].CheckInTime.Before(records[1].CheckInTime))
	assert.True(t, records[1].CheckInTime.Before(records[2].CheckInTime))
}
