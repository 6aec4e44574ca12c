package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymgate/internal/attendance/models"
	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/sentinel"
)

func TestNewRecord(t *testing.T) {
	orgID := id.OrgID(uuid.New())
	subject := id.MemberSubject(id.SubjectID(uuid.New()))
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("opens a session with the day bucketed from check-in", func(t *testing.T) {
		record, err := models.NewRecord(orgID, subject, checkIn, time.UTC)
		require.NoError(t, err)

		assert.False(t, record.ID.IsZero())
		assert.True(t, record.IsOpen())
		assert.Equal(t, "2026-04-01", record.Day.String())
		assert.Zero(t, record.DurationMinutes)
	})

	t.Run("rejects zero org", func(t *testing.T) {
		_, err := models.NewRecord(id.OrgID{}, subject, checkIn, time.UTC)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid subject", func(t *testing.T) {
		_, err := models.NewRecord(orgID, id.Subject{}, checkIn, time.UTC)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero check-in time", func(t *testing.T) {
		_, err := models.NewRecord(orgID, subject, time.Time{}, time.UTC)
		require.Error(t, err)
	})
}

func TestRecordClose(t *testing.T) {
	orgID := id.OrgID(uuid.New())
	subject := id.TrainerSubject(id.SubjectID(uuid.New()))
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	newOpen := func(t *testing.T) *models.Record {
		t.Helper()
		record, err := models.NewRecord(orgID, subject, checkIn, time.UTC)
		require.NoError(t, err)
		return record
	}

	t.Run("close derives floor-minutes duration", func(t *testing.T) {
		record := newOpen(t)
		checkOut := checkIn.Add(90*time.Minute + 59*time.Second)

		require.NoError(t, record.CanClose(checkOut))
		record.ApplyClose(checkOut)

		assert.False(t, record.IsOpen())
		assert.Equal(t, int64(90), record.DurationMinutes)
	})

	t.Run("checkout equal to check-in closes with zero duration", func(t *testing.T) {
		record := newOpen(t)
		require.NoError(t, record.CanClose(checkIn))
		record.ApplyClose(checkIn)
		assert.Equal(t, int64(0), record.DurationMinutes)
	})

	t.Run("checkout before check-in is invalid", func(t *testing.T) {
		record := newOpen(t)
		err := record.CanClose(checkIn.Add(-time.Minute))
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("second close is rejected", func(t *testing.T) {
		record := newOpen(t)
		record.ApplyClose(checkIn.Add(time.Hour))
		err := record.CanClose(checkIn.Add(2 * time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyClosed)
	})
}

func TestDurationMinutes_Deterministic(t *testing.T) {
	checkIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(125*time.Minute + 30*time.Second)

	first := models.DurationMinutes(checkIn, checkOut)
	for range 10 {
		assert.Equal(t, first, models.DurationMinutes(checkIn, checkOut))
	}
	assert.Equal(t, int64(125), first)
}
