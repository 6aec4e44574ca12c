// Package store persists attendance records.
//
// Both implementations enforce the ledger invariants at the storage layer:
// at most one record per (org, subject, day), at most one of them open, and
// a close that happens exactly once. Application-level read-then-write is
// never the sole safeguard.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymgate/internal/attendance/day"
	"gymgate/internal/attendance/models"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
)

// InMemoryLedger keeps attendance records under a single mutex, which makes
// the check-then-insert and compare-and-set transitions atomic by
// construction. For tests and local runs; production uses PostgresLedger.
type InMemoryLedger struct {
	mu      sync.Mutex
	records map[string]*models.Record // record id -> record
	byDay   map[string]string         // (org, subject, day) -> record id
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		records: make(map[string]*models.Record),
		byDay:   make(map[string]string),
	}
}

func bucketKey(orgID id.OrgID, subjectID id.SubjectID, key day.Key) string {
	return orgID.String() + "/" + subjectID.String() + "/" + key.Time().UTC().Format(time.RFC3339)
}

func copyRecord(record *models.Record) *models.Record {
	copied := *record
	if record.CheckOutTime != nil {
		out := *record.CheckOutTime
		copied.CheckOutTime = &out
	}
	return &copied
}

// FindOpenSession returns the open record for the bucket, or ErrNotFound.
func (l *InMemoryLedger) FindOpenSession(_ context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record := l.findByDayLocked(orgID, subjectID, key)
	if record == nil || !record.IsOpen() {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(record), nil
}

// FindByDay returns the bucket's record regardless of state, or ErrNotFound.
func (l *InMemoryLedger) FindByDay(_ context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record := l.findByDayLocked(orgID, subjectID, key)
	if record == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(record), nil
}

func (l *InMemoryLedger) findByDayLocked(orgID id.OrgID, subjectID id.SubjectID, key day.Key) *models.Record {
	if recordID, ok := l.byDay[bucketKey(orgID, subjectID, key)]; ok {
		return l.records[recordID]
	}
	return nil
}

// CreateSession inserts an open record. Fails with ErrAlreadyOpen when the
// bucket already holds an open session and ErrConflict when the bucket's
// session is already completed (closed is terminal for the day).
func (l *InMemoryLedger) CreateSession(_ context.Context, record *models.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := bucketKey(record.OrgID, record.Subject.ID, record.Day)
	if existingID, ok := l.byDay[key]; ok {
		if l.records[existingID].IsOpen() {
			return sentinel.ErrAlreadyOpen
		}
		return sentinel.ErrConflict
	}
	l.records[record.ID.String()] = copyRecord(record)
	l.byDay[key] = record.ID.String()
	return nil
}

// CloseSession transitions a record from open to closed exactly once.
func (l *InMemoryLedger) CloseSession(_ context.Context, orgID id.OrgID, recordID id.RecordID, checkOut time.Time) (*models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[recordID.String()]
	if !ok || record.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if err := record.CanClose(checkOut); err != nil {
		return nil, err
	}
	record.ApplyClose(checkOut)
	return copyRecord(record), nil
}

// ListDay returns the organization's records for a day, ordered by
// check-in time.
func (l *InMemoryLedger) ListDay(_ context.Context, orgID id.OrgID, key day.Key) ([]*models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*models.Record
	for _, record := range l.records {
		if record.OrgID == orgID && record.Day.Equal(key) {
			out = append(out, copyRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckInTime.Before(out[j].CheckInTime)
	})
	return out, nil
}
