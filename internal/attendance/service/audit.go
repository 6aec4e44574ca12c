package service

import (
	"context"
	"log/slog"

	"gymgate/internal/attendance/models"
	"gymgate/internal/audit"
	id "gymgate/pkg/domain"
	"gymgate/pkg/requestcontext"
)

// auditEmitter wraps the optional publisher so call sites stay clean when
// auditing is disabled. Emission failures are logged, never propagated: the
// ledger is the system of record.
type auditEmitter struct {
	publisher audit.Publisher
	logger    *slog.Logger
}

func newAuditEmitter(publisher audit.Publisher, logger *slog.Logger) *auditEmitter {
	return &auditEmitter{publisher: publisher, logger: logger}
}

func (e *auditEmitter) checkedIn(ctx context.Context, record *models.Record) {
	e.emit(ctx, audit.Event{
		Type:        audit.EventCheckedIn,
		Timestamp:   record.CheckInTime,
		OrgID:       record.OrgID,
		SubjectID:   record.Subject.ID,
		SubjectKind: string(record.Subject.Kind),
		RecordID:    record.ID.String(),
		EntryMethod: string(record.EntryMethod),
		DeviceID:    record.DeviceID,
	})
}

func (e *auditEmitter) checkedOut(ctx context.Context, record *models.Record) {
	event := audit.Event{
		Type:            audit.EventCheckedOut,
		OrgID:           record.OrgID,
		SubjectID:       record.Subject.ID,
		SubjectKind:     string(record.Subject.Kind),
		RecordID:        record.ID.String(),
		EntryMethod:     string(record.EntryMethod),
		DeviceID:        record.DeviceID,
		DurationMinutes: record.DurationMinutes,
	}
	if record.CheckOutTime != nil {
		event.Timestamp = *record.CheckOutTime
	}
	e.emit(ctx, event)
}

func (e *auditEmitter) denied(ctx context.Context, orgID id.OrgID, subject id.Subject, reason string) {
	e.emit(ctx, audit.Event{
		Type:        audit.EventDenied,
		OrgID:       orgID,
		SubjectID:   subject.ID,
		SubjectKind: string(subject.Kind),
		Reason:      reason,
	})
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) {
	if e.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to emit attendance event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
