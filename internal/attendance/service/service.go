// Package service orchestrates the check-in/check-out state machine.
//
// Per (org, subject, day) the states are NoSession -> Open -> Closed, with
// Closed terminal for the day. Two entry protocols drive the machine: the
// manual path is single-shot and subscription-gated; the biometric path
// toggles between check-in and check-out.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gymgate/internal/attendance/day"
	attmetrics "gymgate/internal/attendance/metrics"
	"gymgate/internal/attendance/models"
	"gymgate/internal/audit"
	"gymgate/internal/biometric"
	"gymgate/internal/directory"
	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/sentinel"
	"gymgate/pkg/requestcontext"
)

// Ledger is the sole writer of attendance records. Implementations enforce
// the one-session-per-bucket invariant atomically; this service never
// relies on its own read-then-write for correctness.
type Ledger interface {
	FindOpenSession(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error)
	FindByDay(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID, key day.Key) (*models.Record, error)
	CreateSession(ctx context.Context, record *models.Record) error
	CloseSession(ctx context.Context, orgID id.OrgID, recordID id.RecordID, checkOut time.Time) (*models.Record, error)
	ListDay(ctx context.Context, orgID id.OrgID, key day.Key) ([]*models.Record, error)
}

// Service wires the gate, directory, resolver and ledger into the two entry
// protocols.
type Service struct {
	ledger     Ledger
	directory  directory.Store
	settings   directory.SettingsStore
	resolver   biometric.Resolver
	gatePolicy subscription.GatePolicy
	metrics    *attmetrics.Metrics
	audit      *auditEmitter
	logger     *slog.Logger
	tracer     trace.Tracer
}

type serviceConfig struct {
	resolver   biometric.Resolver
	gatePolicy subscription.GatePolicy
	metrics    *attmetrics.Metrics
	publisher  audit.Publisher
	logger     *slog.Logger
}

type Option func(*serviceConfig)

// WithResolver supplies the external biometric matcher.
func WithResolver(resolver biometric.Resolver) Option {
	return func(cfg *serviceConfig) { cfg.resolver = resolver }
}

// WithGatePolicy selects which entry paths the subscription gate covers.
func WithGatePolicy(policy subscription.GatePolicy) Option {
	return func(cfg *serviceConfig) { cfg.gatePolicy = policy }
}

// WithMetrics enables attendance metrics.
func WithMetrics(m *attmetrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

// WithAuditPublisher enables attendance event emission.
func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(cfg *serviceConfig) { cfg.publisher = publisher }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

func New(ledger Ledger, dir directory.Store, settings directory.SettingsStore, opts ...Option) *Service {
	cfg := &serviceConfig{gatePolicy: subscription.GateManualOnly}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ledger:     ledger,
		directory:  dir,
		settings:   settings,
		resolver:   cfg.resolver,
		gatePolicy: cfg.gatePolicy,
		metrics:    cfg.metrics,
		audit:      newAuditEmitter(cfg.publisher, cfg.logger),
		logger:     cfg.logger,
		tracer:     otel.Tracer("gymgate/attendance"),
	}
}

// ManualCheckInRequest identifies the subject by explicit id or membership
// number. Exactly one selector is required.
type ManualCheckInRequest struct {
	SubjectID        string
	MembershipNumber string
}

// CheckInResult is the stable view returned on a successful check-in.
type CheckInResult struct {
	RecordID         id.RecordID
	SubjectName      string
	SubjectKind      id.SubjectKind
	MembershipNumber string
	PlanName         string
	CheckInTime      time.Time
	EntryMethod      models.EntryMethod
}

// ManualCheckIn runs the manual protocol: resolve, gate, single-shot
// create. It never closes a session; the front desk records entries only.
func (s *Service) ManualCheckIn(ctx context.Context, orgID id.OrgID, req ManualCheckInRequest) (*CheckInResult, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.ManualCheckIn")
	defer span.End()
	start := time.Now()

	profile, err := s.resolveSubject(ctx, orgID, req)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if profile.Subscription != nil {
		decision := subscription.Admit(*profile.Subscription, now)
		if !decision.Admitted {
			s.recordDenial(ctx, orgID, profile.Subject, string(dErrors.CodeSubscriptionInactive))
			return nil, dErrors.New(dErrors.CodeSubscriptionInactive, decision.Reason).
				WithDetail("subject_status", string(decision.Status)).
				WithDetail("subject_status_end_date", decision.EndDate.Format(time.RFC3339))
		}
	}

	key, loc, err := s.bucketFor(ctx, orgID, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.FindByDay(ctx, orgID, profile.Subject.ID, key); err == nil {
		s.recordDenial(ctx, orgID, profile.Subject, string(dErrors.CodeAlreadyCheckedIn))
		return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn, "already checked in today")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storageErr(err)
	}

	record, err := s.openSession(ctx, orgID, profile.Subject, profile.Name, now, loc, models.EntryManual, models.VerifyManual)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			// A concurrent writer won the bucket; for the single-shot manual
			// protocol that is the same user-facing outcome.
			s.recordDenial(ctx, orgID, profile.Subject, string(dErrors.CodeAlreadyCheckedIn))
			return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn, "already checked in today")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCheckIn(string(models.EntryManual))
		s.metrics.ObserveManualCheckIn(start)
	}
	s.audit.checkedIn(ctx, record)

	return &CheckInResult{
		RecordID:         record.ID,
		SubjectName:      profile.Name,
		SubjectKind:      profile.Subject.Kind,
		MembershipNumber: profile.MembershipNumber,
		PlanName:         profile.PlanName,
		CheckInTime:      record.CheckInTime,
		EntryMethod:      record.EntryMethod,
	}, nil
}

// PunchAction is the outcome of a biometric punch.
type PunchAction string

const (
	ActionCheckIn  PunchAction = "check-in"
	ActionCheckOut PunchAction = "check-out"
)

// PunchResult reports which transition a biometric punch caused.
type PunchResult struct {
	Action          PunchAction
	RecordID        id.RecordID
	SubjectName     string
	SubjectKind     id.SubjectKind
	CheckInTime     time.Time
	CheckOutTime    *time.Time
	DurationMinutes int64
}

// BiometricPunch runs the toggling protocol: an open session closes, an
// empty bucket opens. A completed bucket is terminal and conflicts.
func (s *Service) BiometricPunch(ctx context.Context, orgID id.OrgID, kind biometric.Kind, sample []byte) (*PunchResult, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.BiometricPunch")
	defer span.End()
	start := time.Now()

	if s.resolver == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "no biometric resolver configured")
	}
	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown biometric type")
	}

	identity, err := s.resolver.Resolve(ctx, orgID, kind, sample)
	if err != nil {
		if errors.Is(err, biometric.ErrNotRecognized) {
			s.recordDenial(ctx, orgID, id.Subject{}, string(dErrors.CodeNotRecognized))
			return nil, dErrors.New(dErrors.CodeNotRecognized, "biometric sample not recognized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "biometric resolver unavailable")
	}

	if s.gatePolicy.AppliesToBiometric() {
		if err := s.gateBiometric(ctx, orgID, identity.Subject); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	key, loc, err := s.bucketFor(ctx, orgID, now)
	if err != nil {
		return nil, err
	}

	result, err := s.punchOnce(ctx, orgID, identity, key, loc, kind, now)
	if err == nil {
		if s.metrics != nil {
			s.metrics.ObservePunch(start)
		}
		return result, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeConflict) {
		return nil, err
	}

	// The ledger reported a race; the other writer's outcome is visible
	// now, so re-fetch and re-decide exactly once.
	result, err = s.punchOnce(ctx, orgID, identity, key, loc, kind, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.IncrementConflict()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObservePunch(start)
	}
	return result, nil
}

// punchOnce performs a single decide-and-write pass of the toggle protocol.
// Races surface as CodeConflict for the caller's one retry.
func (s *Service) punchOnce(ctx context.Context, orgID id.OrgID, identity biometric.Identity, key day.Key, loc *time.Location, kind biometric.Kind, now time.Time) (*PunchResult, error) {
	existing, err := s.ledger.FindByDay(ctx, orgID, identity.Subject.ID, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		record, err := s.openSession(ctx, orgID, identity.Subject, identity.DisplayName, now, loc, models.EntryBiometric, verificationFor(kind))
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.IncrementCheckIn(string(models.EntryBiometric))
		}
		s.audit.checkedIn(ctx, record)
		return &PunchResult{
			Action:      ActionCheckIn,
			RecordID:    record.ID,
			SubjectName: record.UserName,
			SubjectKind: record.Subject.Kind,
			CheckInTime: record.CheckInTime,
		}, nil

	case err != nil:
		return nil, storageErr(err)

	case existing.IsOpen():
		closed, err := s.ledger.CloseSession(ctx, orgID, existing.ID, now)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrAlreadyClosed):
				return nil, dErrors.New(dErrors.CodeConflict, "session was closed concurrently")
			case errors.Is(err, sentinel.ErrInvalidState):
				// Unreachable while checkout time is always "now"; kept so a
				// clock regression fails loudly instead of corrupting data.
				return nil, dErrors.New(dErrors.CodeInvariantViolation, "checkout would precede check-in")
			case errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.New(dErrors.CodeConflict, "session disappeared during close")
			default:
				return nil, storageErr(err)
			}
		}
		if s.metrics != nil {
			s.metrics.IncrementCheckOut(closed.DurationMinutes)
		}
		s.audit.checkedOut(ctx, closed)
		return &PunchResult{
			Action:          ActionCheckOut,
			RecordID:        closed.ID,
			SubjectName:     closed.UserName,
			SubjectKind:     closed.Subject.Kind,
			CheckInTime:     closed.CheckInTime,
			CheckOutTime:    closed.CheckOutTime,
			DurationMinutes: closed.DurationMinutes,
		}, nil

	default:
		// Closed is terminal for the bucket; one session per day.
		return nil, dErrors.New(dErrors.CodeConflict, "attendance already completed for today")
	}
}

// ListDay returns the organization's attendance for the day containing on.
func (s *Service) ListDay(ctx context.Context, orgID id.OrgID, on time.Time) ([]*models.Record, error) {
	key, _, err := s.bucketFor(ctx, orgID, on)
	if err != nil {
		return nil, err
	}
	records, err := s.ledger.ListDay(ctx, orgID, key)
	if err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

// ListDate returns attendance for a calendar date interpreted in the
// organization's timezone.
func (s *Service) ListDate(ctx context.Context, orgID id.OrgID, year int, month time.Month, dayOfMonth int) ([]*models.Record, error) {
	settings, err := s.settings.Settings(ctx, orgID)
	if err != nil {
		return nil, storageErr(err)
	}
	loc := settings.Timezone
	if loc == nil {
		loc = time.UTC
	}
	key := day.Bucket(time.Date(year, month, dayOfMonth, 0, 0, 0, 0, loc), loc)
	records, err := s.ledger.ListDay(ctx, orgID, key)
	if err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

func (s *Service) resolveSubject(ctx context.Context, orgID id.OrgID, req ManualCheckInRequest) (*directory.Profile, error) {
	var (
		profile *directory.Profile
		err     error
	)
	switch {
	case req.SubjectID != "":
		subjectID, parseErr := id.ParseSubjectID(req.SubjectID)
		if parseErr != nil {
			return nil, parseErr
		}
		profile, err = s.directory.FindByID(ctx, orgID, subjectID)
	case req.MembershipNumber != "":
		profile, err = s.directory.FindByMembershipNumber(ctx, orgID, req.MembershipNumber)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject id or membership number is required")
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return nil, storageErr(err)
	}
	return profile, nil
}

func (s *Service) gateBiometric(ctx context.Context, orgID id.OrgID, subject id.Subject) error {
	profile, err := s.directory.FindByID(ctx, orgID, subject.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return storageErr(err)
	}
	if profile.Subscription == nil {
		return nil
	}
	decision := subscription.Admit(*profile.Subscription, requestcontext.Now(ctx))
	if !decision.Admitted {
		s.recordDenial(ctx, orgID, subject, string(dErrors.CodeSubscriptionInactive))
		return dErrors.New(dErrors.CodeSubscriptionInactive, decision.Reason).
			WithDetail("subject_status", string(decision.Status)).
			WithDetail("subject_status_end_date", decision.EndDate.Format(time.RFC3339))
	}
	return nil
}

// bucketFor resolves the org's timezone and buckets now into its day key.
func (s *Service) bucketFor(ctx context.Context, orgID id.OrgID, now time.Time) (day.Key, *time.Location, error) {
	settings, err := s.settings.Settings(ctx, orgID)
	if err != nil {
		return day.Key{}, nil, storageErr(err)
	}
	loc := settings.Timezone
	if loc == nil {
		loc = time.UTC
	}
	return day.Bucket(now, loc), loc, nil
}

// openSession builds and atomically inserts an open record. Ledger
// conflicts come back as CodeConflict for the caller to map or retry.
func (s *Service) openSession(ctx context.Context, orgID id.OrgID, subject id.Subject, userName string, now time.Time, loc *time.Location, entry models.EntryMethod, verification models.VerificationMethod) (*models.Record, error) {
	record, err := models.NewRecord(orgID, subject, now, loc)
	if err != nil {
		return nil, err
	}
	record.EntryMethod = entry
	record.VerificationMethod = verification
	record.DeviceID = requestcontext.DeviceID(ctx)
	record.Location = requestcontext.Location(ctx)
	if entry == models.EntryBiometric {
		record.UserName = userName
	}

	if err := s.ledger.CreateSession(ctx, record); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyOpen), errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "lost session create to a concurrent writer")
		default:
			return nil, storageErr(err)
		}
	}
	return record, nil
}

func (s *Service) recordDenial(ctx context.Context, orgID id.OrgID, subject id.Subject, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementDenial(reason)
	}
	s.audit.denied(ctx, orgID, subject, reason)
}

func verificationFor(kind biometric.Kind) models.VerificationMethod {
	switch kind {
	case biometric.KindFingerprint:
		return models.VerifyFingerprint
	case biometric.KindFace:
		return models.VerifyFace
	case biometric.KindCard:
		return models.VerifyCard
	default:
		return ""
	}
}

// storageErr marks infrastructure failures as transient so clients can
// distinguish "try again" from a business-rule denial.
func storageErr(err error) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "attendance storage unavailable")
}
