package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gymgate/internal/attendance/models"
	"gymgate/internal/attendance/service"
	"gymgate/internal/biometric"
	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/httputil"
	"gymgate/pkg/requestcontext"
)

// Service defines the interface for attendance operations.
type Service interface {
	ManualCheckIn(ctx context.Context, orgID id.OrgID, req service.ManualCheckInRequest) (*service.CheckInResult, error)
	BiometricPunch(ctx context.Context, orgID id.OrgID, kind biometric.Kind, sample []byte) (*service.PunchResult, error)
	ListDay(ctx context.Context, orgID id.OrgID, on time.Time) ([]*models.Record, error)
	ListDate(ctx context.Context, orgID id.OrgID, year int, month time.Month, dayOfMonth int) ([]*models.Record, error)
}

// Handler wires attendance endpoints to the attendance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an attendance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts all attendance endpoints on one router. Production routing
// splits them across RegisterStaff and RegisterDevice instead.
func (h *Handler) Register(r chi.Router) {
	h.RegisterStaff(r)
	h.RegisterDevice(r)
}

// RegisterStaff mounts the front-desk endpoints (staff token auth).
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Post("/attendance/check-in", h.HandleCheckIn)
	r.Get("/attendance", h.HandleList)
}

// RegisterDevice mounts the scanner endpoint (device credential auth).
func (h *Handler) RegisterDevice(r chi.Router) {
	r.Post("/attendance/punch", h.HandlePunch)
}

// HandleCheckIn handles POST /attendance/check-in requests.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	orgID, ok := h.requireOrg(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.ManualCheckIn(ctx, orgID, service.ManualCheckInRequest{
		SubjectID:        req.SubjectID,
		MembershipNumber: req.MembershipNumber,
	})
	if err != nil {
		h.logDenied(ctx, "manual check-in", requestID, orgID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual check-in recorded",
		"request_id", requestID,
		"org_id", orgID,
		"record_id", result.RecordID,
		"subject_kind", result.SubjectKind,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromCheckInResult(result))
}

// HandlePunch handles POST /attendance/punch requests.
func (h *Handler) HandlePunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	orgID, ok := h.requireOrg(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[PunchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.BiometricPunch(ctx, orgID, req.ParsedKind(), req.ParsedSample())
	if err != nil {
		h.logDenied(ctx, "biometric punch", requestID, orgID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "biometric punch recorded",
		"request_id", requestID,
		"org_id", orgID,
		"record_id", result.RecordID,
		"action", result.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusCreated
	if result.Action == service.ActionCheckOut {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromPunchResult(result))
}

// HandleList handles GET /attendance requests. An optional ?date=YYYY-MM-DD
// selects a calendar day in the organization's timezone; default is today.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orgID, ok := h.requireOrg(w, ctx)
	if !ok {
		return
	}

	var (
		records []*models.Record
		err     error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, parseErr := parseDate(raw)
		if parseErr != nil {
			httputil.WriteError(w, parseErr)
			return
		}
		year, month, dayOfMonth := date.Date()
		records, err = h.service.ListDate(ctx, orgID, year, month, dayOfMonth)
	} else {
		records, err = h.service.ListDay(ctx, orgID, requestcontext.Now(ctx))
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "attendance listing failed",
			"request_id", requestID,
			"org_id", orgID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

func (h *Handler) requireOrg(w http.ResponseWriter, ctx context.Context) (id.OrgID, bool) {
	orgID := requestcontext.OrgID(ctx)
	if orgID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.OrgID{}, false
	}
	return orgID, true
}

// logDenied logs business denials at warn and everything else at error.
func (h *Handler) logDenied(ctx context.Context, op, requestID string, orgID id.OrgID, err error) {
	attrs := []any{
		"request_id", requestID,
		"org_id", orgID,
		"error", err,
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeSubscriptionInactive, dErrors.CodeNotRecognized,
		dErrors.CodeAlreadyCheckedIn, dErrors.CodeConflict:
		h.logger.WarnContext(ctx, op+" denied", attrs...)
	default:
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	}
}
