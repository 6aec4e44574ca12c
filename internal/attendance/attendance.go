package attendance

import (
	"log/slog"

	"gymgate/internal/attendance/handler"
	"gymgate/internal/attendance/service"
	"gymgate/internal/directory"
)

// Service exposes the check-in/check-out state machine.
type Service = service.Service

// Handler wires HTTP endpoints to the attendance service.
type Handler = handler.Handler

// Option configures optional service dependencies.
type Option = service.Option

// NewService constructs the attendance service with required dependencies.
func NewService(ledger service.Ledger, dir directory.Store, settings directory.SettingsStore, opts ...Option) *Service {
	return service.New(ledger, dir, settings, opts...)
}

// NewHandler constructs an HTTP handler for attendance routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
