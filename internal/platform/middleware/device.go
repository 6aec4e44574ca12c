package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/mssola/useragent"

	"gymgate/internal/biometric"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/httputil"
	"gymgate/pkg/requestcontext"
)

const (
	deviceIDHeader     = "X-Device-ID"
	deviceSecretHeader = "X-Device-Secret"
)

// DeviceAuthenticator verifies device credentials.
type DeviceAuthenticator interface {
	Authenticate(ctx context.Context, deviceID, secret string) (biometric.Device, error)
}

// DeviceAuth authenticates scanning devices by credential headers. The
// device's organization scopes the request; devices never present staff
// tokens.
func DeviceAuth(registry DeviceAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deviceID := r.Header.Get(deviceIDHeader)
			secret := r.Header.Get(deviceSecretHeader)
			if deviceID == "" || secret == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "device credentials required"))
				return
			}

			device, err := registry.Authenticate(ctx, deviceID, secret)
			if err != nil {
				logger.WarnContext(ctx, "device authentication failed",
					"request_id", requestcontext.RequestID(ctx),
					"device_id", deviceID,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithOrgID(ctx, device.OrgID)
			ctx = requestcontext.WithDeviceID(ctx, device.ID)
			ctx = requestcontext.WithLocation(ctx, device.Location)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientMetadata captures the caller's IP and a normalized User-Agent for
// audit provenance.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}
		ua := useragent.New(r.UserAgent())
		name, version := ua.Browser()
		normalized := name
		if version != "" {
			normalized += "/" + version
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, normalized)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
