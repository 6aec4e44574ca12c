package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/httputil"
	"gymgate/pkg/requestcontext"
)

// staffClaims are the claims staff tokens carry. The org claim scopes every
// downstream read and write to one tenant.
type staffClaims struct {
	OrgID string `json:"org_id"`
	jwt.RegisteredClaims
}

// RequireAuth validates the Bearer token and injects the authenticated
// organization into the request context.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			claims := &staffClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(signingKey), nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			orgID, err := id.ParseOrgID(claims.OrgID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token without org claim",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token missing organization claim"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithOrgID(ctx, orgID)))
		})
	}
}

// IssueStaffToken mints a staff token for the given organization. Used by
// provisioning tooling and tests.
func IssueStaffToken(signingKey string, orgID id.OrgID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, staffClaims{OrgID: orgID.String()})
	return token.SignedString([]byte(signingKey))
}
