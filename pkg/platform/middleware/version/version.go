// Package version provides middleware for API version extraction and validation.
package version

import (
	"encoding/json"
	"log/slog"
	"net/http"

	id "toolbox/pkg/domain"
	"toolbox/pkg/requestcontext"
)

// ExtractVersion sets the route's API version in the context. Chi's
// r.Route("/v1", ...) already decided the version by matching the prefix.
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateTokenVersion rejects tokens issued for a newer API version than the
// route serves. Tokens without a version claim are treated as v1.
//
// Must run after ExtractVersion and the auth middleware.
func ValidateTokenVersion(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			routeVersion := requestcontext.APIVersion(ctx)
			if routeVersion.IsNil() {
				logger.ErrorContext(ctx, "version validation failed: route version not set",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeVersionError(w, http.StatusInternalServerError, "internal_error", "route version not configured")
				return
			}

			tokenVersion := requestcontext.TokenAPIVersion(ctx)
			if tokenVersion.IsNil() {
				tokenVersion = id.APIVersionV1
			}

			if !routeVersion.IsAtLeast(tokenVersion) {
				logger.WarnContext(ctx, "cross-version token rejected",
					"token_version", tokenVersion.String(),
					"route_version", routeVersion.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeVersionError(w, http.StatusUnauthorized, "unauthorized", "token not valid for this API version")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type versionErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func writeVersionError(w http.ResponseWriter, statusCode int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(versionErrorResponse{
		Error:            errCode,
		ErrorDescription: description,
	})
}
