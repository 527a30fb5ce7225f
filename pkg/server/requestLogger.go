package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/d4l-data4life/go-mcp-registry/pkg/handlers"
	"github.com/d4l-data4life/go-svc/pkg/log"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// RequestLogger sets up the middleware to log requests
func RequestLogger() func(http.Handler) http.Handler {
	return logging.Logger().HTTPMiddleware(
		log.WithUserParser(getUserIDFromContext),
		log.WithCallerIPParser(getCallerIPFromRequest),
		LogObfuscators(),
	)
}

// getUserIDFromContext extracts the authenticated user id for log
// correlation; unauthenticated requests log an empty user.
func getUserIDFromContext(r *http.Request) string {
	userID := handlers.GetUserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return ""
	}
	return userID.String()
}

// getCallerIPFromRequest is used by the logger to extract the caller's IP address
func getCallerIPFromRequest(r *http.Request) string {
	return r.RemoteAddr
}

// LogObfuscators returns log obfuscators for use with the http logging middleware
func LogObfuscators() func(*log.HTTPLogger) {
	return log.WithObfuscators()
}
