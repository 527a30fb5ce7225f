package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/d4l-data4life/go-mcp-registry/pkg/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// ContextKeyUserID is the context key for the authenticated user id
	ContextKeyUserID ContextKey = "userID"
	// ContextKeyBearerToken is the context key for the raw bearer token
	ContextKeyBearerToken ContextKey = "bearerToken"
)

// AuthMiddleware verifies the bearer token and stores the caller's
// user id in the request context.
func AuthMiddleware(validator auth.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Missing authorization token"})
				return
			}

			userID, err := userIDFromToken(validator, token)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Invalid or expired token"})
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			ctx = context.WithValue(ctx, ContextKeyBearerToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// query parameter fallback for clients that cannot set headers
	return r.URL.Query().Get("token")
}

// userIDFromToken validates the token and derives the user id from its
// claims: oid, then sub, then email. Non-UUID identifiers map to a
// deterministic UUID so the same caller always gets the same id.
func userIDFromToken(validator auth.TokenValidator, tokenStr string) (uuid.UUID, error) {
	parsed, err := validator.ValidateJWT(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	token := *parsed

	var subject string
	if oid, ok := token.Get("oid"); ok {
		subject, _ = oid.(string)
	} else if sub := token.Subject(); sub != "" {
		subject = sub
	} else if email, ok := token.Get("email"); ok {
		subject, _ = email.(string)
	}
	if subject == "" {
		return uuid.Nil, auth.ErrTokenValidation
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		userID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(subject))
	}
	return userID, nil
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(ctx context.Context) uuid.UUID {
	userID, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// GetBearerTokenFromContext retrieves the bearer token from the request context
func GetBearerTokenFromContext(ctx context.Context) string {
	token, ok := ctx.Value(ContextKeyBearerToken).(string)
	if !ok {
		return ""
	}
	return token
}
