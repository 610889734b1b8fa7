package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

// Authenticator checks a user's credentials. It returns nil for a mismatch.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

// RequireUser checks HTTP Basic credentials and populates AuthContext.
// Clients that fail too often are refused until their window passes; clients
// are told apart by proxies.ClientIP.
func RequireUser(users Authenticator, guard *LoginGuard, proxies TrustedProxies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			if guard.Blocked(ip) {
				writeError(w, http.StatusTooManyRequests, "too many failed attempts")
				return
			}

			email, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			user, err := users.Authenticate(r.Context(), email, password)
			if err != nil {
				logger.Error("authenticate", "error", err)
				writeError(w, http.StatusServiceUnavailable, "try again")
				return
			}
			if user == nil {
				guard.Fail(ip)
				unauthorized(w)
				return
			}
			guard.Reset(ip)

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: user.ID, Email: user.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="larder", charset="UTF-8"`)
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
