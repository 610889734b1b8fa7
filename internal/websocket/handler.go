package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/larder/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client subscribed to the caller's own changes. Browsers resend Basic
// credentials on cross-site upgrades, so only same-origin requests and the
// given Origin host patterns are accepted.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID <= 0 {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "origin", r.Header.Get("Origin"), "error", err)
			return
		}

		NewClient(hub, conn, userID).Run(r.Context())
	}
}
