package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/inkwell/internal/auth"
)

// HandleWebSocket upgrades connections and runs them as Hub clients scoped to
// the requester's company. originPatterns lists extra allowed origins; the
// request's own host is always allowed.
func HandleWebSocket(hub *Hub, logger *slog.Logger, originPatterns ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, auth.CompanyID(r.Context()))
		client.Run(r.Context())
	}
}
