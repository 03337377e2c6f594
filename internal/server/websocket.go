package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// defaultDevOrigins are accepted when no allow list is configured, so
// local dashboards work out of the box.
var defaultDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// newUpgrader builds a websocket upgrader whose origin check honors the
// configured allow list: empty list falls back to development origins,
// "*" allows everything, matching is case-insensitive, and requests
// without an Origin header (non-browser clients) are always allowed.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := allowedOrigins
	if len(allowed) == 0 {
		allowed = defaultDevOrigins
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			return false
		},
	}
}

// handleAlertsWS upgrades the connection and subscribes it to the alert
// hub until the client disconnects.
func (s *Server) handleAlertsWS(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader(s.config.Server.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s.log.Debug("alert subscriber connected", zap.String("remote", r.RemoteAddr))
	s.hub.Serve(s.ctx, conn)
	s.log.Debug("alert subscriber disconnected", zap.String("remote", r.RemoteAddr))
}
