package server

import (
	"net/http"

	"studio-portal/internal/auth"
	ws "studio-portal/internal/websocket"
)

// handleWebSocket streams change events for one session to its owner (or to
// studio staff).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session required", http.StatusBadRequest)
		return
	}

	var err error
	if p.IsAdmin() {
		_, err = s.studio.Session(r.Context(), p, sessionID)
	} else {
		_, err = s.svc.Session(r.Context(), p, sessionID)
	}
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	client := &ws.Client{
		Hub:       s.hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		SessionID: sessionID,
		UserID:    p.UserID,
	}
	if !s.hub.Join(client) {
		conn.Close()
		return
	}
	s.logger.Debug("websocket joined", "session_id", sessionID, "user_id", p.UserID)

	go client.WritePump()
	go client.ReadPump()
}
