package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"lrpsolve/internal/progress"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// ProgressWSHandler streams progress events as JSON text frames:
// GET /v1/progress/ws?run=<run-id>. Without run every run is streamed. A
// single-run stream ends with a close frame after run.completed or run.failed.
func (s *Server) ProgressWSHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = progress.AllRuns
	}
	// Subscribe before the handshake completes so the client sees every
	// event published after its dial returns.
	ch := s.Broker.Subscribe(runID)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Broker.Unsubscribe(runID, ch)
		return
	}
	defer func() { _ = conn.Close() }()
	defer s.Broker.Unsubscribe(runID, ch)

	// Read loop handles pongs and notices when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1 << 16)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				closeNormal(conn, "stream closed")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if runID != progress.AllRuns && (evt.Type == progress.TypeRunCompleted || evt.Type == progress.TypeRunFailed) {
				closeNormal(conn, evt.Type)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func closeNormal(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
