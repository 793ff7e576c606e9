package http

import (
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type markersMessage struct {
	Type     string            `json:"type"`
	Revision uint64            `json:"revision"`
	Data     FeatureCollection `json:"data"`
}

type noticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newMarkersMessage(state mapview.State) markersMessage {
	return markersMessage{Type: "markers", Revision: state.Revision, Data: toGeoJSON(state.Markers)}
}

// handleWebSocket streams the marker layer after every surface change, plus
// notices, until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	states, cancelStates := s.surface.Subscribe()
	defer cancelStates()
	notices, cancelNotices := s.notices.Subscribe()
	defer cancelNotices()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	current := s.surface.Snapshot()
	if err := writeJSON(conn, newMarkersMessage(current)); err != nil {
		return
	}
	sent := current.Revision

	for {
		select {
		case <-closed:
			return
		case state := <-states:
			if state.Revision <= sent {
				continue
			}
			if err := writeJSON(conn, newMarkersMessage(state)); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
			sent = state.Revision
		case msg := <-notices:
			if err := writeJSON(conn, noticeMessage{Type: "notice", Message: msg}); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// readPump discards client messages and closes done when the connection drops.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
