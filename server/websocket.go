package server

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/desk-next/deskcli/queue"
	"github.com/desk-next/deskcli/utils"
)

type wsConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *Server) newUpgrader() *websocket.Upgrader {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if s.enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return upgrader
}

// handleMonitor streams completed-action events over a WebSocket. On
// connect, the retained recent events are replayed first so a late viewer
// sees history before live traffic.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := s.newUpgrader().Upgrade(w, r, nil)
	if err != nil {
		utils.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsConn := &wsConnection{conn: conn}

	for _, event := range s.queue.RecentEvents() {
		if err := wsConn.sendJSON(event); err != nil {
			return
		}
	}

	events, cancel := s.queue.Subscribe()
	defer cancel()

	// the read loop only exists to observe the peer closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				utils.Verbose("monitor connection closed: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := wsConn.sendJSON(event); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

func (wsc *wsConnection) sendJSON(event queue.Event) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	return wsc.conn.WriteJSON(event)
}
