package api

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"faculty-availability-backend/internal/hub"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 512
)

// ServeWS handles GET /ws. Every connection receives every status event;
// join_faculty and leave_faculty frames only maintain room membership.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	sub := h.hub.Subscribe(nil)
	done := make(chan struct{})
	go h.writePump(conn, sub, done)

	h.readPump(conn, sub)
	h.hub.Unsubscribe(sub)
	<-done
}

// readPump consumes client frames until the connection fails.
func (h *Handler) readPump(conn *websocket.Conn, sub *hub.Subscription) {
	pongWait := h.pingInterval * 10 / 9
	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}
		var frame hub.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case hub.FrameJoinFaculty:
			if frame.FacultyID > 0 {
				h.hub.Join(sub, frame.FacultyID)
			}
		case hub.FrameLeaveFaculty:
			h.hub.Leave(sub, frame.FacultyID)
		}
	}
}

// writePump is the only writer on conn. It exits when the subscription is
// closed or a write fails, and closes the connection either way.
func (h *Handler) writePump(conn *websocket.Conn, sub *hub.Subscription, done chan<- struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case ev, ok := <-sub.C():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(hub.Frame{Type: hub.FrameStatusUpdate, Data: &ev}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
