package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/internal/dashboard"
	"github.com/zoobzio/chartz/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is pushed to websocket clients.
type Message struct {
	Type  string            `json:"type"`
	Chart *dashboard.Status `json:"chart,omitempty"`
	Theme chartz.Theme      `json:"theme,omitempty"`
	Error string            `json:"error,omitempty"`
}

type clientMessage struct {
	Type  string `json:"type"`
	Chart string `json:"chart"`
}

// streamHandler streams chart status updates to websocket clients.
type streamHandler struct {
	dash *dashboard.Dashboard
	log  *logging.Logger
}

func (h *streamHandler) handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan Message, sendBuffer)
	push := func(m Message) {
		select {
		case send <- m:
		default:
			h.log.Debug("websocket client too slow, dropping update", zap.String("type", m.Type))
		}
	}

	var unsubs []func()
	for _, ch := range h.dash.Charts() {
		ch := ch
		unsubs = append(unsubs, ch.Pipeline.Subscribe(func(chartz.Presentation) {
			st := ch.Status()
			push(Message{Type: "status", Chart: &st})
		}))
	}
	unsubs = append(unsubs, h.dash.Themes().Subscribe(func(t chartz.Theme) {
		push(Message{Type: "theme", Theme: t})
	}))
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	push(Message{Type: "theme", Theme: h.dash.Themes().Theme()})
	for _, ch := range h.dash.Charts() {
		st := ch.Status()
		push(Message{Type: "status", Chart: &st})
	}

	done := make(chan struct{})
	go h.read(conn, push, done)
	h.write(conn, send, done)
}

// read handles client requests until the connection fails.
func (h *streamHandler) read(conn *websocket.Conn, push func(Message), done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // next read fails anyway
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			push(Message{Type: "pong"})
		case "refresh":
			ch, ok := h.dash.Chart(msg.Chart)
			if !ok {
				push(Message{Type: "error", Error: "chart not found"})
				continue
			}
			if r := ch.Pipeline.Presentation().Refresh; r != nil {
				r()
			}
		default:
			push(Message{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *streamHandler) write(conn *websocket.Conn, send <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case m := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
