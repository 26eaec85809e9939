package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/services"
	"github.com/yoockh/bookbot/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 64 << 10
)

type WSHandler struct {
	chat     services.ChatService
	upgrader websocket.Upgrader
	log      *logrus.Logger
	// pongWait is how long an idle client may go without a pong.
	// Pings go out at 9/10 of it.
	pongWait time.Duration
}

func NewWSHandler(chat services.ChatService, checkOrigin func(*http.Request) bool, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &WSHandler{
		chat:     chat,
		log:      log,
		pongWait: wsPongWait,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
}

type wsClientMsg struct {
	Prompt        string `json:"prompt"`
	GenerateImage *bool  `json:"generate_image"`
}

type wsServerMsg struct {
	Type string `json:"type"` // answer|error

	*services.ChatResponse

	Code    utils.Code `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
	Blocked bool       `json:"blocked,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// Chat answers each text frame with one frame, in order.
func (h *WSHandler) Chat(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go func() {
		t := time.NewTicker(h.pongWait * 9 / 10)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	reqID := requestID(c)
	for {
		// the idle clock restarts per frame; time spent in a chat turn is not idle
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Error: "invalid json"})
			continue
		}

		resp, err := h.chat.Chat(ctx, services.ChatRequest{
			Prompt:        msg.Prompt,
			GenerateImage: msg.GenerateImage,
			Username:      username,
			RequestID:     reqID,
			Source:        "ws",
		})
		if err != nil {
			out := wsServerMsg{Type: "error", Code: utils.CodeInternal, Error: "internal error"}
			var ae *utils.AppError
			if errors.As(err, &ae) {
				out.Code, out.Error = ae.Code, ae.Message
			}
			h.log.WithError(err).WithField("request_id", reqID).Warn("ws chat failed")
			if werr := wc.writeJSON(out); werr != nil {
				return
			}
			continue
		}

		out := wsServerMsg{Type: "answer", Blocked: resp.Blocked}
		if resp.Blocked {
			out.ChatResponse = &services.ChatResponse{Message: resp.Message}
		} else {
			out.ChatResponse = resp
		}
		if err := wc.writeJSON(out); err != nil {
			return
		}
	}
}
