package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/models"
	"github.com/san-kum/pose-analyzer/server/session"
)

// WebSocketHandler is the live ingestion channel: the browser runs the pose
// model and streams landmark frames here; metrics, rollover aggregates, and
// the final report flow back on the same connection.
type WebSocketHandler struct {
	manager  *session.Manager
	sink     *ReportSink
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

type ClientMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type startPayload struct {
	Duration int `json:"duration"`
}

// framePayload carries one pose observation. A missing landmarks field means
// the detector saw no pose this frame, which is distinct from an invalid
// (too short) landmark list.
type framePayload struct {
	Landmarks []models.Landmark `json:"landmarks"`
	Timestamp int64             `json:"timestamp"`
}

// wsConn serializes writes; aggregates and completion messages arrive from
// the session's own goroutines while the read loop replies to frames.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(logger *zap.Logger, messageType string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.WriteJSON(ServerMessage{Type: messageType, Data: data}); err != nil {
		logger.Error("Failed to send WebSocket message",
			zap.String("type", messageType),
			zap.Error(err))
	}
}

func NewWebSocketHandler(manager *session.Manager, sink *ReportSink, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		sink:    sink,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	clientIP := c.ClientIP()
	h.logger.Info("WebSocket client connected", zap.String("client_ip", clientIP))

	ws := &wsConn{conn: conn}
	ctrl := h.manager.Create()
	defer h.manager.Remove(ctrl.ID())

	ctrl.SetCallbacks(
		func(agg *models.SecondAggregate) {
			ws.send(h.logger, "aggregate", agg)
		},
		func(report *models.SessionReport) {
			h.sink.Persist(context.Background(), report, clientIP)
			ws.send(h.logger, "complete", report)
		},
	)

	ws.send(h.logger, "session", gin.H{"session_id": ctrl.ID()})

	conn.SetReadLimit(1024 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	go h.pingRoutine(ws, ticker, done)
	defer close(done)

	for {
		var message ClientMessage
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.handleMessage(ws, ctrl, clientIP, &message)
	}
}

func (h *WebSocketHandler) handleMessage(ws *wsConn, ctrl *session.Controller, clientIP string, message *ClientMessage) {
	switch message.Type {
	case "start":
		var payload startPayload
		if len(message.Data) > 0 {
			if err := json.Unmarshal(message.Data, &payload); err != nil {
				h.sendError(ws, "Invalid start payload")
				return
			}
		}
		ctrl.Start(payload.Duration)
		ws.send(h.logger, "started", gin.H{"session_id": ctrl.ID()})

	case "frame":
		h.handleFrame(ws, ctrl, message)

	case "stop":
		// Stop on an idle session (already stopped, or auto-completed) is
		// a no-op returning the last report; only a running session's stop
		// persists, otherwise the report would be stored twice.
		wasRunning := ctrl.Running()
		report := ctrl.Stop()
		if wasRunning && report != nil {
			h.sink.Persist(context.Background(), report, clientIP)
		}
		ws.send(h.logger, "complete", report)

	case "reset":
		ctrl.Reset()
		ws.send(h.logger, "reset", gin.H{"session_id": ctrl.ID()})

	case "insights":
		ws.send(h.logger, "insights", ctrl.Insights())

	case "ping":
		ws.send(h.logger, "pong", gin.H{"timestamp": time.Now().Unix()})

	default:
		h.logger.Warn("Unknown message type received", zap.String("type", message.Type))
		h.sendError(ws, "Unknown message type: "+message.Type)
	}
}

func (h *WebSocketHandler) handleFrame(ws *wsConn, ctrl *session.Controller, message *ClientMessage) {
	var payload framePayload
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		h.sendError(ws, "Invalid frame payload")
		return
	}

	// Absent landmarks means the detector found no pose this frame; the
	// dashboard renders that state explicitly.
	if payload.Landmarks == nil {
		ws.send(h.logger, "no_pose", gin.H{"timestamp": payload.Timestamp})
		return
	}

	timestamp := payload.Timestamp
	if timestamp == 0 {
		timestamp = message.Timestamp
	}

	features := ctrl.ProcessFrame(payload.Landmarks, timestamp)
	if features == nil {
		// Dropped: session idle or too few landmarks. Non-fatal; the
		// next frame is processed normally.
		return
	}

	ws.send(h.logger, "features", features)
}

func (h *WebSocketHandler) sendError(ws *wsConn, errorMsg string) {
	ws.send(h.logger, "error", gin.H{
		"message":   errorMsg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *WebSocketHandler) pingRoutine(ws *wsConn, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			ws.mu.Lock()
			ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := ws.conn.WriteMessage(websocket.PingMessage, nil)
			ws.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
