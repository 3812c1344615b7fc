package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// AlertHub pushes price-drop alerts to connected websocket clients. The
// scheduler's sweep job feeds it; clients only receive.
type AlertHub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []*contracts.PriceDropAlert
}

// NewAlertHub creates an empty alert hub.
func NewAlertHub(log *logger.Logger) *AlertHub {
	return &AlertHub{
		logger: log.WithComponent("api.alerthub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan []*contracts.PriceDropAlert),
	}
}

// Broadcast sends the current alert set to every connected client. Slow
// clients drop the update rather than blocking the sweep.
func (h *AlertHub) Broadcast(alerts []*contracts.PriceDropAlert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.clients {
		select {
		case ch <- alerts:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *AlertHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades the connection and streams alerts until the client
// disconnects
// GET /ws/alerts
func (h *AlertHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	ch := make(chan []*contracts.PriceDropAlert, 1)

	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Alert client connected")

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

// writeLoop forwards alert sets and keeps the connection alive with pings.
func (h *AlertHub) writeLoop(conn *websocket.Conn, ch chan []*contracts.PriceDropAlert) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case alerts, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(map[string]interface{}{
				"type":   "price_drop_alerts",
				"alerts": alerts,
				"count":  len(alerts),
			}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames until the connection closes, then removes
// the client.
func (h *AlertHub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		ch := h.clients[conn]
		delete(h.clients, conn)
		h.mu.Unlock()

		if ch != nil {
			close(ch)
		}
		conn.Close()

		h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Alert client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
