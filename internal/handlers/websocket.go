// -----------------------------------------------------------------------
// WebSocket Handler - Streams job status, progress, and logs to clients
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every outbound frame
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEntry is a log line forwarded to clients
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ProgressUpdate is the wire form of a simulation progress event
type ProgressUpdate struct {
	JobName      string  `json:"jobName"`
	Percent      float64 `json:"percent"`
	Cycle        int     `json:"cycle,omitempty"`
	MaxCycles    int     `json:"maxCycles,omitempty"`
	SimTimeHours float64 `json:"simTimeHours,omitempty"`
	DOH          float64 `json:"doh,omitempty"`
	HeatReleased float64 `json:"heatReleased,omitempty"`
	Temperature  float64 `json:"temperatureCelsius,omitempty"`
	PH           float64 `json:"ph,omitempty"`
	Source       string  `json:"source,omitempty"`
	RemainingSec float64 `json:"estimatedRemainingSeconds,omitempty"`
}

// WebSocketHandler broadcasts runner events to connected clients. Writes
// to each connection are serialized through a per-connection mutex.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	eventService     interfaces.EventService
	progressThrottle *rate.Limiter   // Rate limiter for sim_progress frames
	allowedEvents    map[string]bool // Whitelist of events to broadcast (empty = allow all)
	serverInstanceID string          // Clients use this to detect a server restart
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
	}

	// Throttle progress frames only when an interval is configured
	if config != nil {
		if intervalStr, ok := config.ThrottleIntervals["sim_progress"]; ok {
			if duration, err := time.ParseDuration(intervalStr); err == nil {
				h.progressThrottle = rate.NewLimiter(rate.Every(duration), 1)
			} else {
				logger.Warn().Err(err).Str("interval", intervalStr).Msg("Failed to parse sim_progress throttle interval - throttler disabled")
			}
		}
	}

	if eventService != nil {
		h.subscribeToRunnerEvents()
	}

	return h
}

// HandleWebSocket upgrades the connection and registers the client
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	h.send(conn, WSMessage{
		Type: "hello",
		Payload: map[string]interface{}{
			"serverInstanceId": h.serverInstanceID,
			"timestamp":        time.Now().Format(time.RFC3339),
		},
	})

	// Reader loop exists only to detect disconnect
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// subscribeToRunnerEvents wires the event bus into the broadcast path
func (h *WebSocketHandler) subscribeToRunnerEvents() {
	h.eventService.Subscribe(interfaces.EventSimProgress, func(ctx context.Context, event interfaces.Event) error {
		if h.progressThrottle != nil && !h.progressThrottle.Allow() {
			return nil
		}
		progress, ok := event.Payload.(models.Progress)
		if !ok {
			return nil
		}
		h.broadcast("sim_progress", ProgressUpdate{
			JobName:      event.JobID,
			Percent:      progress.Percent,
			Cycle:        progress.Cycle,
			MaxCycles:    progress.MaxCycles,
			SimTimeHours: progress.SimTime,
			DOH:          progress.DOH,
			HeatReleased: progress.HeatReleased(),
			Temperature:  progress.Temperature,
			PH:           progress.PH,
			Source:       string(progress.Source),
			RemainingSec: progress.Remaining.Seconds(),
		})
		return nil
	})

	h.eventService.Subscribe(interfaces.EventJobStatusChange, func(ctx context.Context, event interfaces.Event) error {
		job, ok := event.Payload.(models.Job)
		if !ok {
			return nil
		}
		h.broadcast("job_status_change", map[string]interface{}{
			"jobName":   job.Name,
			"runId":     job.ID,
			"status":    string(job.Status),
			"error":     job.Error,
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return nil
	})
}

// BroadcastLog forwards a log entry to every client
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.broadcast("log_entry", entry)
}

func (h *WebSocketHandler) broadcast(msgType string, payload interface{}) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[msgType] {
		return
	}

	msg := WSMessage{Type: msgType, Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	mutex, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send WebSocket message")
	}
}

// ClientCount reports the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
