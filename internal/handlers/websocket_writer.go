// -----------------------------------------------------------------------
// WebSocket Log Writer - Bridges arbor log entries onto the client stream
// -----------------------------------------------------------------------

package handlers

import (
	"strings"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor/levels"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"

	"github.com/ternarybob/hydrun/internal/common"
)

// logQueueSize bounds the broadcast buffer; entries past it are dropped
// rather than blocking the logging path.
const logQueueSize = 1000

// defaultExcludePatterns suppresses the chatter that would otherwise
// feed back into the stream (every broadcast logs, every log broadcasts).
var defaultExcludePatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"Failed to send WebSocket message",
}

// WebSocketWriter is an arbor-compatible writer that feeds filtered log
// entries to connected WebSocket clients through a buffered channel.
type WebSocketWriter struct {
	handler  *WebSocketHandler
	writer   writers.IChannelWriter
	minLevel levels.LogLevel
	exclude  []string
}

func NewWebSocketWriter(handler *WebSocketHandler, config models.WriterConfiguration, wsConfig *common.WebSocketConfig) (*WebSocketWriter, error) {
	w := &WebSocketWriter{
		handler:  handler,
		minLevel: levels.InfoLevel,
		exclude:  defaultExcludePatterns,
	}
	if wsConfig != nil {
		w.minLevel = parseLogLevel(wsConfig.MinLevel)
		if len(wsConfig.ExcludePatterns) > 0 {
			w.exclude = wsConfig.ExcludePatterns
		}
	}

	cw, err := writers.NewChannelWriter(config, logQueueSize, w.process)
	if err != nil {
		return nil, err
	}
	cw.Start()
	w.writer = cw
	return w, nil
}

// process filters one queued entry and hands it to the broadcast path
func (w *WebSocketWriter) process(entry models.LogEvent) error {
	level := plogToArborLevel(entry.Level)
	if level < w.minLevel {
		return nil
	}
	for _, pattern := range w.exclude {
		if strings.Contains(entry.Message, pattern) {
			return nil
		}
	}

	w.handler.BroadcastLog(LogEntry{
		Timestamp: entry.Timestamp.Format("15:04:05"),
		Level:     levelName(level),
		Message:   entry.Message,
	})
	return nil
}

func plogToArborLevel(level plog.Level) levels.LogLevel {
	switch level {
	case plog.ErrorLevel:
		return levels.ErrorLevel
	case plog.WarnLevel:
		return levels.WarnLevel
	case plog.DebugLevel:
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

func parseLogLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return levels.ErrorLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "debug":
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

func levelName(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}

// Write queues a raw entry; decoding happens on the channel goroutine
func (w *WebSocketWriter) Write(data []byte) (int, error) {
	return w.writer.Write(data)
}

// WithLevel satisfies the arbor writer contract
func (w *WebSocketWriter) WithLevel(level plog.Level) writers.IWriter {
	w.minLevel = plogToArborLevel(level)
	return w
}

// GetFilePath satisfies the arbor writer contract; there is no file
func (w *WebSocketWriter) GetFilePath() string {
	return ""
}

// Close drains the queue before shutdown
func (w *WebSocketWriter) Close() error {
	return w.writer.Close()
}
