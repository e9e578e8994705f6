package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

func consoleWriterConfig(timeFormat string) models.WriterConfiguration {
	if timeFormat == "" {
		timeFormat = "15:04:05"
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: timeFormat,
		TextOutput: true,
	}
}

// GetLogger returns the global logger, creating a console-only logger on
// first use when InitLogger has not run yet (early startup, tests).
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	l := globalLogger
	loggerMutex.RUnlock()
	if l != nil {
		return l
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig(""))
	}
	return globalLogger
}

// InitLogger builds the configured logger and installs it as the global.
// Outputs are additive: "stdout" and "file" can both be enabled.
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger()

	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			logsDir := "logs"
			if execPath, err := os.Executable(); err == nil {
				logsDir = filepath.Join(filepath.Dir(execPath), "logs")
			}
			if err := os.MkdirAll(logsDir, 0o755); err != nil {
				// Fall through with console only; the service is still usable
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(logsDir, "hydrun.log"),
				TimeFormat: config.Logging.TimeFormat,
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		case "stdout", "console":
			logger = logger.WithConsoleWriter(consoleWriterConfig(config.Logging.TimeFormat))
		}
	}

	logger = logger.WithLevelFromString(config.Logging.Level)

	globalLogger = logger
	return logger
}
