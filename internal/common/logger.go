package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const defaultLogTimeFormat = "15:04:05"

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.Mutex
)

// GetLogger returns the logger built by InitLogger, or a console logger before that
func GetLogger() arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter(defaultLogTimeFormat))
	}
	return globalLogger
}

// InitLogger builds the arbor logger from the logging section and makes it the global logger.
// Outputs are "stdout" (or "console") and "file"; console is used when neither is usable.
func InitLogger(config *Config) arbor.ILogger {
	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultLogTimeFormat
	}

	var wantConsole, wantFile bool
	for _, output := range config.Logging.Output {
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "stdout", "console":
			wantConsole = true
		case "file":
			wantFile = true
		}
	}

	logger := arbor.NewLogger()

	fileReady := false
	if wantFile {
		dir, err := logDir(config.Logging.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, "marketpulse.log"),
				TimeFormat: timeFormat,
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
			fileReady = true
		}
	}

	if wantConsole || !fileReady {
		logger = logger.WithConsoleWriter(consoleWriter(timeFormat))
	}

	logger = logger.WithLevelFromString(config.Logging.Level)

	loggerMutex.Lock()
	globalLogger = logger
	loggerMutex.Unlock()

	return logger
}

func consoleWriter(timeFormat string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: timeFormat,
		OutputType: models.OutputFormatLogfmt,
	}
}

// logDir resolves and creates the log directory
func logDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		dir = "logs"
		if execPath, err := os.Executable(); err == nil {
			dir = filepath.Join(filepath.Dir(execPath), "logs")
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return dir, nil
}
