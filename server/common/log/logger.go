package log

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogFilePath = "./logs/chatbot_server.log"
	defaultMaxSizeMB   = 20
	defaultMaxBackups  = 5
	envLogFilePath     = "LOG_FILE_PATH"
	envLogMaxSizeMB    = "LOG_MAX_SIZE_MB"
	envLogFormat       = "LOG_FORMAT"
	envLogLevel        = "LOG_LEVEL"
	logFormatText      = "text"
	logFormatJSON      = "json"
)

var (
	mu     sync.RWMutex
	global = newLogger(false)
)

// Configure rebuilds the global logger from the environment, adding the
// rotating file sink. Call it once the .env file has been loaded.
func Configure() {
	l := newLogger(true)
	mu.Lock()
	defer mu.Unlock()
	global = l
}

func newLogger(withFile bool) zerolog.Logger {
	format := strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat)))
	if format != logFormatJSON {
		format = logFormatText
	}

	var console io.Writer = os.Stdout
	if format == logFormatText {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	writers := []io.Writer{console}
	if withFile {
		if fw := fileWriterFromEnv(); fw != nil {
			writers = append(writers, fw)
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(os.Getenv(envLogLevel))).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
}

func fileWriterFromEnv() io.Writer {
	path := strings.TrimSpace(os.Getenv(envLogFilePath))
	if path == "" {
		path = defaultLogFilePath
	}
	if path == "-" {
		return nil
	}
	maxSizeMB := defaultMaxSizeMB
	if raw := strings.TrimSpace(os.Getenv(envLogMaxSizeMB)); raw != "" {
		if sizeMB, err := strconv.Atoi(raw); err == nil && sizeMB > 0 {
			maxSizeMB = sizeMB
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: defaultMaxBackups,
	}
}

// ParseLevel converts a string level into a zerolog.Level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetOutput replaces the global logger's sink. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	global = zerolog.New(w).With().Timestamp().Logger()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

func Debugf(format string, args ...any) {
	current().Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	current().Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	current().Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	current().Error().Msgf(format, args...)
}

// Exceptionf logs at error level with an exception marker, for failures that
// were swallowed and replaced with a default value.
func Exceptionf(format string, args ...any) {
	current().Error().Bool("exception", true).Msgf(format, args...)
}

func Fatalf(format string, args ...any) {
	current().Fatal().Msgf(format, args...)
}
