package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"wappi2mqtt/config"
	"wappi2mqtt/utils"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

const LOG_FILE_NAME = "wappi2mqtt.log"

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

type logger struct {
	level atomic.Int32
	zl    zerolog.Logger
}

// New builds the process logger. Development logs go to stdout; with
// cfg.File set they are also appended to <root>/logs/wappi2mqtt.log.
func New(cfg *config.LoggingConfig, environment string) (Logger, error) {
	var writers []io.Writer

	if environment == "development" || !cfg.File {
		writers = append(writers, os.Stdout)
	}

	if cfg.File {
		logFile := filepath.Join(utils.GetRootPath(), "logs", LOG_FILE_NAME)
		if err := utils.MkdirIfNotExists(logFile); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	color := isatty.IsTerminal(os.Stdout.Fd()) && !cfg.File
	return NewWithWriter(io.MultiWriter(writers...), cfg.Level, cfg.Format, color), nil
}

// NewWithWriter writes JSON lines for format "json" and a human readable
// console layout otherwise.
func NewWithWriter(w io.Writer, level string, format string, color bool) Logger {
	out := w
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !color,
			TimeFormat: "2006-01-02 15:04:05.000",
		}
	}

	l := &logger{
		zl: zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel),
	}
	l.SetLevel(ParseLogLevel(level))
	return l
}

func (l *logger) log(level LogLevel, format string, args ...any) {
	if level < l.GetLevel() {
		return
	}

	var event *zerolog.Event
	switch level {
	case DEBUG:
		event = l.zl.Debug()
	case INFO:
		event = l.zl.Info()
	case WARN:
		event = l.zl.Warn()
	default:
		event = l.zl.Error()
	}
	event.Msgf(format, args...)
}

func (l *logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

func (l *logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

func (l *logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

func (l *logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}

func (l *logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

type nop struct{}

// Nop discards everything.
func Nop() Logger {
	return nop{}
}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (nop) SetLevel(LogLevel)    {}
func (nop) GetLevel() LogLevel   { return ERROR + 1 }
