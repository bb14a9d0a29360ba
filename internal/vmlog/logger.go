// Package vmlog provides the Logger interface the core consumes and a
// default file-backed implementation, grounded on the original source's
// LOGGER/logger.c: one timestamped, level-tagged line per call, with
// INTERRUPT and ERROR additionally mirrored to stdout.
package vmlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level identifies the severity/category of a log call.
type Level int

const (
	Info Level = iota
	Warning
	Error
	Interrupt
	Debug
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Interrupt:
		return "INTERRUPT"
	case Debug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the one-call-per-level interface the core depends on. It is
// the only external collaborator boundary the core crosses for logging;
// nothing in internal/cpu, internal/memory, internal/dma, etc. imports the
// standard log package directly.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Interruptf(format string, args ...any)
	Debugf(format string, args ...any)
}

// FileLogger truncates system.log on construction and writes one
// timestamped record per call, mirroring Interrupt and Error records to
// stdout — matching log_event's behavior in the original C logger.
type FileLogger struct {
	mu     sync.Mutex
	file   *log.Logger
	stdout *log.Logger
}

// Open creates (truncating) the named log file and returns a FileLogger
// writing to it. The caller should Close it when the VM shuts down.
func Open(path string) (*FileLogger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return &FileLogger{
		file:   log.New(f, "", 0),
		stdout: log.New(os.Stdout, "", 0),
	}, f, nil
}

func (l *FileLogger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s [%s] %s", timestamp, level, fmt.Sprintf(format, args...))
	l.file.Println(line)
	if level == Interrupt || level == Error {
		l.stdout.Println(line)
	}
}

func (l *FileLogger) Infof(format string, args ...any)      { l.log(Info, format, args...) }
func (l *FileLogger) Warningf(format string, args ...any)   { l.log(Warning, format, args...) }
func (l *FileLogger) Errorf(format string, args ...any)     { l.log(Error, format, args...) }
func (l *FileLogger) Interruptf(format string, args ...any) { l.log(Interrupt, format, args...) }
func (l *FileLogger) Debugf(format string, args ...any)     { l.log(Debug, format, args...) }

// Discard is a Logger that drops everything; handy for tests that don't
// care about log output but still need something satisfying the
// interface.
var Discard Logger = discard{}

type discard struct{}

func (discard) Infof(string, ...any)      {}
func (discard) Warningf(string, ...any)   {}
func (discard) Errorf(string, ...any)     {}
func (discard) Interruptf(string, ...any) {}
func (discard) Debugf(string, ...any)     {}
