package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/newtron-network/newtsim/pkg/util"
)

// Logger is an audit backend.
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// RotationConfig configures log file rotation. Rotated files are numbered
// like logrotate: <path>.1 is the newest backup.
type RotationConfig struct {
	MaxSize    int64 // bytes before rotation; 0 never rotates
	MaxBackups int   // backups kept; 0 keeps all
}

// maxLine bounds one JSON line; events carry the command output.
const maxLine = 1 << 20

var errClosed = errors.New("audit log closed")

// FileLogger appends events to a JSON-lines file and answers queries over
// the file and its rotated backups.
type FileLogger struct {
	path     string
	rotation RotationConfig

	mu   sync.RWMutex
	file *os.File
	size int64
}

// NewFileLogger opens (or creates) the log at path.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file, l.size = file, info.Size()
	return nil
}

// Log appends one event, rotating first when the file is full.
func (l *FileLogger) Log(event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errClosed
	}
	if l.rotation.MaxSize > 0 && l.size >= l.rotation.MaxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

// Query returns the matching events, oldest backup first, then applies the
// filter's offset and limit.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []*Event
	backups := l.backups()
	for i := len(backups) - 1; i >= 0; i-- {
		if err := scanFile(backups[i], filter, &events); err != nil {
			return nil, err
		}
	}
	if err := scanFile(l.path, filter, &events); err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(events) {
			return []*Event{}, nil
		}
		events = events[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(events) {
		events = events[:filter.Limit]
	}
	if events == nil {
		events = []*Event{}
	}
	return events, nil
}

func scanFile(path string, filter Filter, out *[]*Event) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.WithComponent("audit").Warnf("skipping malformed entry %s:%d: %v", filepath.Base(path), lineNum, err)
			continue
		}
		if filter.Matches(&event) {
			*out = append(*out, &event)
		}
	}
	return scanner.Err()
}

// Close closes the log file; later Log calls fail.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Matches reports whether event satisfies every criterion of the filter.
func (f Filter) Matches(event *Event) bool {
	switch {
	case f.Device != "" && event.Device != f.Device:
		return false
	case f.User != "" && event.User != f.User:
		return false
	case f.Command != "" && !strings.HasPrefix(event.Command, f.Command):
		return false
	case f.Backend != "" && event.Backend != f.Backend:
		return false
	case !f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime):
		return false
	case !f.EndTime.IsZero() && event.Timestamp.After(f.EndTime):
		return false
	case f.AcceptedOnly && !event.Accepted:
		return false
	case f.RejectedOnly && event.Accepted:
		return false
	}
	return true
}

// backups lists <path>.1, <path>.2, ... up to the first gap, newest first.
func (l *FileLogger) backups() []string {
	var paths []string
	for n := 1; ; n++ {
		p := l.path + "." + strconv.Itoa(n)
		if _, err := os.Stat(p); err != nil {
			return paths
		}
		paths = append(paths, p)
	}
}

// rotate shifts every backup up one number, moves the live file to .1 and
// drops backups beyond MaxBackups. Called with l.mu held.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	backups := l.backups()
	for n := len(backups); n >= 1; n-- {
		src := backups[n-1]
		if l.rotation.MaxBackups > 0 && n >= l.rotation.MaxBackups {
			if err := os.Remove(src); err != nil {
				return err
			}
			continue
		}
		if err := os.Rename(src, l.path+"."+strconv.Itoa(n+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger installs the process-wide logger; nil disables auditing.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		defaultLogger.Store(nil)
		return
	}
	defaultLogger.Store(&logger)
}

func getDefaultLogger() Logger {
	if p := defaultLogger.Load(); p != nil {
		return *p
	}
	return nil
}

// Log writes event through the default logger. It is a no-op when none is set.
func Log(event *Event) error {
	l := getDefaultLogger()
	if l == nil {
		return nil
	}
	return l.Log(event)
}

// Query reads from the default logger.
func Query(filter Filter) ([]*Event, error) {
	l := getDefaultLogger()
	if l == nil {
		return []*Event{}, nil
	}
	return l.Query(filter)
}
