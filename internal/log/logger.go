package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

type Logger struct {
	mu      sync.Mutex
	console io.Writer
	out     io.Writer
	file    *os.File
	logJSON bool
	logText bool
}

func New(logFilePath string, logJSON, logText bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{
		console: os.Stdout,
		out:     file,
		file:    file,
		logJSON: logJSON,
		logText: logText,
	}, nil
}

// NewWriter logs to w instead of a file. Console output goes to os.Stderr.
func NewWriter(w io.Writer, logJSON bool) *Logger {
	return &Logger{
		console: os.Stderr,
		out:     w,
		logJSON: logJSON,
		logText: !logJSON,
	}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return &Logger{console: io.Discard}
}

// SetConsole redirects the progress and summary output.
func (l *Logger) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Service   types.BackendName `json:"service,omitempty"`
	File      string            `json:"file,omitempty"`
	Success   *bool             `json:"success,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
}

func (l *Logger) LogExtraction(result types.ExtractionResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	success := result.Success
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Message:   fmt.Sprintf("extract %s via %s", result.Reference, result.Service),
		RequestID: result.RequestID,
		Service:   result.Service,
		File:      result.Reference,
		Success:   &success,
		Duration:  result.Duration,
	}

	if !result.Success {
		entry.Level = "ERROR"
		entry.Error = result.Message
	}

	l.writeEntry(entry)
}

func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Message:   msg,
	}
	l.writeEntry(entry)
}

func (l *Logger) Error(msg string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "ERROR",
		Message:   msg,
		Error:     err.Error(),
	}
	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry LogEntry) {
	if l.out == nil {
		return
	}

	if l.logJSON {
		data, _ := json.Marshal(entry)
		l.out.Write(data)
		l.out.Write([]byte("\n"))
	}

	if l.logText {
		line := fmt.Sprintf("[%s] %s %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Level,
			entry.Message,
		)
		if entry.Error != "" {
			line = fmt.Sprintf("[%s] %s %s - Error: %s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.Level,
				entry.Message,
				entry.Error,
			)
		}
		io.WriteString(l.out, line)
	}
}

// Summary prints batch statistics to the console.
func (l *Logger) Summary(total, succeeded int, duration time.Duration) {
	fmt.Fprintln(l.console, "\n=== MetaProbe Summary ===")
	fmt.Fprintf(l.console, "Total files:    %d\n", total)
	fmt.Fprintf(l.console, "Extracted:      %d\n", succeeded)
	fmt.Fprintf(l.console, "Failed:         %d\n", total-succeeded)
	fmt.Fprintf(l.console, "Duration:       %s\n", duration.Round(time.Millisecond))
	fmt.Fprintln(l.console, "=========================")
}

func (l *Logger) Progress(current, total int, filename string) {
	fmt.Fprintf(l.console, "\r[%d/%d] %s", current, total, filename)
}
