package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SSEWriter sends server-sent events, flushing after every event so
// fragments reach the client without buffering delay.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter sets the event-stream headers and returns a writer, or an
// error when the underlying ResponseWriter cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteData sends one data event. Multi-line content gets one "data: " line
// per line, as the SSE spec requires; clients reassemble with newlines.
func (w *SSEWriter) WriteData(content string) error {
	for _, line := range strings.Split(content, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}

	// Empty line terminates the event
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// WriteError delivers a failure that happened after streaming began. The
// status line is long gone by then, so the error travels in-band as a final
// event the client can detect deterministically.
func (w *SSEWriter) WriteError(message string) error {
	return w.WriteData("[ERROR]: " + message)
}
