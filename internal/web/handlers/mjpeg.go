package handlers

import (
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/constants"
)

// mjpegWriter writes frames as a multipart/x-mixed-replace stream. Headers are
// sent with the first frame, so errors before it can still be reported as JSON.
type mjpegWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newMJPEGWriter(w http.ResponseWriter) (*mjpegWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	return &mjpegWriter{w: w, flusher: flusher}, true
}

// WriteFrame sends one JPEG part.
func (m *mjpegWriter) WriteFrame(frame []byte) error {
	if !m.started {
		m.w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+constants.StreamBoundary)
		m.w.Header().Set("Cache-Control", "no-cache")
		m.w.WriteHeader(http.StatusOK)
		m.started = true
	}
	if _, err := fmt.Fprintf(m.w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		constants.StreamBoundary, len(frame)); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := m.w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if _, err := m.w.Write([]byte("\r\n")); err != nil {
		return fmt.Errorf("writing frame trailer: %w", err)
	}
	m.flusher.Flush()
	return nil
}

// Started reports whether any frame was sent.
func (m *mjpegWriter) Started() bool {
	return m.started
}
