// Package sse writes Server-Sent Events.
//
//	stream, err := sse.New(w, r)
//	if err != nil {
//	    return
//	}
//	stream.Send("order.placed", order.ID.Hex(), order)
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Stream is one open event stream. It is not safe for concurrent use.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// New writes the event-stream headers and flushes them. It fails when no
// writer in the middleware chain can flush.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	rc := http.NewResponseController(w)

	// A stream outlives the server's WriteTimeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return nil, fmt.Errorf("sse: clear write deadline: %w", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("sse: flush: %w", err)
	}
	return &Stream{w: w, rc: rc}, nil
}

// Send writes one named event with a JSON payload. id may be empty.
func (s *Stream) Send(event, id string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal %s: %w", event, err)
	}

	var b strings.Builder
	if id != "" {
		fmt.Fprintf(&b, "id: %s\n", id)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", event, payload)
	return s.write(b.String())
}

// Comment writes a comment line; clients ignore it, proxies see traffic.
func (s *Stream) Comment(msg string) error {
	return s.write(": " + msg + "\n\n")
}

func (s *Stream) write(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	return s.rc.Flush()
}
