package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Event names on the /jobs/stream response.
const (
	eventProgress = "progress"
	eventResult   = "result"
	eventError    = "error"
	eventComplete = "complete"
)

var errStreamingUnsupported = errors.New("response writer does not support streaming")

// eventStream writes Server-Sent Events. Headers are committed by the first
// event, so a handler can still answer with a plain JSON error before that.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &eventStream{w: w, flusher: flusher}, nil
}

func (s *eventStream) open() bool { return s.seq > 0 }

func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if !s.open() {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
	}
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

type streamEnd struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// fail ends the stream with an error event. Write errors are ignored since
// the client is usually gone by then.
func (s *eventStream) fail(message string) {
	_ = s.send(eventError, ErrorResponse{Error: message})
}

func (s *eventStream) finish(jobID, status string) {
	_ = s.send(eventComplete, streamEnd{JobID: jobID, Status: status})
}
