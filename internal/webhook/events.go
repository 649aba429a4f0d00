package webhook

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/twilio-gw/internal/events"
	"github.com/mattjoyce/twilio-gw/internal/inbox"
)

// Delivery is the payload of message.received and call.received events.
type Delivery struct {
	InboxID   string        `json:"inbox_id,omitempty"`
	Duplicate bool          `json:"duplicate"`
	SID       string        `json:"sid"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Fields    []inbox.Field `json:"fields"`
}

var keepAliveInterval = 15 * time.Second

// WithEvents publishes every accepted delivery to hub and, when the config
// carries an events token, serves the hub as Server-Sent Events on /events.
func (s *Server) WithEvents(hub *events.Hub) *Server {
	s.events = hub
	return s
}

func (s *Server) publish(kind inbox.Kind, d Delivery) {
	if s.events == nil {
		return
	}
	eventType := events.TypeMessageReceived
	if kind == inbox.KindCall {
		eventType = events.TypeCallReceived
	}
	s.events.Publish(eventType, d)
}

// bearerAuth guards the event stream; deliveries carry phone numbers.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.config.EventsToken)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before replaying so nothing published in between is lost.
	ch, cancel := s.events.Subscribe()
	defer cancel()

	// The server's WriteTimeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"))
	for _, ev := range s.events.Since(lastID) {
		if err := writeSSE(w, ev); err != nil {
			return
		}
		lastID = ev.ID
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.ID <= lastID {
				continue
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseLastEventID(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeSSE(w http.ResponseWriter, ev events.Event) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, ev.Data)
	return err
}
