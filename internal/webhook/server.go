package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/twilio-gw/internal/events"
	"github.com/mattjoyce/twilio-gw/internal/inbox"
	"github.com/mattjoyce/twilio-gw/internal/twilio"
	"github.com/mattjoyce/twilio-gw/internal/twiml"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	auth     *Authenticator
	recorder Recorder
	events   *events.Hub
	logger   *slog.Logger
	server   *http.Server

	messageReply *template.Template
	callReply    *template.Template
	voice        twiml.Voice
}

// New creates a new webhook server instance. recorder may be nil.
func New(config Config, auth *Authenticator, recorder Recorder, logger *slog.Logger) (*Server, error) {
	// Apply defaults
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.MessagePath == "" {
		config.MessagePath = DefaultMessagePath
	}
	if config.CallPath == "" {
		config.CallPath = DefaultCallPath
	}
	if config.MessagePath == config.CallPath {
		return nil, fmt.Errorf("message and call paths must differ (both %q)", config.MessagePath)
	}

	voice, ok := twiml.ParseVoice(config.Replies.Voice)
	if !ok {
		return nil, fmt.Errorf("unknown voice %q", config.Replies.Voice)
	}
	messageReply, err := parseReply("message", config.Replies.Message)
	if err != nil {
		return nil, err
	}
	callReply, err := parseReply("call", config.Replies.Call)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:       config,
		auth:         auth,
		recorder:     recorder,
		logger:       logger,
		messageReply: messageReply,
		callReply:    callReply,
		voice:        voice,
	}, nil
}

func parseReply(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s reply template: %w", name, err)
	}
	return tmpl, nil
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"message_path", s.config.MessagePath,
		"call_path", s.config.CallPath,
	)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.events != nil && s.config.EventsToken != "" {
		r.With(s.bearerAuth).Get("/events", s.handleEvents)
	}

	// Twilio calls webhooks with GET or POST depending on the number's configuration.
	r.Get(s.config.MessagePath, s.handleMessage)
	r.Post(s.config.MessagePath, s.handleMessage)
	r.Get(s.config.CallPath, s.handleCall)
	r.Post(s.config.CallPath, s.handleCall)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads and signatures).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// handleMessage answers messaging webhooks with a <Message> reply.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	resp, err := Respond(s.auth, req, func(m *twilio.Message) twiml.Document {
		s.record(r.Context(), inbox.KindMessage, m.SID, m.From, m.To, m.Raw)
		return s.renderMessageReply(m)
	})
	s.finish(w, r, resp, err)
}

// handleCall answers voice webhooks with a <Say> reply.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	resp, err := Respond(s.auth, req, func(c *twilio.Call) twiml.Document {
		s.record(r.Context(), inbox.KindCall, c.SID, c.From, c.To, c.Raw)
		return s.renderCallReply(c)
	})
	s.finish(w, r, resp, err)
}

func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (Request, bool) {
	req, err := ReadRequest(r, s.config.MaxBodySize, s.config.PublicHost)
	if errors.Is(err, ErrBodyTooLarge) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return Request{}, false
	}
	if err != nil {
		s.logger.Error("failed to read webhook body", "path", r.URL.Path, "error", err)
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return Request{}, false
	}
	return req, true
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request, resp Response, err error) {
	if err != nil {
		// Reason goes to logs only; the caller sees the fixed 400 body.
		s.logger.Warn("webhook rejected",
			"path", r.URL.Path,
			"reason", rejectionReason(err),
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	if werr := resp.Write(w); werr != nil {
		s.logger.Debug("failed to write webhook response", "path", r.URL.Path, "error", werr)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, twilio.ErrAuth):
		return "auth"
	case errors.Is(err, twilio.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, twilio.ErrParsing):
		return "parsing"
	default:
		return "unknown"
	}
}

func (s *Server) record(ctx context.Context, kind inbox.Kind, sid, from, to string, raw *twilio.Fields) {
	fields := make([]inbox.Field, 0, raw.Len())
	raw.Each(func(k, v string) {
		fields = append(fields, inbox.Field{Name: k, Value: v})
	})
	delivery := Delivery{SID: sid, From: from, To: to, Fields: fields}

	if s.recorder != nil {
		id, duplicate, err := s.recorder.Record(ctx, inbox.Entry{
			Kind:   kind,
			SID:    sid,
			From:   from,
			To:     to,
			Fields: fields,
		})
		if err != nil {
			s.logger.Warn("failed to record webhook", "kind", kind, "sid", sid, "error", err)
		} else {
			s.logger.Info("webhook recorded", "kind", kind, "sid", sid, "inbox_id", id, "duplicate", duplicate)
			delivery.InboxID, delivery.Duplicate = id, duplicate
		}
	}

	s.publish(kind, delivery)
}

func (s *Server) renderMessageReply(m *twilio.Message) twiml.Document {
	resp := twiml.NewResponse()
	if text, ok := s.execute(s.messageReply, m); ok {
		resp.Add(twiml.Message{Body: text})
	}
	return resp
}

func (s *Server) renderCallReply(c *twilio.Call) twiml.Document {
	resp := twiml.NewResponse()
	if text, ok := s.execute(s.callReply, c); ok {
		resp.Add(twiml.Say{Text: text, Voice: s.voice, Language: s.config.Replies.Language})
	}
	return resp
}

// execute renders tmpl; a nil template or an execution failure yields no reply text.
func (s *Server) execute(tmpl *template.Template, data any) (string, bool) {
	if tmpl == nil {
		return "", false
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		s.logger.Warn("reply template failed", "template", tmpl.Name(), "error", err)
		return "", false
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
