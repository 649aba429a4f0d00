package webhook

import (
	"context"
	"net/http"

	"github.com/mattjoyce/twilio-gw/internal/inbox"
)

// SignatureHeader carries the base64 HMAC-SHA1 Twilio computes for each delivery.
const SignatureHeader = "X-Twilio-Signature"

// Request is an inbound webhook as handed over by the HTTP layer.
// URI is the request-target as received: path plus optional "?query".
type Request struct {
	Method string
	URI    string
	Header http.Header
	Body   []byte
}

// Response is what the gateway writes back to Twilio.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Recorder persists accepted deliveries.
//
//go:generate mockgen -destination=mocks/recorder.go -package=mocks github.com/mattjoyce/twilio-gw/internal/webhook Recorder
type Recorder interface {
	Record(ctx context.Context, entry inbox.Entry) (id string, duplicate bool, err error)
}

// Config holds gateway server configuration.
type Config struct {
	Listen string

	// MessagePath and CallPath are the routes for messaging and voice webhooks.
	MessagePath string
	CallPath    string

	// MaxBodySize is the maximum accepted request body in bytes (default: 1MB).
	MaxBodySize int64

	// PublicHost overrides the Host header when reconstructing the signed URL,
	// for deployments behind a proxy that rewrites Host.
	PublicHost string

	// EventsToken enables the /events stream for bearers of this token.
	EventsToken string

	Replies ReplyConfig
}

// ReplyConfig drives the TwiML the gateway answers with.
type ReplyConfig struct {
	// Message is a text/template executed against the inbound twilio.Message.
	Message string
	// Call is a text/template executed against the inbound twilio.Call and spoken with <Say>.
	Call     string
	Voice    string
	Language string
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
	DefaultMessagePath = "/message"
	DefaultCallPath    = "/call"
)

// badRequestBody is the only detail a rejected caller ever sees.
const badRequestBody = "Bad Request"
