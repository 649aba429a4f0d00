package webhook

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/mattjoyce/twilio-gw/internal/twilio"
)

// Authenticator verifies X-Twilio-Signature on inbound webhooks.
// It holds only the auth token and is safe for concurrent use.
type Authenticator struct {
	authToken string
}

// NewAuthenticator returns an Authenticator keyed with the account's auth token.
func NewAuthenticator(authToken string) *Authenticator {
	return &Authenticator{authToken: authToken}
}

// Authenticate checks req's signature and returns its parsed fields.
//
// Shape problems are rejected before any cryptography runs: a missing
// signature header is twilio.ErrAuth; undecodable base64, a missing Host, the
// "*" target, an unsupported method or an undecodable form are
// twilio.ErrBadRequest. A signature mismatch is twilio.ErrAuth.
func (a *Authenticator) Authenticate(req Request) (*twilio.Fields, error) {
	values := req.Header.Values(SignatureHeader)
	if len(values) == 0 {
		return nil, twilio.ErrAuth
	}
	signature, err := base64.StdEncoding.DecodeString(values[0])
	if err != nil {
		return nil, fmt.Errorf("%w: signature is not base64", twilio.ErrBadRequest)
	}

	host := req.Header.Get("Host")
	if host == "" {
		return nil, fmt.Errorf("%w: missing Host header", twilio.ErrBadRequest)
	}

	path, query, _ := strings.Cut(req.URI, "?")
	if path == "*" {
		return nil, fmt.Errorf("%w: wildcard request target", twilio.ErrBadRequest)
	}

	var fields *twilio.Fields
	switch req.Method {
	case http.MethodGet:
		fields, err = twilio.ParseFields(query)
	case http.MethodPost:
		fields, err = twilio.ParseFields(string(req.Body))
	default:
		return nil, fmt.Errorf("%w: method %s not supported", twilio.ErrBadRequest, req.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", twilio.ErrBadRequest, err)
	}

	canonical := CanonicalString(host, req.URI, req.Method, fields)
	if !verifySignature(a.authToken, canonical, signature) {
		return nil, twilio.ErrAuth
	}
	return fields, nil
}
