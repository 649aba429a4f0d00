package webhook

import (
	"net/http"
	"strconv"

	"github.com/mattjoyce/twilio-gw/internal/twilio"
	"github.com/mattjoyce/twilio-gw/internal/twiml"
)

// Payload is implemented by every type a webhook can be parsed into.
type Payload interface {
	FromFields(fields *twilio.Fields) error
}

// PayloadPtr constrains PT to *T implementing Payload, so the dispatcher can
// allocate a T and fill it.
type PayloadPtr[T any] interface {
	*T
	Payload
}

// Parse authenticates req and converts its fields into a *T.
func Parse[T any, PT PayloadPtr[T]](a *Authenticator, req Request) (PT, error) {
	fields, err := a.Authenticate(req)
	if err != nil {
		return nil, err
	}
	v := PT(new(T))
	if err := v.FromFields(fields); err != nil {
		return nil, err
	}
	return v, nil
}

// Respond runs the full pipeline: authenticate, parse into *T, hand the value
// to logic, and serialize the returned document as a 200 response.
//
// Any authentication or parsing failure yields a 400 with a fixed body; the
// returned error carries the reason for the caller's logs only. Panics in
// logic are not recovered here.
func Respond[T any, PT PayloadPtr[T]](a *Authenticator, req Request, logic func(PT) twiml.Document) (Response, error) {
	payload, err := Parse[T, PT](a, req)
	if err != nil {
		return badRequest(), err
	}

	doc := logic(payload)
	body := doc.String()

	header := make(http.Header)
	header.Set("Content-Type", doc.ContentType())
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return Response{
		Status: http.StatusOK,
		Header: header,
		Body:   []byte(body),
	}, nil
}

func badRequest() Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(badRequestBody)))
	return Response{
		Status: http.StatusBadRequest,
		Header: header,
		Body:   []byte(badRequestBody),
	}
}
