package webhook

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrBodyTooLarge is returned by ReadRequest when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// ReadRequest converts an *http.Request into a Request, reading at most
// maxBody bytes. The Host header is taken from r.Host (net/http strips it from
// r.Header) unless publicHost is set.
func ReadRequest(r *http.Request, maxBody int64, publicHost string) (Request, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	var body []byte
	if r.Body != nil {
		limited := io.LimitReader(r.Body, maxBody+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return Request{}, fmt.Errorf("read request body: %w", err)
		}
		if int64(len(data)) > maxBody {
			return Request{}, ErrBodyTooLarge
		}
		body = data
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	host := r.Host
	if publicHost != "" {
		host = publicHost
	}
	if host != "" {
		header.Set("Host", host)
	}

	// Absolute-form targets (proxy requests) fall back to path + query.
	uri := r.RequestURI
	if uri == "" || (uri != "*" && !strings.HasPrefix(uri, "/")) {
		uri = r.URL.RequestURI()
	}

	return Request{
		Method: r.Method,
		URI:    uri,
		Header: header,
		Body:   body,
	}, nil
}

// Write sends resp to w.
func (resp Response) Write(w http.ResponseWriter) error {
	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, err := w.Write(resp.Body)
	return err
}
