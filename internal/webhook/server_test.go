package webhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/twilio-gw/internal/inbox"
	"github.com/mattjoyce/twilio-gw/internal/webhook/mocks"
)

func testConfig() Config {
	return Config{
		Listen: "127.0.0.1:0",
		Replies: ReplyConfig{
			Message:  "You told me: '{{.Body}}'",
			Call:     "Thanks for calling {{.To}}",
			Voice:    "woman",
			Language: "en",
		},
	}
}

func newTestServer(t *testing.T, cfg Config, recorder Recorder) http.Handler {
	t.Helper()
	srv, err := New(cfg, NewAuthenticator(testToken), recorder, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return srv.Handler()
}

// postSigned builds a POST the way Twilio would send it to http://example.com.
func postSigned(path, body, canonicalSuffix string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set(SignatureHeader, Sign(testToken, "https://example.com"+path+canonicalSuffix))
	return r
}

func TestServerMessageReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)

	var recorded inbox.Entry
	rec.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e inbox.Entry) (string, bool, error) {
			recorded = e
			return "entry-1", false, nil
		})

	h := newTestServer(t, testConfig(), rec)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, postSigned("/message", messageBody, "MessageSidSM123From+15551234567To+15005550006Bodyhi"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?><Response><Message>You told me: &#39;hi&#39;</Message></Response>`,
		w.Body.String())

	assert.Equal(t, inbox.KindMessage, recorded.Kind)
	assert.Equal(t, "SM123", recorded.SID)
	assert.Equal(t, "+15551234567", recorded.From)
	assert.Equal(t, []inbox.Field{
		{Name: "MessageSid", Value: "SM123"},
		{Name: "From", Value: "+15551234567"},
		{Name: "To", Value: "+15005550006"},
		{Name: "Body", Value: "hi"},
	}, recorded.Fields)
}

func TestServerCallReplyOverGET(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().Record(gomock.Any(), gomock.Any()).Return("entry-2", false, nil)

	uri := "/call?CallSid=CA1&From=%2B1555&To=%2B1500"
	r := httptest.NewRequest(http.MethodGet, uri, nil)
	r.Header.Set(SignatureHeader, Sign(testToken, "https://example.com"+uri))

	w := httptest.NewRecorder()
	newTestServer(t, testConfig(), rec).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?><Response><Say voice="woman" language="en">Thanks for calling +1500</Say></Response>`,
		w.Body.String())
}

func TestServerRecordFailureStillReplies(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().Record(gomock.Any(), gomock.Any()).Return("", false, errors.New("disk full"))

	w := httptest.NewRecorder()
	newTestServer(t, testConfig(), rec).ServeHTTP(w,
		postSigned("/message", messageBody, "MessageSidSM123From+15551234567To+15005550006Bodyhi"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerEmptyReplyTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.Replies.Message = ""

	w := httptest.NewRecorder()
	newTestServer(t, cfg, nil).ServeHTTP(w,
		postSigned("/message", messageBody, "MessageSidSM123From+15551234567To+15005550006Bodyhi"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><Response/>`, w.Body.String())
}

func TestServerRejectsBadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	// No EXPECT: rejected deliveries are never recorded.

	r := postSigned("/message", messageBody, "tampered")
	w := httptest.NewRecorder()
	newTestServer(t, testConfig(), rec).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Bad Request", w.Body.String())
}

func TestServerBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodySize = 16

	w := httptest.NewRecorder()
	newTestServer(t, cfg, nil).ServeHTTP(w,
		postSigned("/message", messageBody, "MessageSidSM123From+15551234567To+15005550006Bodyhi"))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServerRoutes(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/unknown", http.StatusNotFound},
		{http.MethodPut, "/message", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestNewValidatesConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	auth := NewAuthenticator(testToken)

	cfg := testConfig()
	cfg.Replies.Voice = "robot"
	_, err := New(cfg, auth, nil, logger)
	assert.ErrorContains(t, err, "unknown voice")

	cfg = testConfig()
	cfg.Replies.Message = "{{.Body"
	_, err = New(cfg, auth, nil, logger)
	assert.ErrorContains(t, err, "message reply template")

	cfg = testConfig()
	cfg.CallPath = "/message"
	_, err = New(cfg, auth, nil, logger)
	assert.ErrorContains(t, err, "must differ")
}

func TestServerStartStops(t *testing.T) {
	srv, err := New(testConfig(), NewAuthenticator(testToken), nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, srv.Start(ctx), context.Canceled)
}
