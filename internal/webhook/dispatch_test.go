package webhook

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/twilio-gw/internal/twilio"
	"github.com/mattjoyce/twilio-gw/internal/twiml"
)

const messageBody = "MessageSid=SM123&From=%2B15551234567&To=%2B15005550006&Body=hi"

func signedMessage() Request {
	canonical := "https://example.com/messageMessageSidSM123From+15551234567To+15005550006Bodyhi"
	return signedRequest(http.MethodPost, "example.com", "/message", messageBody, canonical)
}

func echoLogic(m *twilio.Message) twiml.Document {
	return twiml.NewResponse().Add(twiml.Message{Body: "echo: " + m.Body})
}

func TestRespondSuccess(t *testing.T) {
	resp, err := Respond(NewAuthenticator(testToken), signedMessage(), echoLogic)
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?><Response><Message>echo: hi</Message></Response>`
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, want, string(resp.Body))
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(want)), resp.Header.Get("Content-Length"))
}

func TestRespondIsDeterministic(t *testing.T) {
	a := NewAuthenticator(testToken)
	first, err := Respond(a, signedMessage(), echoLogic)
	require.NoError(t, err)
	second, err := Respond(a, signedMessage(), echoLogic)
	require.NoError(t, err)
	assert.Equal(t, first.Body, second.Body)
}

func TestRespondRejectsWithoutDetail(t *testing.T) {
	calls := 0
	logic := func(m *twilio.Message) twiml.Document {
		calls++
		return twiml.NewResponse()
	}

	unsigned := signedMessage()
	unsigned.Header.Del(SignatureHeader)

	// Signed correctly but missing MessageSid, so parsing fails.
	noSID := signedRequest(http.MethodPost, "example.com", "/message", "From=%2B1&To=%2B2", "https://example.com/messageFrom+1To+2")

	for name, req := range map[string]Request{"auth": unsigned, "parse": noSID} {
		t.Run(name, func(t *testing.T) {
			resp, err := Respond(NewAuthenticator(testToken), req, logic)
			assert.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, "Bad Request", string(resp.Body))
			assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Equal(t, "11", resp.Header.Get("Content-Length"))
		})
	}
	assert.Zero(t, calls)
}

func TestParseCall(t *testing.T) {
	uri := "/call?CallSid=CA1&From=%2B1555&To=%2B1500&CallStatus=ringing"
	req := signedRequest(http.MethodGet, "example.com", uri, "", "https://example.com"+uri)

	call, err := Parse[twilio.Call](NewAuthenticator(testToken), req)
	require.NoError(t, err)
	assert.Equal(t, "CA1", call.SID)
	assert.Equal(t, "+1555", call.From)
	assert.Equal(t, twilio.CallRinging, call.Status)
}
