// Package twilio is a small client for the Twilio REST API.
//
// Requests are form-encoded, authenticated with HTTP Basic auth (account SID
// and auth token) and answered with JSON:
//
//	client := twilio.New(accountSID, authToken)
//	msg, err := client.SendMessage(ctx, twilio.OutboundMessage{
//		From: "+15005550006",
//		To:   "+15551234567",
//		Body: "hello",
//	})
//
// Any endpoint can be reached with the generic Send:
//
//	call, err := twilio.Send[twilio.Call](ctx, client, http.MethodGet, "Calls/"+sid, nil)
//
// # Errors
//
// Construction failures are *NetworkError, transport failures are
// *TransmissionError and non-2xx answers are *HTTPError carrying the status.
// A body that does not decode yields ErrParsing. Nothing is retried.
//
// # Webhook payloads
//
// Message and Call also implement FromFields, which builds them from the
// ordered form parameters of an inbound webhook (see package webhook).
package twilio
