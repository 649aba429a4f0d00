package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/mattjoyce/twilio-gw/internal/twilio"
)

// CanonicalString rebuilds the exact string Twilio signed for req:
// "https://" + host + request-target, followed for POST by every field's key
// and value concatenated in field order. The scheme is always https because
// Twilio signs the public URL it called.
func CanonicalString(host, uri, method string, fields *twilio.Fields) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(host)
	b.WriteString(uri)
	if method == http.MethodPost {
		fields.Each(func(k, v string) {
			b.WriteString(k)
			b.WriteString(v)
		})
	}
	return b.String()
}

// computeSignature returns the raw HMAC-SHA1 of canonical keyed with token.
func computeSignature(token, canonical string) []byte {
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(canonical))
	return mac.Sum(nil)
}

// Sign returns the X-Twilio-Signature value for canonical.
func Sign(token, canonical string) string {
	return base64.StdEncoding.EncodeToString(computeSignature(token, canonical))
}

// verifySignature compares in constant time.
func verifySignature(token, canonical string, signature []byte) bool {
	return hmac.Equal(computeSignature(token, canonical), signature)
}
