package twiml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const decl = `<?xml version="1.0" encoding="UTF-8"?>`

func TestEmptyResponse(t *testing.T) {
	assert.Equal(t, decl+"<Response/>", NewResponse().String())
	assert.Equal(t, "text/xml", NewResponse().ContentType())
}

func TestVerbs(t *testing.T) {
	tests := []struct {
		name string
		verb Verb
		want string
	}{
		{
			name: "say with voice",
			verb: Say{Text: "Thanks for using twilio-gw. Bye!", Voice: Woman, Language: "en"},
			want: `<Say voice="woman" language="en">Thanks for using twilio-gw. Bye!</Say>`,
		},
		{
			name: "message is escaped",
			verb: Message{Body: "You told me: '<hi> & bye'"},
			want: `<Message>You told me: &#39;&lt;hi&gt; &amp; bye&#39;</Message>`,
		},
		{
			name: "message with media",
			verb: Message{Body: "pic", Media: []string{"https://example.com/a.png"}},
			want: `<Message><Body>pic</Body><Media>https://example.com/a.png</Media></Message>`,
		},
		{
			name: "dial",
			verb: Dial{Number: "+15551234567", CallerID: "+15005550006", Timeout: 10},
			want: `<Dial callerId="+15005550006" timeout="10">+15551234567</Dial>`,
		},
		{
			name: "play",
			verb: Play{URL: "https://example.com/a.mp3?x=1&y=2", Loop: 2},
			want: `<Play loop="2">https://example.com/a.mp3?x=1&amp;y=2</Play>`,
		},
		{
			name: "redirect",
			verb: Redirect{URL: "/next", Method: "POST"},
			want: `<Redirect method="POST">/next</Redirect>`,
		},
		{
			name: "gather with nested say",
			verb: Gather{Action: "/gather", NumDigits: 1, Nested: []Verb{Say{Text: "Press 1"}}},
			want: `<Gather action="/gather" numDigits="1"><Say>Press 1</Say></Gather>`,
		},
		{
			name: "empty gather",
			verb: Gather{Input: "speech"},
			want: `<Gather input="speech"/>`,
		},
		{
			name: "pause default",
			verb: Pause{},
			want: `<Pause/>`,
		},
		{
			name: "pause length",
			verb: Pause{Length: 2},
			want: `<Pause length="2"/>`,
		},
		{
			name: "hangup",
			verb: Hangup{},
			want: `<Hangup/>`,
		},
		{
			name: "reject",
			verb: Reject{Reason: "busy"},
			want: `<Reject reason="busy"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResponse().Add(tt.verb).String()
			assert.Equal(t, decl+"<Response>"+tt.want+"</Response>", got)
		})
	}
}

func TestResponseKeepsVerbOrder(t *testing.T) {
	r := NewResponse().Add(Say{Text: "one"}, Pause{Length: 1}).Add(Hangup{})

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, decl+`<Response><Say>one</Say><Pause length="1"/><Hangup/></Response>`, r.String())
}

func TestRenderIsIdempotent(t *testing.T) {
	r := NewResponse().Add(Message{Body: "same"})
	assert.Equal(t, r.String(), r.String())
}

func TestParseVoice(t *testing.T) {
	v, ok := ParseVoice(" Alice ")
	assert.True(t, ok)
	assert.Equal(t, Alice, v)

	v, ok = ParseVoice("")
	assert.True(t, ok)
	assert.Equal(t, Voice(""), v)

	_, ok = ParseVoice("robot")
	assert.False(t, ok)
}
