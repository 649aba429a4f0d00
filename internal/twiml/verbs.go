package twiml

import "strings"

// Voice selects the text-to-speech voice for <Say>.
type Voice string

const (
	Man   Voice = "man"
	Woman Voice = "woman"
	Alice Voice = "alice"
)

// Say speaks Text to the caller.
type Say struct {
	Text     string
	Voice    Voice
	Language string
	Loop     int
}

func (s Say) render(b *strings.Builder) {
	element(b, "Say", s.Text,
		attr{"voice", string(s.Voice)},
		attr{"language", s.Language},
		attr{"loop", itoa(s.Loop)},
	)
}

// Play streams an audio file.
type Play struct {
	URL    string
	Loop   int
	Digits string
}

func (p Play) render(b *strings.Builder) {
	element(b, "Play", p.URL,
		attr{"loop", itoa(p.Loop)},
		attr{"digits", p.Digits},
	)
}

// Message replies to an inbound SMS/MMS. With media the body is nested in
// <Body> alongside one <Media> per URL.
type Message struct {
	Body   string
	To     string
	From   string
	Action string
	Method string
	Media  []string
}

func (m Message) render(b *strings.Builder) {
	attrs := []attr{
		{"to", m.To},
		{"from", m.From},
		{"action", m.Action},
		{"method", m.Method},
	}
	if len(m.Media) == 0 {
		element(b, "Message", m.Body, attrs...)
		return
	}
	open(b, "Message", attrs...)
	b.WriteByte('>')
	if m.Body != "" {
		element(b, "Body", m.Body)
	}
	for _, u := range m.Media {
		element(b, "Media", u)
	}
	closeTag(b, "Message")
}

// Dial connects the caller to another number.
type Dial struct {
	Number   string
	CallerID string
	Timeout  int
	Action   string
	Record   string
}

func (d Dial) render(b *strings.Builder) {
	element(b, "Dial", d.Number,
		attr{"callerId", d.CallerID},
		attr{"timeout", itoa(d.Timeout)},
		attr{"action", d.Action},
		attr{"record", d.Record},
	)
}

// Redirect transfers control to the TwiML at URL.
type Redirect struct {
	URL    string
	Method string
}

func (r Redirect) render(b *strings.Builder) {
	element(b, "Redirect", r.URL, attr{"method", r.Method})
}

// Gather collects digits or speech, then requests Action. Nested may hold
// Say, Play and Pause verbs.
type Gather struct {
	Action      string
	Method      string
	Input       string
	NumDigits   int
	Timeout     int
	FinishOnKey string
	Nested      []Verb
}

func (g Gather) render(b *strings.Builder) {
	container(b, "Gather", g.Nested,
		attr{"action", g.Action},
		attr{"method", g.Method},
		attr{"input", g.Input},
		attr{"numDigits", itoa(g.NumDigits)},
		attr{"timeout", itoa(g.Timeout)},
		attr{"finishOnKey", g.FinishOnKey},
	)
}

// Pause waits silently for Length seconds (Twilio's default is 1).
type Pause struct {
	Length int
}

func (p Pause) render(b *strings.Builder) {
	element(b, "Pause", "", attr{"length", itoa(p.Length)})
}

// Hangup ends the call.
type Hangup struct{}

func (Hangup) render(b *strings.Builder) {
	b.WriteString("<Hangup/>")
}

// Reject declines an incoming call without answering it.
type Reject struct {
	Reason string
}

func (r Reject) render(b *strings.Builder) {
	element(b, "Reject", "", attr{"reason", r.Reason})
}

// ParseVoice maps a configured voice name to a Voice. Unknown names return false.
func ParseVoice(name string) (Voice, bool) {
	switch v := Voice(strings.ToLower(strings.TrimSpace(name))); v {
	case Man, Woman, Alice:
		return v, true
	case "":
		return "", true
	default:
		return "", false
	}
}

// String makes Voice print as its wire value.
func (v Voice) String() string { return string(v) }
