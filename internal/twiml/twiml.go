// Package twiml builds TwiML documents, the XML instruction set Twilio
// executes when a webhook answers a call or message.
//
//	resp := twiml.NewResponse().Add(
//		twiml.Say{Text: "Thanks for calling.", Voice: twiml.Woman, Language: "en"},
//		twiml.Hangup{},
//	)
//	body := resp.String()
//
// Rendering is pure: the same document always yields the same bytes.
package twiml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// ContentType is the media type of a rendered document.
const ContentType = "text/xml"

const header = `<?xml version="1.0" encoding="UTF-8"?>`

// Document is anything that renders to a single response body.
type Document interface {
	String() string
	ContentType() string
}

// Verb is one TwiML instruction.
type Verb interface {
	render(b *strings.Builder)
}

// Response is the root <Response> element.
type Response struct {
	verbs []Verb
}

// NewResponse returns an empty document.
func NewResponse() *Response {
	return &Response{}
}

// Add appends verbs in order and returns r for chaining.
func (r *Response) Add(verbs ...Verb) *Response {
	r.verbs = append(r.verbs, verbs...)
	return r
}

// Len returns the number of top-level verbs.
func (r *Response) Len() int { return len(r.verbs) }

// String renders the document with an XML declaration.
func (r *Response) String() string {
	var b strings.Builder
	b.WriteString(header)
	if len(r.verbs) == 0 {
		b.WriteString("<Response/>")
		return b.String()
	}
	b.WriteString("<Response>")
	for _, v := range r.verbs {
		v.render(&b)
	}
	b.WriteString("</Response>")
	return b.String()
}

// ContentType implements Document.
func (r *Response) ContentType() string { return ContentType }

type attr struct {
	name  string
	value string
}

// element writes <name attrs>text</name>, or a self-closing tag when text is
// empty. Attributes with empty values are omitted.
func element(b *strings.Builder, name, text string, attrs ...attr) {
	open(b, name, attrs...)
	if text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	escape(b, text)
	closeTag(b, name)
}

// container writes <name attrs> children </name>.
func container(b *strings.Builder, name string, children []Verb, attrs ...attr) {
	open(b, name, attrs...)
	if len(children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range children {
		c.render(b)
	}
	closeTag(b, name)
}

func open(b *strings.Builder, name string, attrs ...attr) {
	b.WriteByte('<')
	b.WriteString(name)
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(a.name)
		b.WriteString(`="`)
		escape(b, a.value)
		b.WriteByte('"')
	}
}

func closeTag(b *strings.Builder, name string) {
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}

// escape writes s with XML escaping. strings.Builder never fails a write.
func escape(b *strings.Builder, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
