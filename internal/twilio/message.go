package twilio

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Message is an SMS/MMS resource. It is decoded from REST JSON and also built
// from the fields of an inbound messaging webhook.
type Message struct {
	SID                 string  `json:"sid"`
	AccountSID          string  `json:"account_sid"`
	MessagingServiceSID string  `json:"messaging_service_sid,omitempty"`
	From                string  `json:"from"`
	To                  string  `json:"to"`
	Body                string  `json:"body"`
	Status              string  `json:"status"`
	Direction           string  `json:"direction,omitempty"`
	NumSegments         string  `json:"num_segments,omitempty"`
	NumMedia            string  `json:"num_media,omitempty"`
	ErrorCode           *int    `json:"error_code,omitempty"`
	ErrorMessage        *string `json:"error_message,omitempty"`
	Price               *string `json:"price,omitempty"`
	PriceUnit           string  `json:"price_unit,omitempty"`
	APIVersion          string  `json:"api_version,omitempty"`
	DateCreated         string  `json:"date_created,omitempty"`
	DateSent            string  `json:"date_sent,omitempty"`
	DateUpdated         string  `json:"date_updated,omitempty"`
	URI                 string  `json:"uri,omitempty"`

	// Media and Raw are only populated from webhooks.
	Media []Media `json:"-"`
	Raw   *Fields `json:"-"`
}

// Media is one attachment of an inbound MMS.
type Media struct {
	URL         string
	ContentType string
}

// FromFields fills m from the parameters of an inbound messaging webhook.
// MessageSid (or the legacy SmsSid), From and To are required.
func (m *Message) FromFields(f *Fields) error {
	sid := f.first("MessageSid", "SmsMessageSid", "SmsSid")
	if sid == "" {
		return fmt.Errorf("%w: missing field MessageSid", ErrParsing)
	}
	from, err := f.require("From")
	if err != nil {
		return err
	}
	to, err := f.require("To")
	if err != nil {
		return err
	}

	*m = Message{
		SID:                 sid,
		AccountSID:          f.Get("AccountSid"),
		MessagingServiceSID: f.Get("MessagingServiceSid"),
		From:                from,
		To:                  to,
		Body:                f.Get("Body"),
		Status:              f.first("MessageStatus", "SmsStatus"),
		Direction:           "inbound",
		NumSegments:         f.Get("NumSegments"),
		NumMedia:            f.Get("NumMedia"),
		APIVersion:          f.Get("ApiVersion"),
		Raw:                 f,
	}

	if m.NumMedia != "" {
		n, err := strconv.Atoi(m.NumMedia)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: NumMedia %q is not a count", ErrParsing, m.NumMedia)
		}
		for i := 0; i < n; i++ {
			url := f.Get("MediaUrl" + strconv.Itoa(i))
			if url == "" {
				return fmt.Errorf("%w: missing field MediaUrl%d", ErrParsing, i)
			}
			m.Media = append(m.Media, Media{
				URL:         url,
				ContentType: f.Get("MediaContentType" + strconv.Itoa(i)),
			})
		}
	}
	return nil
}

// OutboundMessage describes a message to create.
type OutboundMessage struct {
	To                  string
	From                string
	MessagingServiceSID string
	Body                string
	MediaURL            []string
	StatusCallback      string
}

func (m OutboundMessage) params() ([]Param, error) {
	if m.To == "" {
		return nil, fmt.Errorf("%w: message needs To", ErrInvalidParams)
	}
	if m.From == "" && m.MessagingServiceSID == "" {
		return nil, fmt.Errorf("%w: message needs From or MessagingServiceSid", ErrInvalidParams)
	}
	if m.Body == "" && len(m.MediaURL) == 0 {
		return nil, fmt.Errorf("%w: message needs Body or MediaUrl", ErrInvalidParams)
	}

	params := []Param{{Key: "To", Value: m.To}}
	if m.From != "" {
		params = append(params, Param{Key: "From", Value: m.From})
	}
	if m.MessagingServiceSID != "" {
		params = append(params, Param{Key: "MessagingServiceSid", Value: m.MessagingServiceSID})
	}
	if m.Body != "" {
		params = append(params, Param{Key: "Body", Value: m.Body})
	}
	for _, u := range m.MediaURL {
		params = append(params, Param{Key: "MediaUrl", Value: u})
	}
	if m.StatusCallback != "" {
		params = append(params, Param{Key: "StatusCallback", Value: m.StatusCallback})
	}
	return params, nil
}

// SendMessage creates a message.
func (c *Client) SendMessage(ctx context.Context, msg OutboundMessage) (*Message, error) {
	params, err := msg.params()
	if err != nil {
		return nil, err
	}
	out, err := Send[Message](ctx, c, http.MethodPost, "Messages", params)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchMessage retrieves a message by SID.
func (c *Client) FetchMessage(ctx context.Context, sid string) (*Message, error) {
	if sid == "" {
		return nil, fmt.Errorf("%w: empty message sid", ErrInvalidParams)
	}
	out, err := Send[Message](ctx, c, http.MethodGet, "Messages/"+sid, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
