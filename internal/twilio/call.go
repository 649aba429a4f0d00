package twilio

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Call statuses reported by the API and in voice webhooks.
const (
	CallQueued     = "queued"
	CallRinging    = "ringing"
	CallInProgress = "in-progress"
	CallCompleted  = "completed"
	CallBusy       = "busy"
	CallFailed     = "failed"
	CallNoAnswer   = "no-answer"
	CallCanceled   = "canceled"
)

// Call is a voice call resource, decoded from REST JSON or built from the
// fields of an inbound voice webhook.
type Call struct {
	SID           string  `json:"sid"`
	AccountSID    string  `json:"account_sid"`
	ParentCallSID string  `json:"parent_call_sid,omitempty"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Status        string  `json:"status"`
	Direction     string  `json:"direction,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	AnsweredBy    string  `json:"answered_by,omitempty"`
	CallerName    string  `json:"caller_name,omitempty"`
	ForwardedFrom string  `json:"forwarded_from,omitempty"`
	Price         *string `json:"price,omitempty"`
	PriceUnit     string  `json:"price_unit,omitempty"`
	APIVersion    string  `json:"api_version,omitempty"`
	StartTime     string  `json:"start_time,omitempty"`
	EndTime       string  `json:"end_time,omitempty"`
	DateCreated   string  `json:"date_created,omitempty"`
	DateUpdated   string  `json:"date_updated,omitempty"`
	URI           string  `json:"uri,omitempty"`

	// Webhook-only: keys pressed or speech captured by <Gather>, and all
	// received parameters.
	Digits       string  `json:"-"`
	SpeechResult string  `json:"-"`
	Raw          *Fields `json:"-"`
}

// FromFields fills c from the parameters of an inbound voice webhook.
// CallSid, From and To are required.
func (c *Call) FromFields(f *Fields) error {
	sid, err := f.require("CallSid")
	if err != nil {
		return err
	}
	from, err := f.require("From")
	if err != nil {
		return err
	}
	to, err := f.require("To")
	if err != nil {
		return err
	}

	*c = Call{
		SID:           sid,
		AccountSID:    f.Get("AccountSid"),
		ParentCallSID: f.Get("ParentCallSid"),
		From:          from,
		To:            to,
		Status:        f.Get("CallStatus"),
		Direction:     f.Get("Direction"),
		Duration:      f.first("CallDuration", "Duration"),
		AnsweredBy:    f.Get("AnsweredBy"),
		CallerName:    f.Get("CallerName"),
		ForwardedFrom: f.Get("ForwardedFrom"),
		APIVersion:    f.Get("ApiVersion"),
		Digits:        f.Get("Digits"),
		SpeechResult:  f.Get("SpeechResult"),
		Raw:           f,
	}

	if c.Duration != "" {
		if _, err := strconv.Atoi(c.Duration); err != nil {
			return fmt.Errorf("%w: call duration %q is not a number", ErrParsing, c.Duration)
		}
	}
	return nil
}

// OutboundCall describes a call to place. URL must serve TwiML for the call.
type OutboundCall struct {
	To             string
	From           string
	URL            string
	// Twiml is inline markup executed instead of fetching URL.
	Twiml          string
	Method         string
	StatusCallback string
	Timeout        int
}

func (oc OutboundCall) params() ([]Param, error) {
	if oc.To == "" || oc.From == "" {
		return nil, fmt.Errorf("%w: call needs To and From", ErrInvalidParams)
	}
	if (oc.URL == "") == (oc.Twiml == "") {
		return nil, fmt.Errorf("%w: call needs exactly one of Url or Twiml", ErrInvalidParams)
	}

	params := []Param{
		{Key: "To", Value: oc.To},
		{Key: "From", Value: oc.From},
	}
	if oc.URL != "" {
		params = append(params, Param{Key: "Url", Value: oc.URL})
	} else {
		params = append(params, Param{Key: "Twiml", Value: escapeValue(oc.Twiml)})
	}
	if oc.Method != "" {
		params = append(params, Param{Key: "Method", Value: oc.Method})
	}
	if oc.StatusCallback != "" {
		params = append(params, Param{Key: "StatusCallback", Value: oc.StatusCallback})
	}
	if oc.Timeout > 0 {
		params = append(params, Param{Key: "Timeout", Value: strconv.Itoa(oc.Timeout)})
	}
	return params, nil
}

// CallUpdate redirects or ends a live call.
type CallUpdate struct {
	Status string
	URL    string
	Twiml  string
	Method string
}

func (u CallUpdate) params() ([]Param, error) {
	var params []Param
	if u.Status != "" {
		if u.Status != CallCompleted && u.Status != CallCanceled {
			return nil, fmt.Errorf("%w: call status can only be set to %s or %s", ErrInvalidParams, CallCompleted, CallCanceled)
		}
		params = append(params, Param{Key: "Status", Value: u.Status})
	}
	if u.URL != "" && u.Twiml != "" {
		return nil, fmt.Errorf("%w: call update takes Url or Twiml, not both", ErrInvalidParams)
	}
	if u.URL != "" {
		params = append(params, Param{Key: "Url", Value: u.URL})
	}
	if u.Twiml != "" {
		params = append(params, Param{Key: "Twiml", Value: escapeValue(u.Twiml)})
	}
	if u.Method != "" {
		params = append(params, Param{Key: "Method", Value: u.Method})
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: empty call update", ErrInvalidParams)
	}
	return params, nil
}

// MakeCall places an outbound call.
func (c *Client) MakeCall(ctx context.Context, call OutboundCall) (*Call, error) {
	params, err := call.params()
	if err != nil {
		return nil, err
	}
	out, err := Send[Call](ctx, c, http.MethodPost, "Calls", params)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCall retrieves a call by SID.
func (c *Client) FetchCall(ctx context.Context, sid string) (*Call, error) {
	if sid == "" {
		return nil, fmt.Errorf("%w: empty call sid", ErrInvalidParams)
	}
	out, err := Send[Call](ctx, c, http.MethodGet, "Calls/"+sid, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCall modifies a live call.
func (c *Client) UpdateCall(ctx context.Context, sid string, update CallUpdate) (*Call, error) {
	if sid == "" {
		return nil, fmt.Errorf("%w: empty call sid", ErrInvalidParams)
	}
	params, err := update.params()
	if err != nil {
		return nil, err
	}
	out, err := Send[Call](ctx, c, http.MethodPost, "Calls/"+sid, params)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// HangupCall ends a call that is in progress.
func (c *Client) HangupCall(ctx context.Context, sid string) (*Call, error) {
	return c.UpdateCall(ctx, sid, CallUpdate{Status: CallCompleted})
}
