package inbox

import (
	"errors"
	"time"
)

type Kind string

const (
	KindMessage Kind = "message"
	KindCall    Kind = "call"
)

// Field is one received webhook parameter, kept in arrival order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entry is one accepted webhook delivery.
type Entry struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	SID         string    `json:"sid"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Fields      []Field   `json:"fields"`
	Fingerprint string    `json:"fingerprint"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ListFilter narrows List results. A zero Kind matches everything.
type ListFilter struct {
	Kind  Kind
	Limit int
}

const DefaultListLimit = 50

var ErrNotFound = errors.New("inbox entry not found")
