package inbox

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// timeLayout is fixed-width so received_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Inbox is a SQLite-backed log of accepted webhook deliveries.
type Inbox struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Inbox {
	return &Inbox{db: db, now: time.Now}
}

// Fingerprint identifies a delivery by its kind and ordered fields. Twilio
// redelivers the same parameters on retry, so a repeat hashes identically.
func Fingerprint(kind Kind, fields []Field) string {
	h := blake3.New()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	for _, f := range fields {
		_, _ = h.Write([]byte(f.Name))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(f.Value))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Record stores entry and returns its id. A delivery whose fingerprint is
// already stored is not inserted again; the existing id is returned with
// duplicate set.
func (i *Inbox) Record(ctx context.Context, entry Entry) (string, bool, error) {
	if entry.Kind == "" {
		return "", false, fmt.Errorf("kind is empty")
	}
	if entry.SID == "" {
		return "", false, fmt.Errorf("sid is empty")
	}

	fields := entry.Fields
	if fields == nil {
		fields = []Field{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", false, fmt.Errorf("encode fields: %w", err)
	}

	id := uuid.NewString()
	fingerprint := Fingerprint(entry.Kind, fields)
	receivedAt := entry.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = i.now()
	}

	res, err := i.db.ExecContext(ctx, `
INSERT INTO inbox(id, kind, sid, from_number, to_number, fingerprint, fields, received_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO NOTHING;
`, id, entry.Kind, entry.SID, entry.From, entry.To, fingerprint, string(fieldsJSON), receivedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", false, fmt.Errorf("record inbox entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("record inbox entry: %w", err)
	}
	if n > 0 {
		return id, false, nil
	}

	var existing string
	if err := i.db.QueryRowContext(ctx, `SELECT id FROM inbox WHERE fingerprint = ?;`, fingerprint).Scan(&existing); err != nil {
		return "", false, fmt.Errorf("lookup duplicate inbox entry: %w", err)
	}
	return existing, true, nil
}

// Get returns the entry with id, or ErrNotFound.
func (i *Inbox) Get(ctx context.Context, id string) (*Entry, error) {
	row := i.db.QueryRowContext(ctx, `
SELECT id, kind, sid, from_number, to_number, fingerprint, fields, received_at
FROM inbox
WHERE id = ?;
`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns entries newest first.
func (i *Inbox) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := i.db.QueryContext(ctx, `
SELECT id, kind, sid, from_number, to_number, fingerprint, fields, received_at
FROM inbox
WHERE (? = '' OR kind = ?)
ORDER BY received_at DESC, rowid DESC
LIMIT ?;
`, filter.Kind, filter.Kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e          Entry
		kind       string
		fieldsJSON string
		receivedAt string
	)
	if err := s.Scan(&e.ID, &kind, &e.SID, &e.From, &e.To, &e.Fingerprint, &fieldsJSON, &receivedAt); err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields for %s: %w", e.ID, err)
	}
	t, err := time.Parse(timeLayout, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse received_at for %s: %w", e.ID, err)
	}
	e.ReceivedAt = t
	return &e, nil
}
