package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is a server-assigned identifier. The REST API sends integers while some
// socket payloads send strings; both decode to the same value.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	if err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(s)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UserRef identifies a user. Depending on the source only the id or only the
// username may be populated, and recipients sometimes arrive as a bare id.
type UserRef struct {
	ID       ID     `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

func (u *UserRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		type plain UserRef
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return fmt.Errorf("decoding user: %w", err)
		}
		*u = UserRef(p)
		return nil
	}

	s, err := scalar(b)
	if err != nil {
		return fmt.Errorf("decoding user: %w", err)
	}
	*u = UserRef{ID: ID(s)}
	return nil
}

// Key returns the id, falling back to the username.
func (u UserRef) Key() string {
	if u.ID != "" {
		return string(u.ID)
	}
	return u.Username
}

func (u UserRef) IsZero() bool {
	return u.ID == "" && u.Username == ""
}

// Matches reports whether the reference points at user, by id or by username.
func (u UserRef) Matches(user User) bool {
	if u.ID != "" && u.ID == user.ID {
		return true
	}
	return u.Username != "" && u.Username == user.Username
}

// ProductRef is the optional listing a message is about. It arrives as a bare
// id or as an embedded product object.
type ProductRef struct {
	ID ID
}

func (p *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("decoding product: %w", err)
		}
		p.ID = obj.ID
		return nil
	}

	s, err := scalar(b)
	if err != nil {
		return fmt.Errorf("decoding product: %w", err)
	}
	p.ID = ID(s)
	return nil
}

func (p ProductRef) MarshalJSON() ([]byte, error) {
	return p.ID.MarshalJSON()
}

// Decimal is a numeric value the API may encode as a number or a string.
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	if err != nil {
		return fmt.Errorf("decoding decimal: %w", err)
	}
	*d = Decimal(s)
	return nil
}

func (d Decimal) Float64() (float64, bool) {
	if d == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(d), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp keeps the wire representation next to the parsed instant. The raw
// form takes part in message fingerprints, the parsed form in ordering.
type Timestamp struct {
	Raw  string
	Time time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Raw: t.UTC().Format(time.RFC3339Nano), Time: t.UTC()}
}

func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ts.Time = t.UTC()
			break
		}
	}
	return ts
}

// Instant is the ordering key. Missing or unparseable timestamps sort as the epoch.
func (t Timestamp) Instant() time.Time {
	if t.Time.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.Time
}

func (t Timestamp) IsZero() bool {
	return t.Raw == "" && t.Time.IsZero()
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '"' && !bytes.Equal(b, []byte("null")) {
		// numeric timestamps are unix milliseconds
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("decoding timestamp: %w", err)
		}
		*t = Timestamp{Raw: string(b), Time: time.UnixMilli(ms).UTC()}
		return nil
	}

	s, err := scalar(b)
	if err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		if t.Time.IsZero() {
			return []byte("null"), nil
		}
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	}
	return json.Marshal(t.Raw)
}

// scalar decodes a JSON number, string or null into its textual form.
func scalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
