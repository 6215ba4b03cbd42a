package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// timestampLayouts are the formats the backend emits. SQLite defaults produce
// "2006-01-02 15:04:05" while Python isoformat() omits the zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Timestamp is a time decoded leniently from the backend's mixed formats.
// A null or empty value decodes to the zero time.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the layouts the backend is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// Flag is a boolean that also accepts SQLite's 0/1 integers.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// ChannelList is a set of channel ids. The backend returns either a JSON
// array or, for some endpoints, the raw comma separated column value.
type ChannelList []int

func (c *ChannelList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err == nil {
		*c = ids
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("channel list must be an array or string: %w", err)
	}

	parsed, err := ParseChannelList(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseChannelList parses a comma separated list such as "41, 52,53".
func ParseChannelList(raw string) (ChannelList, error) {
	out := ChannelList{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid channel id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Contains reports whether id is in the list.
func (c ChannelList) Contains(id int) bool {
	for _, ch := range c {
		if ch == id {
			return true
		}
	}
	return false
}

// String renders the list as "41, 52".
func (c ChannelList) String() string {
	parts := make([]string, len(c))
	for i, id := range c {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
