package sink

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Format selects how line-oriented sinks encode entries.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q, expected %q or %q", s, FormatText, FormatJSON)
	}
}

// Encode renders e as a single line without the trailing newline.
func (f Format) Encode(e Entry) ([]byte, error) {
	if f == FormatJSON {
		return json.Marshal(e)
	}

	var b strings.Builder
	b.WriteString(e.Time.Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(e.Level.String())
	if e.Route != "" {
		b.WriteString(" [")
		b.WriteString(e.Route)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return []byte(b.String()), nil
}
