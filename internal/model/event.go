package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Event is one line of a session log as it appears on the wire.
// Data holds the original JSON bytes of the "data" object so key order and
// number formatting survive export unchanged.
//
// A known field whose value is not a string (or, for data, not an object)
// is still accepted: the string field holds its rendered form and the
// original value is kept in Extra under the same key, so exports replay it.
type Event struct {
	Type      string
	Data      json.RawMessage
	ID        string
	Timestamp string
	ParentID  *string
	Extra     map[string]json.RawMessage // unrecognized fields and non-string known fields
}

// ErrNotObject is returned when a line decodes to valid JSON that is not an object.
var ErrNotObject = errors.New("event is not a JSON object")

// wireOrder is the order known fields are written in.
var wireOrder = []string{"type", "data", "id", "timestamp", "parentId"}

// UnmarshalJSON decodes any JSON object into an event. Only non-objects fail.
func (e *Event) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return err
	}

	*e = Event{}
	for key, raw := range fields {
		raw = bytes.TrimSpace(raw)
		switch key {
		case "type":
			e.Type = e.text(key, raw)
		case "id":
			e.ID = e.text(key, raw)
		case "timestamp":
			e.Timestamp = e.text(key, raw)
		case "parentId":
			if !isNull(raw) {
				s := e.text(key, raw)
				e.ParentID = &s
			}
		case "data":
			switch {
			case isNull(raw):
			case raw[0] == '{':
				e.Data = append(json.RawMessage(nil), raw...)
			default:
				e.keep(key, raw)
			}
		default:
			e.keep(key, raw)
		}
	}
	return nil
}

// text returns the string value of raw. Other values are kept verbatim in
// Extra and rendered the way String renders decoded JSON.
func (e *Event) text(key string, raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	e.keep(key, raw)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return String(v)
}

func (e *Event) keep(key string, raw json.RawMessage) {
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[key] = append(json.RawMessage(nil), raw...)
}

// NumericTimestamp reports the timestamp as a number of Unix milliseconds
// when the wire value was a JSON number.
func (e Event) NumericTimestamp() (float64, bool) {
	raw, ok := e.Extra["timestamp"]
	if !ok || len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	f, err := json.Number(raw).Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSON writes the known fields in wire order, then the remaining
// pass-through fields in key order. Derived parse-time fields live on
// Record and never appear here.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		if raw, ok := v.(json.RawMessage); ok {
			buf.Write(raw)
			return nil
		}
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1) // Encode appends a newline
		return nil
	}

	known := map[string]bool{}
	for _, key := range wireOrder {
		known[key] = true
		var v any
		if raw, ok := e.Extra[key]; ok {
			v = raw
		} else {
			switch key {
			case "type":
				v = e.Type
			case "data":
				if len(e.Data) == 0 {
					continue
				}
				v = e.Data
			case "id":
				v = e.ID
			case "timestamp":
				v = e.Timestamp
			case "parentId":
				v = e.ParentID
			}
		}
		if err := write(key, v); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, e.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fields decodes Data into a generic map. Numbers are kept as json.Number.
// A missing data object decodes to an empty map.
func (e Event) Fields() map[string]any {
	m := map[string]any{}
	if len(e.Data) == 0 {
		return m
	}
	dec := json.NewDecoder(bytes.NewReader(e.Data))
	dec.UseNumber()
	_ = dec.Decode(&m)
	return m
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
