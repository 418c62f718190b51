package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DetailMaxString is the longest string value shown untruncated in the
// detail view.
const DetailMaxString = 500

// TruncationMarker is appended to a string value cut by the detail view.
const TruncationMarker = "…[truncated]"

// PrettyJSON renders v with two-space indentation, without HTML escaping.
// When limit is positive, string values (not keys) longer than limit
// characters keep their first limit characters followed by TruncationMarker.
// Object key order is preserved.
func PrettyJSON(v any, limit int) ([]byte, error) {
	var compact bytes.Buffer
	enc := json.NewEncoder(&compact)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}

	src := bytes.TrimSuffix(compact.Bytes(), []byte("\n"))
	if limit > 0 {
		var cut bytes.Buffer
		dec := json.NewDecoder(bytes.NewReader(src))
		dec.UseNumber()
		if err := truncateValue(dec, &cut, limit); err != nil {
			return nil, fmt.Errorf("session: truncate: %w", err)
		}
		src = cut.Bytes()
	}

	var out bytes.Buffer
	if err := json.Indent(&out, src, "", "  "); err != nil {
		return nil, fmt.Errorf("session: indent: %w", err)
	}
	return out.Bytes(), nil
}

// truncateValue copies one JSON value from dec to buf, shortening strings.
func truncateValue(dec *json.Decoder, buf *bytes.Buffer, limit int) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			buf.WriteByte('{')
			for n := 0; dec.More(); n++ {
				if n > 0 {
					buf.WriteByte(',')
				}
				key, err := dec.Token()
				if err != nil {
					return err
				}
				writeString(buf, key.(string))
				buf.WriteByte(':')
				if err := truncateValue(dec, buf, limit); err != nil {
					return err
				}
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			for n := 0; dec.More(); n++ {
				if n > 0 {
					buf.WriteByte(',')
				}
				if err := truncateValue(dec, buf, limit); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		}
		// consume the closing delimiter
		_, err := dec.Token()
		return err
	case string:
		if utf8.RuneCountInString(t) > limit {
			t = string([]rune(t)[:limit]) + TruncationMarker
		}
		writeString(buf, t)
	case json.Number:
		buf.WriteString(t.String())
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
