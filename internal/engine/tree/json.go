package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when a document cannot be parsed at all.
var ErrParse = errors.New("parse error")

// ParseJSON decodes text into a navigable Node. Numbers are kept as
// json.Number so large IDs survive.
func ParseJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Null(), fmt.Errorf("%w: json: %w", ErrParse, err)
	}
	return Of(v), nil
}

// ExtractJSONObject finds marker in text and parses the JSON object that
// follows it, e.g. `var ytInitialData = {...};` inside an inline script.
func ExtractJSONObject(text, marker string) (Node, error) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return Null(), fmt.Errorf("%w: marker %q not found", ErrParse, marker)
	}
	rest := strings.TrimLeft(text[idx+len(marker):], " \t\r\n=")
	obj := scanObject(rest)
	if obj == "" {
		return Null(), fmt.Errorf("%w: unterminated object after %q", ErrParse, marker)
	}
	return ParseJSON([]byte(obj))
}

// scanObject returns the complete JSON object starting at s[0] == '{' by
// tracking brace depth outside string literals.
func scanObject(s string) string {
	if s == "" || s[0] != '{' {
		return ""
	}
	depth := 0
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
