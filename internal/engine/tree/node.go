// Package tree provides null-tolerant navigation over parsed JSON and HTML
// documents. A missing step never fails: it yields a null Node, so callers can
// chain OrElse alternatives to survive response-shape drift.
package tree

import (
	"encoding/json"
	"iter"
	"strconv"
	"strings"
)

// Node is an immutable view of one element of a decoded document.
type Node struct {
	v        any
	present  bool
	resolved bool
}

// Null returns the null-marked node.
func Null() Node { return Node{} }

// Of wraps an already decoded value (map[string]any, []any, string,
// json.Number, float64, bool). A nil value is null.
func Of(v any) Node {
	return Node{v: v, present: v != nil}
}

// IsNull reports whether the node is missing.
func (n Node) IsNull() bool { return !n.present }

// Value returns the underlying decoded value, or nil for a null node.
func (n Node) Value() any { return n.v }

// Path descends through object keys. Numeric keys also index arrays, so
// Path("contents", "0", "title") works on mixed shapes.
func (n Node) Path(keys ...string) Node {
	cur := n
	for _, k := range keys {
		if cur.IsNull() {
			return Null()
		}
		switch v := cur.v.(type) {
		case map[string]any:
			cur = Of(v[k])
		case []any:
			i, err := strconv.Atoi(k)
			if err != nil {
				return Null()
			}
			cur = cur.Index(i)
		default:
			return Null()
		}
	}
	if len(keys) > 0 {
		cur.resolved = false
	}
	return cur
}

// Index returns the n-th array element; negative n counts from the end.
func (n Node) Index(i int) Node {
	arr, ok := n.v.([]any)
	if !ok {
		return Null()
	}
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return Null()
	}
	return Of(arr[i])
}

// First returns the first array element.
func (n Node) First() Node { return n.Index(0) }

// Last returns the last array element.
func (n Node) Last() Node { return n.Index(-1) }

// Len returns the number of array elements or object keys.
func (n Node) Len() int {
	switch v := n.v.(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	return 0
}

// Elements iterates array children lazily. Non-arrays yield nothing.
func (n Node) Elements() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		arr, ok := n.v.([]any)
		if !ok {
			return
		}
		for _, e := range arr {
			if !yield(Of(e)) {
				return
			}
		}
	}
}

// Has reports whether the object has the key with a non-null value.
func (n Node) Has(key string) bool {
	return !n.Path(key).IsNull()
}

// OrElse returns n when it is present (or already won an earlier OrElse),
// otherwise alt. The returned node is marked resolved when present, so in
// a.OrElse(b).OrElse(c) the first present node wins.
func (n Node) OrElse(alt Node) Node {
	if n.resolved {
		return n
	}
	if n.present {
		n.resolved = true
		return n
	}
	alt.resolved = alt.present
	return alt
}

// OrElseFunc is OrElse with a lazily computed alternative.
func (n Node) OrElseFunc(alt func() Node) Node {
	if n.resolved || n.present {
		return n.OrElse(Null())
	}
	return Null().OrElse(alt())
}

// AsString returns the string at path. Numbers and booleans are formatted.
func (n Node) AsString(path ...string) (string, bool) {
	t := n.Path(path...)
	switch v := t.v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// Str is AsString without the presence flag.
func (n Node) Str(path ...string) string {
	s, _ := n.AsString(path...)
	return s
}

// AsLong returns the integer at path. Numeric strings such as "212" or
// "1,234,567" are accepted.
func (n Node) AsLong(path ...string) (int64, bool) {
	t := n.Path(path...)
	switch v := t.v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(v), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Text returns display text at path, joining YouTube-style "runs" or
// reading "simpleText" when the target is an object.
func (n Node) Text(path ...string) string {
	t := n.Path(path...)
	if s, ok := t.AsString(); ok {
		return s
	}
	if s, ok := t.AsString("simpleText"); ok {
		return s
	}
	var sb strings.Builder
	for r := range t.Path("runs").Elements() {
		sb.WriteString(r.Str("text"))
	}
	return sb.String()
}
