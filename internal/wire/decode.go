// Package wire normalizes inbound match payloads into UTF-8 text.
//
// A payload reaches the client in one of three shapes depending on which layer
// produced it: raw bytes straight off the socket, an index-keyed byte map (a
// byte array that went through a generic JSON round trip, {"0":123,"1":34,...}),
// or text that an upstream layer already decoded.
package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Frame is one inbound match data payload before decoding.
type Frame struct {
	MatchID string
	OpCode  int64
	Sender  string
	Data    any
}

// DecodeError reports a payload whose representation is not recognised.
type DecodeError struct {
	Representation string
	Reason         string
}

func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("wire: unsupported frame representation %s", e.Representation)
	}
	return fmt.Sprintf("wire: cannot decode %s: %s", e.Representation, e.Reason)
}

// Decode converts payload into UTF-8 text. Invalid UTF-8 sequences are replaced
// with U+FFFD so every representation of the same bytes yields the same text.
func Decode(payload any) (string, error) {
	switch p := payload.(type) {
	case string:
		return toText([]byte(p)), nil
	case []byte:
		return toText(p), nil
	case json.RawMessage:
		return toText(p), nil
	case map[string]any:
		entries := make([]keyedValue, 0, len(p))
		for k, v := range p {
			entries = append(entries, keyedValue{key: k, value: v})
		}
		return decodeIndexed(entries)
	case map[string]float64:
		entries := make([]keyedValue, 0, len(p))
		for k, v := range p {
			entries = append(entries, keyedValue{key: k, value: v})
		}
		return decodeIndexed(entries)
	case map[string]int:
		entries := make([]keyedValue, 0, len(p))
		for k, v := range p {
			entries = append(entries, keyedValue{key: k, value: v})
		}
		return decodeIndexed(entries)
	case map[int]byte:
		entries := make([]keyedValue, 0, len(p))
		for k, v := range p {
			entries = append(entries, keyedValue{key: strconv.Itoa(k), value: v})
		}
		return decodeIndexed(entries)
	case nil:
		return "", &DecodeError{Representation: "nil"}
	default:
		return "", &DecodeError{Representation: fmt.Sprintf("%T", payload)}
	}
}

func toText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

type keyedValue struct {
	key   string
	value any
}

type indexedByte struct {
	index int
	value byte
}

// decodeIndexed orders entries by numeric key, the order a JavaScript engine
// enumerates integer-like object keys in.
func decodeIndexed(entries []keyedValue) (string, error) {
	out := make([]indexedByte, 0, len(entries))
	for _, e := range entries {
		idx, err := strconv.Atoi(e.key)
		if err != nil || idx < 0 {
			return "", &DecodeError{Representation: "index-keyed byte map", Reason: fmt.Sprintf("key %q is not an index", e.key)}
		}
		b, ok := toByte(e.value)
		if !ok {
			return "", &DecodeError{Representation: "index-keyed byte map", Reason: fmt.Sprintf("value at %d is not a byte: %v", idx, e.value)}
		}
		out = append(out, indexedByte{index: idx, value: b})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	raw := make([]byte, len(out))
	for i, e := range out {
		raw[i] = e.value
	}
	return toText(raw), nil
}

func toByte(v any) (byte, bool) {
	switch n := v.(type) {
	case int:
		return intToByte(int64(n))
	case int64:
		return intToByte(n)
	case uint8:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return intToByte(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return intToByte(i)
	}
	return 0, false
}

func intToByte(n int64) (byte, bool) {
	if n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}
