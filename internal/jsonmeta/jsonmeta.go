// Package jsonmeta parses JSON into a tagged variant and derives the
// searchable metadata recorded for json-category entries: ordered top-level
// keys, a bounded preview, and flattened search text.
package jsonmeta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// PreviewLimit bounds the stored preview to a prefix of the canonical
// re-serialization.
const PreviewLimit = 500

// Kind discriminates the JSON variant.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindString
	KindNumber
	KindBool
	KindNull
)

// Member is one key/value pair of a JSON object, in document order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON document node. Exactly one of the payload fields
// is meaningful, selected by Kind. Object member order is preserved from
// the source document.
type Value struct {
	Kind    Kind
	Members []Member // KindObject
	Items   []*Value // KindArray
	Str     string   // KindString
	Num     string   // KindNumber, literal text from the document
	Bool    bool     // KindBool
}

// Parse decodes b as a single JSON document. Trailing non-whitespace after
// the document is an error. Numbers keep their literal form.
func Parse(b []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}

	// The document must be exactly one value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing json: trailing data after document")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected %q", t.String())
		}
	case string:
		return &Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return &Value{Kind: KindNumber, Num: t.String()}, nil
	case bool:
		return &Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return &Value{Kind: KindNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (*Value, error) {
	v := &Value{Kind: KindObject}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		v.Members = append(v.Members, Member{Key: key, Value: val})
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseArray(dec *json.Decoder) (*Value, error) {
	v := &Value{Kind: KindArray}
	for dec.More() {
		item, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		v.Items = append(v.Items, item)
	}
	// Consume the closing ']'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

// Meta is the JSON enrichment recorded on a catalog entry.
type Meta struct {
	Keys       []string // top-level object keys in document order; empty for array/scalar
	Preview    string   // first PreviewLimit bytes of the canonical re-serialization
	SearchText string   // depth-first scalar leaves, lower-cased, space-joined
}

// Extract derives entry metadata from a parsed document.
func Extract(v *Value) Meta {
	keys := make([]string, 0)
	if v.Kind == KindObject {
		for _, m := range v.Members {
			keys = append(keys, m.Key)
		}
	}

	var canon strings.Builder
	appendCanonical(&canon, v)

	return Meta{
		Keys:       keys,
		Preview:    truncateUTF8(canon.String(), PreviewLimit),
		SearchText: strings.ToLower(strings.Join(leaves(v, nil), " ")),
	}
}

// appendCanonical re-serializes the value compactly, preserving object
// member order and number literals.
func appendCanonical(b *strings.Builder, v *Value) {
	switch v.Kind {
	case KindObject:
		b.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, m.Key)
			b.WriteByte(':')
			appendCanonical(b, m.Value)
		}
		b.WriteByte('}')
	case KindArray:
		b.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			appendCanonical(b, item)
		}
		b.WriteByte(']')
	case KindString:
		writeJSONString(b, v.Str)
	case KindNumber:
		b.WriteString(v.Num)
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNull:
		b.WriteString("null")
	}
}

func writeJSONString(b *strings.Builder, s string) {
	enc, err := json.Marshal(s)
	if err != nil {
		// Marshal of a string cannot fail; keep the raw text if it somehow does.
		b.WriteString(`"` + s + `"`)
		return
	}
	b.Write(enc)
}

// leaves collects every scalar leaf value depth-first.
func leaves(v *Value, out []string) []string {
	switch v.Kind {
	case KindObject:
		for _, m := range v.Members {
			out = leaves(m.Value, out)
		}
	case KindArray:
		for _, item := range v.Items {
			out = leaves(item, out)
		}
	case KindString:
		out = append(out, v.Str)
	case KindNumber:
		out = append(out, v.Num)
	case KindBool:
		if v.Bool {
			out = append(out, "true")
		} else {
			out = append(out, "false")
		}
	case KindNull:
		out = append(out, "null")
	}
	return out
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
