package metadata

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/goccy/go-json"

	anyerrors "github.com/wippyai/anyfile/errors"
)

// Encode returns the compact UTF-8 JSON form of d. The empty document
// encodes to zero bytes, so an empty metadata region costs nothing on disk.
func Encode(d Document) ([]byte, error) {
	if d.Len() == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if err := writeObject(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeIndent returns the two-space indented JSON form of d. Unlike Encode,
// the empty document renders as "{}".
func EncodeIndent(d Document) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeObject(&compact, d); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, anyerrors.Wrap(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata, err, "indent document")
	}
	return out.Bytes(), nil
}

// Decode parses a metadata region. A zero-length region is the empty
// document. Anything else must be valid UTF-8 holding exactly one JSON
// object; failures are InvalidMetadata errors. Member order is kept and
// number literals are stored verbatim, including ones outside float64 range.
func Decode(b []byte) (Document, error) {
	if len(b) == 0 {
		return New(), nil
	}
	if !utf8.Valid(b) {
		return Document{}, anyerrors.InvalidUTF8(b)
	}

	dec := stdjson.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Document{}, anyerrors.InvalidMetadata("parse document", err)
	}
	if tok != stdjson.Delim('{') {
		return Document{}, anyerrors.New(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata).
			Detail("document must be an object, got %s", tokenKind(tok)).
			Build()
	}
	d, err := decodeObject(dec)
	if err != nil {
		return Document{}, anyerrors.InvalidMetadata("parse document", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Document{}, anyerrors.InvalidMetadata("unexpected data after document", err)
	}
	return d, nil
}

// decodeObject reads members up to and including the closing brace. The
// opening brace has already been consumed.
func decodeObject(dec *stdjson.Decoder) (Document, error) {
	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Document{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Document{}, fmt.Errorf("object key is %s", tokenKind(tok))
		}
		v, err := decodeValue(dec)
		if err != nil {
			return Document{}, fmt.Errorf("key %q: %w", key, err)
		}
		d.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Document{}, err
	}
	return d, nil
}

func decodeValue(dec *stdjson.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case stdjson.Number:
		v, ok := Number(string(t))
		if !ok {
			return Value{}, unsupported("number literal " + strconv.Quote(string(t)))
		}
		return v, nil
	case stdjson.Delim:
		switch t {
		case '{':
			d, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Object(d), nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, fmt.Errorf("index %d: %w", len(items), err)
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func tokenKind(tok stdjson.Token) string {
	switch t := tok.(type) {
	case stdjson.Delim:
		if t == '[' {
			return "list"
		}
		return "delimiter " + t.String()
	case stdjson.Number:
		return "number"
	default:
		return jsonKind(t)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler. The empty document is "{}".
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeObject(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(b []byte) error {
	doc, err := Decode(b)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.str)
	case KindString:
		return writeString(buf, v.str)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		if v.obj == nil {
			buf.WriteString("{}")
			return nil
		}
		return writeObject(buf, *v.obj)
	default:
		return unsupported("value kind " + v.kind.String())
	}
	return nil
}

func writeObject(buf *bytes.Buffer, d Document) error {
	buf.WriteByte('{')
	for i, m := range d.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, m.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, m.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return anyerrors.Wrap(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata, err, "encode string")
	}
	buf.Write(b)
	return nil
}

func jsonKind(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	default:
		return typeName(x)
	}
}
