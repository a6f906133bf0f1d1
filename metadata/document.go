package metadata

import (
	"fmt"

	anyerrors "github.com/wippyai/anyfile/errors"
)

// Member is one key/value pair of a Document.
type Member struct {
	Key   string
	Value Value
}

// Document is a string-keyed mapping that remembers insertion order.
// Order is kept for stable output only; it carries no meaning and
// Equal ignores it. The zero Document is empty and ready to use.
//
// Like a slice, copies of a Document share storage. Use Clone for an
// independent copy.
type Document struct {
	members []Member
}

// New returns an empty document.
func New() Document {
	return Document{}
}

// FromMap builds a document from a Go map, sorting keys.
func FromMap(m map[string]any) (Document, error) {
	d := New()
	for _, k := range sortedKeys(m) {
		v, err := FromAny(m[k])
		if err != nil {
			return Document{}, fmt.Errorf("key %q: %w", k, err)
		}
		d.Set(k, v)
	}
	return d, nil
}

// Len returns the number of keys.
func (d Document) Len() int { return len(d.members) }

// Keys returns keys in insertion order.
func (d Document) Keys() []string {
	keys := make([]string, len(d.members))
	for i, m := range d.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the key/value pairs in insertion order.
func (d Document) Members() []Member {
	out := make([]Member, len(d.members))
	copy(out, d.members)
	return out
}

// Get returns the value stored under key.
func (d Document) Get(key string) (Value, bool) {
	i, ok := d.lookup(key)
	if !ok {
		return Value{}, false
	}
	return d.members[i].Value, true
}

// GetString returns the string stored under key, if it is a string.
func (d Document) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Set stores v under key. Existing keys keep their position.
func (d *Document) Set(key string, v Value) {
	if i, ok := d.lookup(key); ok {
		d.members[i].Value = v
		return
	}
	d.members = append(d.members, Member{Key: key, Value: v})
}

// SetAny converts x with FromAny and stores it under key.
func (d *Document) SetAny(key string, x any) error {
	v, err := FromAny(x)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	d.Set(key, v)
	return nil
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	i, ok := d.lookup(key)
	if !ok {
		return false
	}
	d.members = append(d.members[:i], d.members[i+1:]...)
	return true
}

// Merge copies every member of other into d, overwriting existing keys.
func (d *Document) Merge(other Document) {
	for _, m := range other.members {
		d.Set(m.Key, m.Value)
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := New()
	for _, m := range d.members {
		out.Set(m.Key, cloneValue(m.Value))
	}
	return out
}

// Map converts the document to plain Go values.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d.members))
	for _, m := range d.members {
		out[m.Key] = m.Value.Any()
	}
	return out
}

// Equal reports structural equality ignoring key order.
func (d Document) Equal(other Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, m := range d.members {
		ov, ok := other.Get(m.Key)
		if !ok || !Equal(m.Value, ov) {
			return false
		}
	}
	return true
}

// lookup is a linear scan; documents hold a handful of descriptive keys.
func (d Document) lookup(key string) (int, bool) {
	for i, m := range d.members {
		if m.Key == key {
			return i, true
		}
	}
	return 0, false
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = cloneValue(item)
		}
		return List(items...)
	case KindObject:
		if v.obj == nil {
			return Object(New())
		}
		return Object(v.obj.Clone())
	default:
		return v
	}
}

func unsupported(what string) error {
	return anyerrors.InvalidInput(anyerrors.PhaseMetadata, "unsupported "+what)
}

func typeName(x any) string {
	return fmt.Sprintf("%T", x)
}
