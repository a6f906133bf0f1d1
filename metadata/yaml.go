package metadata

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	anyerrors "github.com/wippyai/anyfile/errors"
)

// EncodeYAML renders d as a YAML document, keeping key order.
func EncodeYAML(d Document) ([]byte, error) {
	out, err := yaml.Marshal(objectNode(d))
	if err != nil {
		return nil, anyerrors.Wrap(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata, err, "encode yaml")
	}
	return out, nil
}

// DecodeYAML parses a YAML mapping into a document, keeping key order.
// JSON is a subset of YAML, so JSON metadata files are accepted too.
// Empty input yields the empty document.
func DecodeYAML(b []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return Document{}, anyerrors.InvalidMetadata("parse yaml", err)
	}
	if root.Kind == 0 {
		return New(), nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return New(), nil
		}
		node = node.Content[0]
	}
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		return Document{}, anyerrors.New(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata).
			Detail("yaml document must be a mapping (line %d)", node.Line).
			Build()
	}
	var dec yamlDecoder
	return dec.mapping(node)
}

// MarshalYAML implements yaml.Marshaler so documents nested in other
// structures keep their key order and number literals.
func (d Document) MarshalYAML() (any, error) {
	return objectNode(d), nil
}

func objectNode(d Document) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if d.Len() == 0 {
		n.Style = yaml.FlowStyle
	}
	for _, m := range d.members {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key},
			valueNode(m.Value),
		)
	}
	return n
}

func valueNode(v Value) *yaml.Node {
	switch v.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindNumber:
		tag := "!!int"
		if strings.ContainsAny(v.str, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.str}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(v.list) == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, item := range v.list {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case KindObject:
		if v.obj == nil {
			return objectNode(New())
		}
		return objectNode(*v.obj)
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// maxYAMLNodes caps the nodes visited while converting one document.
// Aliases are expanded in place, so a small file of nested aliases can
// otherwise describe an exponentially large tree.
const maxYAMLNodes = 100000

type yamlDecoder struct {
	nodes int
}

func (dec *yamlDecoder) visit(n *yaml.Node) error {
	dec.nodes++
	if dec.nodes > maxYAMLNodes {
		return anyerrors.New(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata).
			Detail("yaml document expands to more than %d nodes (line %d)", maxYAMLNodes, n.Line).
			Build()
	}
	return nil
}

func (dec *yamlDecoder) mapping(n *yaml.Node) (Document, error) {
	d := New()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolveAlias(n.Content[i])
		if k.Kind != yaml.ScalarNode {
			return Document{}, anyerrors.New(anyerrors.PhaseMetadata, anyerrors.KindInvalidMetadata).
				Detail("mapping key at line %d is not a scalar", k.Line).
				Build()
		}
		v, err := dec.value(n.Content[i+1])
		if err != nil {
			return Document{}, err
		}
		d.Set(k.Value, v)
	}
	return d, nil
}

func (dec *yamlDecoder) value(n *yaml.Node) (Value, error) {
	n = resolveAlias(n)
	if err := dec.visit(n); err != nil {
		return Value{}, err
	}
	switch n.Kind {
	case yaml.MappingNode:
		d, err := dec.mapping(n)
		if err != nil {
			return Value{}, err
		}
		return Object(d), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := dec.value(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		return scalarToValue(n)
	default:
		return Null(), nil
	}
}

func scalarToValue(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, anyerrors.InvalidMetadata("decode bool at line "+strconv.Itoa(n.Line), err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return Uint(u), nil
		}
		if v, ok := Number(n.Value); ok {
			return v, nil
		}
		return Value{}, anyerrors.InvalidMetadata("integer out of range at line "+strconv.Itoa(n.Line), nil)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, anyerrors.InvalidMetadata("decode float at line "+strconv.Itoa(n.Line), err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, anyerrors.InvalidMetadata("non-finite number at line "+strconv.Itoa(n.Line), nil)
		}
		if v, ok := Number(n.Value); ok {
			return v, nil
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
