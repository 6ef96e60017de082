package extract

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindScalar Kind = iota
	KindMap
	KindList
)

// Node is a generic payload tree: a mapping with ordered keys, a sequence, or
// a scalar (string, json.Number, bool or nil).
type Node struct {
	Kind   Kind
	Keys   []string
	Fields map[string]*Node
	Items  []*Node
	Value  any
}

// FromJSON decodes data into a tree. Map keys keep their source order; a
// repeated key keeps its first position and its last value.
func FromJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return nil, eris.Wrap(err, "extract: decode payload")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, eris.New("extract: trailing data after payload")
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &Node{Kind: KindMap, Fields: make(map[string]*Node)}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, eris.Errorf("unexpected key token %v", kt)
				}
				child, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				n.set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &Node{Kind: KindList}
			for dec.More() {
				child, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, eris.Errorf("unexpected delimiter %v", t)
	default:
		return &Node{Kind: KindScalar, Value: t}, nil
	}
}

func (n *Node) set(key string, child *Node) {
	if _, ok := n.Fields[key]; !ok {
		n.Keys = append(n.Keys, key)
	}
	n.Fields[key] = child
}

// FromValue builds a tree from an already-decoded value. Keys of Go maps have
// no order, so they are visited in the order returned by a fresh JSON
// round-trip, which is sorted.
func FromValue(v any) (*Node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "extract: encode value")
	}
	return FromJSON(data)
}

// Get returns the child under key, or nil if n is not a map or lacks key.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	return n.Fields[key]
}

// Str returns the scalar string value of n.
func (n *Node) Str() (string, bool) {
	if n == nil || n.Kind != KindScalar {
		return "", false
	}
	s, ok := n.Value.(string)
	return s, ok
}

// GetString returns the string under key or "".
func (n *Node) GetString(key string) string {
	s, _ := n.Get(key).Str()
	return s
}

// IsTrue reports whether n is the boolean true.
func (n *Node) IsTrue() bool {
	if n == nil || n.Kind != KindScalar {
		return false
	}
	b, ok := n.Value.(bool)
	return ok && b
}

// Children returns map values in key order or list items in order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindMap:
		out := make([]*Node, len(n.Keys))
		for i, k := range n.Keys {
			out[i] = n.Fields[k]
		}
		return out
	case KindList:
		return n.Items
	}
	return nil
}
