package world

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Node is one JSON object of a world document held as raw bytes. Reads go
// through gjson and writes through sjson, so keys the converter does not know
// about keep their values and order.
type Node struct {
	raw []byte
}

// NewNode wraps raw JSON object bytes.
//
// Precondition: raw must be a JSON object.
func NewNode(raw []byte) *Node {
	return &Node{raw: raw}
}

// Raw returns the current bytes of the node.
func (n *Node) Raw() []byte { return n.raw }

// Get returns the value at path.
func (n *Node) Get(path string) gjson.Result {
	return gjson.GetBytes(n.raw, path)
}

// Has reports whether key is present.
func (n *Node) Has(key string) bool {
	return n.Get(key).Exists()
}

// Set stores v at path.
func (n *Node) Set(path string, v any) error {
	out, err := sjson.SetBytes(n.raw, path, v)
	if err != nil {
		return fmt.Errorf("setting %q: %w", path, err)
	}
	n.raw = out
	return nil
}

// SetRaw stores the JSON text raw at path without re-encoding it.
func (n *Node) SetRaw(path string, raw []byte) error {
	out, err := sjson.SetRawBytes(n.raw, path, raw)
	if err != nil {
		return fmt.Errorf("setting %q: %w", path, err)
	}
	n.raw = out
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (n *Node) Delete(key string) error {
	if !n.Has(key) {
		return nil
	}
	out, err := sjson.DeleteBytes(n.raw, key)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	n.raw = out
	return nil
}

// SetDefault stores v at key only when key is absent.
func (n *Node) SetDefault(key string, v any) error {
	if n.Has(key) {
		return nil
	}
	return n.Set(key, v)
}

func joinNodes(nodes []*Node) []byte {
	size := 2
	for _, n := range nodes {
		size += len(n.raw) + 1
	}
	out := make([]byte, 0, size)
	out = append(out, '[')
	for i, n := range nodes {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, n.raw...)
	}
	return append(out, ']')
}
