package types

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Tree is an ordered metadata mapping from key to either a scalar string or a nested Tree.
// Setting an existing key replaces its value in place, so the last write wins while the
// original position is kept.
type Tree struct {
	entries *orderedmap.OrderedMap[string, Value]
}

// Value is a single tree entry: a scalar string, or a nested tree when Tree is non-nil.
type Value struct {
	Str  string
	Tree *Tree
}

// IsTree reports whether the value is a nested tree.
func (v Value) IsTree() bool {
	return v.Tree != nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Tree != nil {
		return v.Tree.MarshalJSON()
	}
	return json.Marshal(v.Str)
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{entries: orderedmap.New[string, Value]()}
}

func (t *Tree) m() *orderedmap.OrderedMap[string, Value] {
	if t.entries == nil {
		t.entries = orderedmap.New[string, Value]()
	}
	return t.entries
}

// Set stores a scalar value.
func (t *Tree) Set(key, value string) {
	t.m().Set(key, Value{Str: value})
}

// SetTree stores a nested tree.
func (t *Tree) SetTree(key string, child *Tree) {
	if child == nil {
		child = NewTree()
	}
	t.m().Set(key, Value{Tree: child})
}

// Group returns the nested tree stored under key, creating it when missing or scalar.
func (t *Tree) Group(key string) *Tree {
	if v, ok := t.m().Get(key); ok && v.Tree != nil {
		return v.Tree
	}
	child := NewTree()
	t.SetTree(key, child)
	return child
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Value, bool) {
	if t == nil || t.entries == nil {
		return Value{}, false
	}
	return t.entries.Get(key)
}

// Delete removes key from this level.
func (t *Tree) Delete(key string) {
	if t == nil || t.entries == nil {
		return
	}
	t.entries.Delete(key)
}

// Len returns the number of entries at this level.
func (t *Tree) Len() int {
	if t == nil || t.entries == nil {
		return 0
	}
	return t.entries.Len()
}

// Keys returns the keys at this level in insertion order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, t.Len())
	t.Each(func(key string, _ Value) {
		keys = append(keys, key)
	})
	return keys
}

// Each calls fn for every entry at this level in insertion order.
func (t *Tree) Each(fn func(key string, v Value)) {
	if t == nil || t.entries == nil {
		return
	}
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Merge copies every entry of other into t, in order.
func (t *Tree) Merge(other *Tree) {
	other.Each(func(key string, v Value) {
		t.m().Set(key, v)
	})
}

// MarshalJSON encodes the tree as a JSON object preserving key order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return t.m().MarshalJSON()
}
