package tree

import "github.com/okamia/treemap/lib/infra"

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// RBNode is the read-only view of a tree node. A nil RBNode (or a
// node without key/value) stands for an empty leaf position and is
// always treated as black.
type RBNode[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// TreeMap is a sorted map with unique keys backed by a red-black tree.
// Lookup, insert and remove run in O(log n). The zero amount of
// internal locking means callers own the exclusive-access discipline.
type TreeMap[K infra.OrderedKey, V any] interface {
	Len() int64
	IsEmpty() bool
	Root() RBNode[K, V]
	// Insert adds the key or, if the key is already present, replaces
	// its value and hands back the previous one.
	Insert(key K, val V) (old V, replaced bool)
	Remove(key K) (V, bool)
	RemoveEntry(key K) (K, V, bool)
	Get(key K) (V, bool)
	// GetPtr exposes the stored value for in-place mutation. The
	// pointer stays valid until the entry is removed or drained.
	GetPtr(key K) (*V, bool)
	GetKeyVal(key K) (K, V, bool)
	ContainsKey(key K) bool
	// MustGet and MustGetPtr panic when the key is absent.
	MustGet(key K) V
	MustGetPtr(key K) *V
	First() (K, V, bool)
	Last() (K, V, bool)
	PopFirst() (K, V, bool)
	PopLast() (K, V, bool)
	Clear()
	Search(x RBNode[K, V], fn func(RBNode[K, V]) int64) RBNode[K, V]
	// Foreach walks the entries in ascending key order until the
	// action returns false.
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Iter() *Iter[K, V]
	IterMut() *IterMut[K, V]
	Drain() *Drain[K, V]
	// IsValid reports whether every node sees the same black height
	// on all of its root-to-leaf paths.
	IsValid() bool
}
