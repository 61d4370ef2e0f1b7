package tree

import (
	"sync/atomic"

	"github.com/okamia/treemap/lib/infra"
)

// The in-order walk keeps an explicit ancestor stack instead of
// recursing: descend left pushing every node, pop to yield, then dive
// into the popped node's right subtree.

func pushLeftSpine[K infra.OrderedKey, V any](stack []*rbNode[K, V], node *rbNode[K, V]) []*rbNode[K, V] {
	for aux := node; !aux.isNilLeaf(); aux = aux.left {
		stack = append(stack, aux)
	}
	return stack
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	aux := tree.root
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, tree.Len()>>1)
	defer func() {
		clear(stack)
	}()
	stack = pushLeftSpine(stack, aux)

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		stack = stack[:size-1]
		stack = pushLeftSpine(stack, aux.right)
	}
}

// Iter yields the entries in ascending key order. Single pass, build
// a fresh one to walk again.
type Iter[K infra.OrderedKey, V any] struct {
	stack []*rbNode[K, V]
}

func (tree *rbTree[K, V]) Iter() *Iter[K, V] {
	return &Iter[K, V]{
		stack: pushLeftSpine(make([]*rbNode[K, V], 0, tree.Len()>>1), tree.root),
	}
}

func (it *Iter[K, V]) Next() (key K, val V, ok bool) {
	size := len(it.stack)
	if size == 0 {
		return key, val, false
	}
	aux := it.stack[size-1]
	it.stack = it.stack[:size-1]
	it.stack = pushLeftSpine(it.stack, aux.right)
	return aux.key, aux.val, true
}

// IterMut yields keys together with pointers to the stored values so
// they can be updated in place. The walk itself never changes the
// tree shape or the coloring.
type IterMut[K infra.OrderedKey, V any] struct {
	stack []*rbNode[K, V]
}

func (tree *rbTree[K, V]) IterMut() *IterMut[K, V] {
	return &IterMut[K, V]{
		stack: pushLeftSpine(make([]*rbNode[K, V], 0, tree.Len()>>1), tree.root),
	}
}

func (it *IterMut[K, V]) Next() (key K, val *V, ok bool) {
	size := len(it.stack)
	if size == 0 {
		return key, nil, false
	}
	aux := it.stack[size-1]
	it.stack = it.stack[:size-1]
	it.stack = pushLeftSpine(it.stack, aux.right)
	return aux.key, &aux.val, true
}

// Drain consumes the tree: the whole structure is detached from the
// container up front (the map reads as empty immediately) and every
// node is released as soon as it is yielded.
type Drain[K infra.OrderedKey, V any] struct {
	stack []*rbNode[K, V]
}

func (tree *rbTree[K, V]) Drain() *Drain[K, V] {
	d := &Drain[K, V]{
		stack: pushLeftSpine(make([]*rbNode[K, V], 0, tree.Len()>>1), tree.root),
	}
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	return d
}

func (d *Drain[K, V]) Next() (key K, val V, ok bool) {
	size := len(d.stack)
	if size == 0 {
		return key, val, false
	}
	aux := d.stack[size-1]
	d.stack = d.stack[:size-1]
	d.stack = pushLeftSpine(d.stack, aux.right)

	key, val = aux.key, aux.val
	aux.left, aux.right = nil, nil
	aux.release()
	return key, val, true
}
