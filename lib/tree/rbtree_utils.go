package tree

import (
	"errors"

	"github.com/okamia/treemap/lib/infra"
)

// Validation helpers working on the read-only RBNode view, used by
// tests to assert the tree properties after every mutation.

func isNilLeafNode[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node == nil || (!node.HasKeyVal() && node.Parent() == nil && node.Left() == nil && node.Right() == nil)
}

func isBlackNode[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return isNilLeafNode[K, V](node) || node.Color() == Black
}

func isRedNode[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return !isNilLeafNode[K, V](node) && node.Color() == Red
}

func isRootNode[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node != nil && node.Parent() == nil
}

func blackDepthTo[K infra.OrderedKey, V any](target, to RBNode[K, V]) int {
	depth := 0
	for aux := target; aux != to; aux = aux.Parent() {
		if isBlackNode[K, V](aux) {
			depth++
		}
	}
	return depth
}

// Inorder traversal to validate p3: a red node never has a red
// parent or a red child.
func RedViolationValidate[K infra.OrderedKey, V any](tree TreeMap[K, V]) error {
	var aux RBNode[K, V] = tree.Root()
	if aux == nil {
		return nil
	}

	stack := make([]RBNode[K, V], 0, tree.Len()>>1)
	defer func() {
		clear(stack)
	}()

	for ; !isNilLeafNode[K, V](aux); aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; isRedNode[K, V](aux) {
			if (!isRootNode[K, V](aux.Parent()) && isRedNode[K, V](aux.Parent())) ||
				(isRedNode[K, V](aux.Left()) || isRedNode[K, V](aux.Right())) {
				return errors.New("rbtree red violation")
			}
		}

		stack = stack[:size-1]
		if aux.Right() != nil {
			for aux = aux.Right(); aux != nil; aux = aux.Left() {
				stack = append(stack, aux)
			}
		}
	}
	return nil
}

// BFS traversal to load all nodes adjacent to at least one nil leaf.
func bfsLeaves[K infra.OrderedKey, V any](tree TreeMap[K, V]) []RBNode[K, V] {
	var aux RBNode[K, V] = tree.Root()
	if isNilLeafNode[K, V](aux) {
		return nil
	}

	leaves := make([]RBNode[K, V], 0, tree.Len()>>1+1)
	stack := make([]RBNode[K, V], 0, tree.Len()>>1)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)

	for len(stack) > 0 {
		aux = stack[0]
		l, r := aux.Left(), aux.Right()
		if isNilLeafNode[K, V](l) || isNilLeafNode[K, V](r) {
			leaves = append(leaves, aux)
		}
		if !isNilLeafNode[K, V](l) {
			stack = append(stack, l)
		}
		if !isNilLeafNode[K, V](r) {
			stack = append(stack, r)
		}
		stack = stack[1:]
	}
	return leaves
}

// BlackViolationValidate checks p4: each path from the root down to a
// nil leaf passes the same number of black nodes.
func BlackViolationValidate[K infra.OrderedKey, V any](tree TreeMap[K, V]) error {
	leaves := bfsLeaves[K, V](tree)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K, V](leaves[0], tree.Root())
	for i := 1; i < len(leaves); i++ {
		if blackDepthTo[K, V](leaves[i], tree.Root()) != blackDepth {
			return errors.New("rbtree black violation")
		}
	}
	return nil
}
