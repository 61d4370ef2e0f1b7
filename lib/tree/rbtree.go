package tree

import (
	"fmt"
	"sync/atomic"

	"github.com/okamia/treemap/lib/infra"
)

// rbNode is a tree node. An absent child is a nil pointer and every
// nil pointer is read as a black empty leaf, so each fixup case below
// always gets a well-defined color and childless answer for an empty
// position.
type rbNode[K infra.OrderedKey, V any] struct {
	parent *rbNode[K, V]
	left   *rbNode[K, V]
	right  *rbNode[K, V]
	key    K
	val    V
	color  RBColor
	hasKV  bool
}

func (node *rbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *rbNode[K, V]) Key() K {
	return node.key
}

func (node *rbNode[K, V]) Val() V {
	return node.val
}

func (node *rbNode[K, V]) HasKeyVal() bool {
	if node == nil {
		return false
	}
	return node.hasKV
}

func (node *rbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K, V]) Parent() RBNode[K, V] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K, V]) isNilLeaf() bool {
	return node == nil
}

func (node *rbNode[K, V]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K, V]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K, V]) isRoot() bool {
	return node != nil && node.parent == nil
}

// Recoloring an empty leaf means the caller already lost track of the
// tree shape. Fail loudly instead of corrupting the structure.
func (node *rbNode[K, V]) setBlack() {
	if node.isNilLeaf() {
		panic( /* debug assertion */ "[rbtree] recolor a nil leaf to black")
	}
	node.color = Black
}

func (node *rbNode[K, V]) setRed() {
	if node.isNilLeaf() {
		panic( /* debug assertion */ "[rbtree] recolor a nil leaf to red")
	}
	node.color = Red
}

func (node *rbNode[K, V]) Direction() RBDirection {
	if node.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K, V]) sibling() *rbNode[K, V] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

func (node *rbNode[K, V]) hasSibling() bool {
	return !node.isRoot() && node.sibling() != nil
}

func (node *rbNode[K, V]) uncle() *rbNode[K, V] {
	return node.parent.sibling()
}

func (node *rbNode[K, V]) hasUncle() bool {
	return !node.isRoot() && node.parent.hasSibling()
}

func (node *rbNode[K, V]) grandpa() *rbNode[K, V] {
	return node.parent.parent
}

func (node *rbNode[K, V]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

func (node *rbNode[K, V]) minimum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K, V]) maximum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// release drops the payload of a detached node so the GC can reclaim
// what it referenced. Calling it with a live child still attached is a
// caller bug.
func (node *rbNode[K, V]) release() {
	if !node.left.isNilLeaf() || !node.right.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release a node with a live child")
	}
	var (
		zeroK K
		zeroV V
	)
	node.parent, node.left, node.right = nil, nil, nil
	node.key, node.val = zeroK, zeroV
	node.hasKV = false
}

type rbTree[K infra.OrderedKey, V any] struct {
	root  *rbNode[K, V]
	count int64
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

func (tree *rbTree[K, V]) keyCompare(k1, k2 K) int64 {
	if k1 == k2 {
		return 0
	} else if k1 < k2 {
		return -1
	}
	return 1
}

func (tree *rbTree[K, V]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K, V]) IsEmpty() bool {
	return tree.Len() == 0
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	if x == nil || x.right.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
}

/*
		 |                         |
		 X                         S
		/ \     rightRotate(S)    / \
	   L   S    <============    X   R
		  / \                   / \
		Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) {
	if x == nil || x.left.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
}

// search returns the node carrying key, or nil when the walk bottoms
// out on an empty leaf.
func (tree *rbTree[K, V]) search(key K) *rbNode[K, V] {
	for aux := tree.root; !aux.isNilLeaf(); {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res < 0 {
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return nil
}

func (tree *rbTree[K, V]) Search(x RBNode[K, V], fn func(RBNode[K, V]) int64) RBNode[K, V] {
	if x == nil {
		return nil
	}

	for aux := x; aux != nil; {
		res := fn(aux)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.Right()
		} else {
			aux = aux.Left()
		}
	}
	return nil
}

// i1: Empty tree, insert directly, but the root node is painted black.
func (tree *rbTree[K, V]) Insert(key K, val V) (old V, replaced bool) {
	if /* i1 */ tree.root.isNilLeaf() {
		tree.root = &rbNode[K, V]{
			key:   key,
			val:   val,
			color: Black,
			hasKV: true,
		}
		atomic.AddInt64(&tree.count, 1)
		return old, false
	}

	var x, y *rbNode[K, V] = tree.root, nil
	for !x.isNilLeaf() {
		y = x
		res := tree.keyCompare(key, x.key)
		if /* upsert */ res == 0 {
			old, x.val = x.val, val
			return old, true
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K, V]{
		key:    key,
		val:    val,
		color:  Red,
		parent: y,
		hasKV:  true,
	}
	if tree.keyCompare(key, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}

	atomic.AddInt64(&tree.count, 1)
	tree.insertRebalance(z)
	return old, false
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: X is the root, repaint into black.

im2: X's parent P is black, nothing is violated.

im3: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainting G into red it may be red-violated itself.
Recursive to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to the opposite direction so
that X and P line up, then enter im5.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: X is the same direction as its parent. Repaint then rotate G.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	for {
		if /* im1 */ x.isRoot() {
			if x.isRed() {
				x.setBlack()
			}
			return
		}

		if /* im2 */ x.parent.isBlack() {
			return
		}

		// Parent is red, so it is not the root and grandpa exists.
		if /* im3 */ x.hasUncle() && x.uncle().isRed() {
			x.parent.setBlack()
			x.uncle().setBlack()
			gp := x.grandpa()
			gp.setRed()
			x = gp
			continue
		}
		break
	}

	if /* im4 */ dir := x.Direction(); dir != x.parent.Direction() {
		p := x.parent
		switch dir {
		case Left:
			tree.rightRotate(p)
		case Right:
			tree.leftRotate(p)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert rebalance violate (im4)")
		}
		x = p // enter im5 to fix
	}

	/* im5 */
	p, gp := x.parent, x.grandpa()
	p.setBlack()
	gp.setRed()
	switch x.Direction() {
	case Left:
		tree.rightRotate(gp)
	case Right:
		tree.leftRotate(gp)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] insert rebalance violate (im5)")
	}
}

/*
r1: Current node X has a non-empty right subtree.
Borrow the right-min (succ) node to replace X. Only the key and value
move, so the node physically unlinked always has at most one live
child. Otherwise no borrow is needed: X's left child (if any) is the
only live one.

	  |                    |
	  X                    S
	 / \                  / \
	L  ..   swap(X, S)   L  ..
	    |   =========>       |
	    S                    X

r2: (1) The unlinked node is a red leaf, drop it directly.

r2: (2) The unlinked node is a black leaf, rebalance before dropping.
(black-violation)

r3: The unlinked node keeps one live child. The child must be red
(see conclusion), repaint it black to pay the lost black back.
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) {
	y := z
	if /* r1 */ !z.right.isNilLeaf() {
		y = z.right.minimum()
		// Borrow key & value only, never relink the subtrees.
		z.key, z.val = y.key, y.val
	}

	var child *rbNode[K, V]
	if !y.left.isNilLeaf() {
		child = y.left
	} else {
		child = y.right
	}

	if /* r2 */ child.isNilLeaf() {
		if /* r2 (2) */ y.isBlack() && !y.isRoot() {
			tree.removeRebalance(y)
		}
		switch {
		case y.isRoot():
			tree.root = nil
		case y == y.parent.left:
			y.parent.left = nil
		default:
			y.parent.right = nil
		}
	} else /* r3 */ {
		child.parent = y.parent
		switch {
		case y.isRoot():
			tree.root = child
		case y == y.parent.left:
			y.parent.left = child
		default:
			y.parent.right = child
		}
		if y.isBlack() {
			if !child.isRed() {
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] lone child of a black node is not red (r3)")
			}
			child.setBlack()
		}
		y.left, y.right = nil, nil
	}

	y.release()
	atomic.AddInt64(&tree.count, -1)
}

/*
The rebalance runs while X is still linked in: X stands for the
position that lost one black node on its paths (double-black).

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the nephew on the same direction as X, Sd the opposite one.

rm1: X is the root. The whole tree lost one black evenly, done.

rm2: X's sibling S is red, so P, Sc and Sd must be black.
Rotate P towards X's side and swap the colors of P and S. X's new
sibling is a black Sc, fall through into one of the cases below.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm3: P, S, Sc and Sd are all black. Repaint S into red to fix p4
locally, then the whole subtree under P is one black short: recurse
up with X = P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: P is red, S, Sc and Sd are black. Swapping the colors of P and S
pays the missing black back on X's side without touching the other
side, done.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm5: S is black, the near nephew Sc is red, the far one Sd is black.
Rotate S away from X's side and swap the colors of S and Sc. X's new
far nephew is red: enter rm6.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm6: S is black, the far nephew Sd is red. Rotate P towards X's side,
give S the color of P, repaint P and Sd black. Done.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x *rbNode[K, V]) {
	for {
		if /* rm1 */ x.isRoot() {
			return
		}

		sibling := x.sibling()
		dir := x.Direction()
		if /* rm2 */ sibling.isRed() {
			switch dir {
			case Left:
				tree.leftRotate(x.parent)
			case Right:
				tree.rightRotate(x.parent)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove rebalance violate (rm2)")
			}
			sibling.setBlack()
			x.parent.setRed()
			sibling = x.sibling()
		}

		var sc, sd *rbNode[K, V]
		switch dir {
		case Left:
			sc, sd = sibling.left, sibling.right
		case Right:
			sc, sd = sibling.right, sibling.left
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove rebalance without direction")
		}

		if sc.isBlack() && sd.isBlack() {
			if /* rm4 */ x.parent.isRed() {
				sibling.setRed()
				x.parent.setBlack()
				return
			}
			/* rm3 */
			sibling.setRed()
			x = x.parent
			continue
		}

		if /* rm5 */ sc.isRed() {
			switch dir {
			case Left:
				tree.rightRotate(sibling)
			case Right:
				tree.leftRotate(sibling)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove rebalance violate (rm5)")
			}
			sc.setBlack()
			sibling.setRed()
			sibling = x.sibling()
			switch dir {
			case Left:
				sd = sibling.right
			case Right:
				sd = sibling.left
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove rebalance violate (rm5)")
			}
		}

		/* rm6 */
		switch dir {
		case Left:
			tree.leftRotate(x.parent)
		case Right:
			tree.rightRotate(x.parent)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove rebalance violate (rm6)")
		}
		sibling.color = x.parent.color
		x.parent.setBlack()
		if !sd.isNilLeaf() {
			sd.setBlack()
		}
		return
	}
}

func (tree *rbTree[K, V]) Remove(key K) (V, bool) {
	_, v, ok := tree.RemoveEntry(key)
	return v, ok
}

func (tree *rbTree[K, V]) RemoveEntry(key K) (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	z := tree.search(key)
	if z == nil {
		return zeroK, zeroV, false
	}
	k, v := z.key, z.val
	tree.removeNode(z)
	return k, v, true
}

func (tree *rbTree[K, V]) Get(key K) (V, bool) {
	var zero V
	if x := tree.search(key); x != nil {
		return x.val, true
	}
	return zero, false
}

func (tree *rbTree[K, V]) GetPtr(key K) (*V, bool) {
	if x := tree.search(key); x != nil {
		return &x.val, true
	}
	return nil, false
}

func (tree *rbTree[K, V]) GetKeyVal(key K) (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	if x := tree.search(key); x != nil {
		return x.key, x.val, true
	}
	return zeroK, zeroV, false
}

func (tree *rbTree[K, V]) ContainsKey(key K) bool {
	return tree.search(key) != nil
}

func (tree *rbTree[K, V]) MustGet(key K) V {
	x := tree.search(key)
	if x == nil {
		panic(fmt.Sprintf("[rbtree] key not found (%v)", key))
	}
	return x.val
}

func (tree *rbTree[K, V]) MustGetPtr(key K) *V {
	x := tree.search(key)
	if x == nil {
		panic(fmt.Sprintf("[rbtree] key not found (%v)", key))
	}
	return &x.val
}

func (tree *rbTree[K, V]) First() (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	if m := tree.root.minimum(); !m.isNilLeaf() {
		return m.key, m.val, true
	}
	return zeroK, zeroV, false
}

func (tree *rbTree[K, V]) Last() (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	if m := tree.root.maximum(); !m.isNilLeaf() {
		return m.key, m.val, true
	}
	return zeroK, zeroV, false
}

func (tree *rbTree[K, V]) PopFirst() (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	m := tree.root.minimum()
	if m.isNilLeaf() {
		return zeroK, zeroV, false
	}
	k, v := m.key, m.val
	tree.removeNode(m)
	return k, v, true
}

func (tree *rbTree[K, V]) PopLast() (K, V, bool) {
	var (
		zeroK K
		zeroV V
	)
	m := tree.root.maximum()
	if m.isNilLeaf() {
		return zeroK, zeroV, false
	}
	k, v := m.key, m.val
	tree.removeNode(m)
	return k, v, true
}

// Clear releases every node following child links only. The parent
// back-references are navigation aids, walking them here would visit
// a node twice.
func (tree *rbTree[K, V]) Clear() {
	aux := tree.root
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	if aux == nil {
		return
	}

	stack := make([]*rbNode[K, V], 0, 32)
	defer func() {
		clear(stack)
	}()

	for ; !aux.isNilLeaf(); aux = aux.left {
		stack = append(stack, aux)
	}

	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		r := aux.right
		aux.left, aux.right = nil, nil
		aux.release()
		if r != nil {
			for aux = r; aux != nil; aux = aux.left {
				stack = append(stack, aux)
			}
		}
	}
}

func (tree *rbTree[K, V]) IsValid() bool {
	_, ok := blackHeight(tree.root)
	return ok
}

// blackHeight checks p4 at every node of the subtree: the left and
// right black heights must agree, and the subtree's own height counts
// the node itself when it is black.
func blackHeight[K infra.OrderedKey, V any](node *rbNode[K, V]) (int64, bool) {
	if node.isNilLeaf() {
		return 0, true
	}

	lh, ok := blackHeight(node.left)
	if !ok {
		return 0, false
	}
	rh, ok := blackHeight(node.right)
	if !ok {
		return 0, false
	}
	if lh != rh {
		return 0, false
	}

	if node.isBlack() {
		lh++
	}
	return lh, true
}

// NewTreeMap builds an empty ordered map.
func NewTreeMap[K infra.OrderedKey, V any]() TreeMap[K, V] {
	return &rbTree[K, V]{}
}
