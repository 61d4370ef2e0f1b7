package tree

import (
	"fmt"
	randv2 "math/rand"
	"sort"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/okamia/treemap/lib/id"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireTreeMatch(t *testing.T, tree TreeMap[uint64, uint64], expected []checkData) {
	t.Helper()
	n := int64(0)
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, key)
		n++
		return true
	})
	require.Equal(t, int64(len(expected)), n)
	require.Equal(t, int64(len(expected)), tree.Len())
	require.NoError(t, RedViolationValidate[uint64, uint64](tree))
	require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
	require.True(t, tree.IsValid())
}

// preorderShape captures the exact shape and coloring, nil leaves
// included, so structural no-ops can be asserted.
func preorderShape[K ~uint64, V any](node RBNode[K, V], out []string) []string {
	if isNilLeafNode[K, V](node) {
		return append(out, "nil")
	}
	out = append(out, fmt.Sprintf("%d/%d", node.Key(), node.Color()))
	out = preorderShape[K, V](node.Left(), out)
	return preorderShape[K, V](node.Right(), out)
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64, uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNode[uint64, uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)
}

func TestTreeMapInsertAndRemove_Steps(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()

	tree.Insert(52, 1)
	requireTreeMatch(t, tree, []checkData{{Black, 52}})

	tree.Insert(47, 1)
	requireTreeMatch(t, tree, []checkData{{Red, 47}, {Black, 52}})

	tree.Insert(3, 1)
	requireTreeMatch(t, tree, []checkData{{Red, 3}, {Black, 47}, {Red, 52}})

	tree.Insert(35, 1)
	requireTreeMatch(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	tree.Insert(24, 1)
	requireTreeMatch(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// Removal borrows the right-min successor, the remaining shape
	// differs from a predecessor-borrowing variant.

	v, ok := tree.Remove(24)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	requireTreeMatch(t, tree, []checkData{
		{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52},
	})

	v, ok = tree.Remove(47)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	requireTreeMatch(t, tree, []checkData{
		{Black, 3}, {Black, 35}, {Black, 52},
	})

	v, ok = tree.Remove(52)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	requireTreeMatch(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	v, ok = tree.Remove(3)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	requireTreeMatch(t, tree, []checkData{{Black, 35}})

	v, ok = tree.Remove(35)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	require.Equal(t, int64(0), tree.Len())
	require.True(t, tree.IsEmpty())
	require.Nil(t, tree.Root())
}

func TestTreeMapUpsert(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()

	old, replaced := tree.Insert(7, 100)
	require.False(t, replaced)
	require.Equal(t, uint64(0), old)
	require.Equal(t, int64(1), tree.Len())

	old, replaced = tree.Insert(7, 200)
	require.True(t, replaced)
	require.Equal(t, uint64(100), old)
	require.Equal(t, int64(1), tree.Len())

	v, ok := tree.Get(7)
	require.True(t, ok)
	require.Equal(t, uint64(200), v)
}

func TestTreeMapRemove_AbsentKeyIsNoOp(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	for _, k := range []uint64{52, 47, 3, 35, 24} {
		tree.Insert(k, k)
	}

	before := preorderShape[uint64, uint64](tree.Root(), nil)

	v, ok := tree.Remove(1000)
	require.False(t, ok)
	require.Equal(t, uint64(0), v)
	_, _, ok = tree.RemoveEntry(0)
	require.False(t, ok)

	after := preorderShape[uint64, uint64](tree.Root(), nil)
	require.Equal(t, before, after)
	require.Equal(t, int64(5), tree.Len())
}

func TestTreeMapPopFirst_Steps(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	tree.Insert(52, 1)
	tree.Insert(47, 1)
	tree.Insert(3, 1)
	tree.Insert(35, 1)
	tree.Insert(24, 1)
	requireTreeMatch(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	k, _, ok := tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(3), k)
	requireTreeMatch(t, tree, []checkData{
		{Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	k, _, ok = tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(24), k)
	requireTreeMatch(t, tree, []checkData{
		{Black, 35}, {Black, 47}, {Black, 52},
	})

	k, _, ok = tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(35), k)
	requireTreeMatch(t, tree, []checkData{
		{Black, 47}, {Red, 52},
	})

	k, _, ok = tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(47), k)
	requireTreeMatch(t, tree, []checkData{{Black, 52}})

	k, _, ok = tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(52), k)
	require.True(t, tree.IsEmpty())

	_, _, ok = tree.PopFirst()
	require.False(t, ok)
}

func TestTreeMapOrdering(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	for _, k := range []uint64{5, 3, 8, 1, 4, 7, 9} {
		tree.Insert(k, k*10)
	}

	got := make([]uint64, 0, 7)
	it := tree.Iter()
	for k, _, ok := it.Next(); ok; k, _, ok = it.Next() {
		got = append(got, k)
	}
	require.Equal(t, []uint64{1, 3, 4, 5, 7, 8, 9}, got)

	k, v, ok := tree.First()
	require.True(t, ok)
	require.Equal(t, uint64(1), k)
	require.Equal(t, uint64(10), v)
	k, v, ok = tree.Last()
	require.True(t, ok)
	require.Equal(t, uint64(9), k)
	require.Equal(t, uint64(90), v)

	k, _, ok = tree.PopFirst()
	require.True(t, ok)
	require.Equal(t, uint64(1), k)
	k, _, ok = tree.PopLast()
	require.True(t, ok)
	require.Equal(t, uint64(9), k)
	require.Equal(t, int64(5), tree.Len())
	require.NoError(t, RedViolationValidate[uint64, uint64](tree))
	require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
}

func TestTreeMapFirstLast_Empty(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	_, _, ok := tree.First()
	require.False(t, ok)
	_, _, ok = tree.Last()
	require.False(t, ok)
	_, _, ok = tree.PopLast()
	require.False(t, ok)
}

func TestTreeMapClear_Idempotent(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	tree.Clear() // empty clear is a no-op
	require.Equal(t, int64(0), tree.Len())

	for i := uint64(0); i < 100; i++ {
		tree.Insert(i, i)
	}
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Fail(t, "cleared tree should not yield entries")
		return false
	})

	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
}

func TestTreeMapGetters(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	tree.Insert(10, 100)
	tree.Insert(20, 200)

	require.True(t, tree.ContainsKey(10))
	require.False(t, tree.ContainsKey(15))

	k, v, ok := tree.GetKeyVal(20)
	require.True(t, ok)
	require.Equal(t, uint64(20), k)
	require.Equal(t, uint64(200), v)
	_, _, ok = tree.GetKeyVal(21)
	require.False(t, ok)

	k2, v2, ok := tree.RemoveEntry(10)
	require.True(t, ok)
	require.Equal(t, uint64(10), k2)
	require.Equal(t, uint64(100), v2)
	require.False(t, tree.ContainsKey(10))
	require.Equal(t, int64(1), tree.Len())
}

func TestTreeMapMustGet(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	tree.Insert(1, 11)

	require.Equal(t, uint64(11), tree.MustGet(1))
	require.Panics(t, func() {
		_ = tree.MustGet(2)
	})
	require.Panics(t, func() {
		_ = tree.MustGetPtr(2)
	})

	*tree.MustGetPtr(1) = 22
	require.Equal(t, uint64(22), tree.MustGet(1))
}

func TestTreeMapGetPtr_MutationKeepsShape(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	for _, k := range []uint64{5, 3, 8, 1, 4, 7, 9} {
		tree.Insert(k, 0)
	}
	before := preorderShape[uint64, uint64](tree.Root(), nil)

	for _, k := range []uint64{5, 3, 8, 1, 4, 7, 9} {
		p, ok := tree.GetPtr(k)
		require.True(t, ok)
		*p = k * 100
	}
	_, ok := tree.GetPtr(1000)
	require.False(t, ok)

	after := preorderShape[uint64, uint64](tree.Root(), nil)
	require.Equal(t, before, after)
	for _, k := range []uint64{5, 3, 8, 1, 4, 7, 9} {
		require.Equal(t, k*100, tree.MustGet(k))
	}
}

func TestTreeMapSearch(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	for i := uint64(0); i < 100; i++ {
		tree.Insert(i, 1)
	}
	x := tree.Search(tree.Root(), func(node RBNode[uint64, uint64]) int64 {
		if node.Key() == 92 {
			return 0
		} else if node.Key() > 92 {
			return -1
		}
		return 1
	})
	require.NotNil(t, x)
	require.Equal(t, uint64(92), x.Key())

	x = tree.Search(tree.Root(), func(node RBNode[uint64, uint64]) int64 {
		return 1
	})
	require.Nil(t, x)
}

func TestTreeMapIsValid_CorruptedTree(t *testing.T) {
	// A black node with a single black child breaks the equal
	// black-height rule.
	root := &rbNode[uint64, uint64]{key: 10, color: Black, hasKV: true}
	root.left = &rbNode[uint64, uint64]{key: 5, color: Black, parent: root, hasKV: true}
	broken := &rbTree[uint64, uint64]{root: root, count: 2}
	require.False(t, broken.IsValid())

	// Two reds in a row keep black heights equal but violate p3.
	root2 := &rbNode[uint64, uint64]{key: 10, color: Black, hasKV: true}
	root2.left = &rbNode[uint64, uint64]{key: 5, color: Red, parent: root2, hasKV: true}
	root2.left.left = &rbNode[uint64, uint64]{key: 1, color: Red, parent: root2.left, hasKV: true}
	redRed := &rbTree[uint64, uint64]{root: root2, count: 3}
	require.True(t, redRed.IsValid())
	require.Error(t, RedViolationValidate[uint64, uint64](redRed))
}

func TestTreeMapSentinelRecolorPanics(t *testing.T) {
	var nilNode *rbNode[uint64, uint64]
	require.Panics(t, func() { nilNode.setBlack() })
	require.Panics(t, func() { nilNode.setRed() })
	require.Panics(t, func() { _ = nilNode.Direction() })
}

func treeMapStressRunCore(t *testing.T, total int, violationCheck bool) {
	idGen, err := id.MonotonicNonZeroID()
	require.NoError(t, err)

	keys := make([]uint64, 0, total)
	for i := 0; i < total; i++ {
		// Spread the monotonic ids out so the insert order carries
		// no structure of its own.
		keys = append(keys, idGen.Number()*2654435761%1_000_000_007)
	}
	keys = lo.Uniq(keys)
	insertOrder := lo.Shuffle(append([]uint64(nil), keys...))
	removeOrder := lo.Shuffle(append([]uint64(nil), keys...))

	tree := NewTreeMap[uint64, uint64]()

	for i, k := range insertOrder {
		tree.Insert(k, uint64(i))
		if violationCheck {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
			require.True(t, isBlackNode[uint64, uint64](tree.Root()))
		}
		require.Equal(t, int64(i+1), tree.Len())
	}

	sorted := append([]uint64(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, sorted[idx], key)
		return true
	})

	for i, k := range removeOrder {
		_, ok := tree.Remove(k)
		require.True(t, ok)
		if violationCheck {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
		}
		require.Equal(t, int64(len(keys)-i-1), tree.Len())
	}

	require.Equal(t, int64(0), tree.Len())
	require.True(t, tree.IsValid())
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Fail(t, "emptied tree should not yield entries")
		return false
	})
}

func TestTreeMapRandomInsertAndRemove_Stress(t *testing.T) {
	type testcase struct {
		name           string
		total          int
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:           "violation check 1000",
			total:          1000,
			violationCheck: true,
		},
		{
			name:           "violation check 10000",
			total:          10000,
			violationCheck: true,
		},
		{
			name:  "no per-step check 100000",
			total: 100000,
		},
	}
	t.Parallel()
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			treeMapStressRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

func TestTreeMapSequentialInsert(t *testing.T) {
	tree := NewTreeMap[uint64, uint64]()
	total := uint64(10_000)
	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < total; i++ {
		tree.Insert(i, 1)
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[uint64, uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func BenchmarkTreeMap_RandomInsert(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewTreeMap[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(rngArr[i], testByBytes)
	}
}

func BenchmarkTreeMap_SerialInsert(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewTreeMap[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(i, testByBytes)
	}
}
