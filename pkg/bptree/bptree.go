// Package bptree provides an ordered in-memory B+tree with linked leaves.
package bptree

import (
	"cmp"
	"errors"
	"sort"
	"sync"
)

// DefaultOrder is the fallback branching factor if a user-supplied order is too small.
const DefaultOrder = 32

// ErrDuplicateKey is returned by Insert when the key is already present.
var ErrDuplicateKey = errors.New("bptree: duplicate key")

// BPlusTree maps ordered keys to values. Reads may run concurrently;
// writers are serialized.
type BPlusTree[K cmp.Ordered, V any] struct {
	m      sync.RWMutex
	root   *node[K, V]
	first  *node[K, V]
	order  int
	height int
	size   int
}

type node[K cmp.Ordered, V any] struct {
	isLeaf   bool
	keys     []K
	children []*node[K, V] // internal nodes
	values   []V           // leaves
	parent   *node[K, V]
	next     *node[K, V] // leaf-link pointer, for range scans
}

// NewBPlusTree creates and returns a B+Tree with the given order.
// If the specified order < 3, we fall back to DefaultOrder.
func NewBPlusTree[K cmp.Ordered, V any](order int) *BPlusTree[K, V] {
	if order < 3 {
		order = DefaultOrder
	}
	leaf := &node[K, V]{isLeaf: true}
	return &BPlusTree[K, V]{root: leaf, first: leaf, order: order, height: 1}
}

// Height returns the number of levels.
func (tree *BPlusTree[K, V]) Height() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.height
}

// Len returns the number of keys.
func (tree *BPlusTree[K, V]) Len() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.size
}

// findChildIndex returns the child to follow for key in an internal node.
func findChildIndex[K cmp.Ordered](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return key < keys[i] })
}

func (tree *BPlusTree[K, V]) leafFor(key K) *node[K, V] {
	current := tree.root
	for !current.isLeaf {
		current = current.children[findChildIndex(current.keys, key)]
	}
	return current
}

// Search locates the value associated with key.
func (tree *BPlusTree[K, V]) Search(key K) (V, bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.leafFor(key)
	i, ok := sort.Find(len(leaf.keys), func(i int) int { return cmp.Compare(key, leaf.keys[i]) })
	if !ok {
		var zero V
		return zero, false
	}
	return leaf.values[i], true
}

// Insert adds key. An existing key is left untouched and ErrDuplicateKey is returned.
func (tree *BPlusTree[K, V]) Insert(key K, value V) error {
	tree.m.Lock()
	defer tree.m.Unlock()

	leaf := tree.leafFor(key)
	if !insertKeyValueInLeaf(leaf, key, value) {
		return ErrDuplicateKey
	}
	tree.size++
	if len(leaf.keys) > tree.order {
		tree.splitLeaf(leaf)
	}
	return nil
}

// Put inserts or replaces the value for key.
func (tree *BPlusTree[K, V]) Put(key K, value V) {
	tree.m.Lock()
	defer tree.m.Unlock()

	leaf := tree.leafFor(key)
	i, ok := sort.Find(len(leaf.keys), func(i int) int { return cmp.Compare(key, leaf.keys[i]) })
	if ok {
		leaf.values[i] = value
		return
	}
	insertKeyValueInLeaf(leaf, key, value)
	tree.size++
	if len(leaf.keys) > tree.order {
		tree.splitLeaf(leaf)
	}
}

// Ascend calls fn for every key in order until fn returns false.
func (tree *BPlusTree[K, V]) Ascend(fn func(K, V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	for leaf := tree.first; leaf != nil; leaf = leaf.next {
		for i, k := range leaf.keys {
			if !fn(k, leaf.values[i]) {
				return
			}
		}
	}
}

// Range calls fn for keys in [from, to) in order until fn returns false.
func (tree *BPlusTree[K, V]) Range(from, to K, fn func(K, V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.leafFor(from)
	i := sort.Search(len(leaf.keys), func(i int) bool { return leaf.keys[i] >= from })
	for ; leaf != nil; leaf, i = leaf.next, 0 {
		for ; i < len(leaf.keys); i++ {
			if leaf.keys[i] >= to || !fn(leaf.keys[i], leaf.values[i]) {
				return
			}
		}
	}
}

// Max returns the largest key.
func (tree *BPlusTree[K, V]) Max() (K, bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	current := tree.root
	for !current.isLeaf {
		current = current.children[len(current.children)-1]
	}
	if len(current.keys) == 0 {
		var zero K
		return zero, false
	}
	return current.keys[len(current.keys)-1], true
}

// insertKeyValueInLeaf inserts in sorted order and reports false if key exists.
func insertKeyValueInLeaf[K cmp.Ordered, V any](leaf *node[K, V], key K, value V) bool {
	idx, found := sort.Find(len(leaf.keys), func(i int) int { return cmp.Compare(key, leaf.keys[i]) })
	if found {
		return false
	}
	var zeroV V
	var zeroK K
	leaf.keys = append(leaf.keys, zeroK)
	leaf.values = append(leaf.values, zeroV)
	copy(leaf.keys[idx+1:], leaf.keys[idx:])
	copy(leaf.values[idx+1:], leaf.values[idx:])
	leaf.keys[idx] = key
	leaf.values[idx] = value
	return true
}

// splitLeaf handles splitting a leaf node that has overflowed.
func (tree *BPlusTree[K, V]) splitLeaf(leaf *node[K, V]) {
	mid := len(leaf.keys) / 2

	newLeaf := &node[K, V]{
		isLeaf: true,
		keys:   append([]K{}, leaf.keys[mid:]...),
		values: append([]V{}, leaf.values[mid:]...),
		next:   leaf.next,
		parent: leaf.parent,
	}
	leaf.keys = leaf.keys[:mid:mid]
	leaf.values = leaf.values[:mid:mid]
	leaf.next = newLeaf

	tree.insertKeyInParent(leaf, newLeaf.keys[0], newLeaf)
}

// insertKeyInParent links right next to left under their parent,
// growing a new root when left has none.
func (tree *BPlusTree[K, V]) insertKeyInParent(left *node[K, V], key K, right *node[K, V]) {
	parent := left.parent
	if parent == nil {
		root := &node[K, V]{
			keys:     []K{key},
			children: []*node[K, V]{left, right},
		}
		left.parent = root
		right.parent = root
		tree.root = root
		tree.height++
		return
	}

	idx := findChildIndex(parent.keys, key)
	parent.keys = append(parent.keys, key)
	copy(parent.keys[idx+1:], parent.keys[idx:])
	parent.keys[idx] = key

	parent.children = append(parent.children, nil)
	copy(parent.children[idx+2:], parent.children[idx+1:])
	parent.children[idx+1] = right
	right.parent = parent

	if len(parent.keys) > tree.order {
		tree.splitInternalNode(parent)
	}
}

// splitInternalNode handles splitting an internal node that has overflowed.
func (tree *BPlusTree[K, V]) splitInternalNode(internal *node[K, V]) {
	mid := len(internal.keys) / 2
	splitKey := internal.keys[mid]

	newInternal := &node[K, V]{
		keys:     append([]K{}, internal.keys[mid+1:]...),
		children: append([]*node[K, V]{}, internal.children[mid+1:]...),
		parent:   internal.parent,
	}
	for _, child := range newInternal.children {
		child.parent = newInternal
	}
	internal.keys = internal.keys[:mid:mid]
	internal.children = internal.children[: mid+1 : mid+1]

	tree.insertKeyInParent(internal, splitKey, newInternal)
}
