package bptree_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dwgkit/pkg/bptree"
)

func TestBPlusTree_InsertAndSearch(t *testing.T) {
	type search struct {
		key      uint64
		expected string
		found    bool
	}
	tests := map[string]struct {
		inserts  map[uint64]string
		searches []search
	}{
		"insert and search": {
			inserts:  map[uint64]string{1: "one", 2: "two", 3: "three", 4: "four", 5: "five"},
			searches: []search{{1, "one", true}, {3, "three", true}, {5, "five", true}, {6, "", false}},
		},
		"empty tree": {
			searches: []search{{1, "", false}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tree := bptree.NewBPlusTree[uint64, string](3)
			for k, v := range tt.inserts {
				require.NoError(t, tree.Insert(k, v))
			}
			assert.Equal(t, len(tt.inserts), tree.Len())
			for _, s := range tt.searches {
				value, found := tree.Search(s.key)
				assert.Equal(t, s.found, found, "key %d", s.key)
				assert.Equal(t, s.expected, value, "key %d", s.key)
			}
		})
	}
}

func TestBPlusTree_DuplicateKey(t *testing.T) {
	tree := bptree.NewBPlusTree[uint64, string](4)
	require.NoError(t, tree.Insert(0x10, "first"))
	assert.ErrorIs(t, tree.Insert(0x10, "second"), bptree.ErrDuplicateKey)

	v, ok := tree.Search(0x10)
	require.True(t, ok)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, tree.Len())

	tree.Put(0x10, "third")
	v, _ = tree.Search(0x10)
	assert.Equal(t, "third", v)
	assert.Equal(t, 1, tree.Len())
}

func TestBPlusTree_OrderedScan(t *testing.T) {
	tree := bptree.NewBPlusTree[int, int](3)
	keys := rand.Perm(500)
	for _, k := range keys {
		require.NoError(t, tree.Insert(k, k*2))
	}
	assert.Greater(t, tree.Height(), 2)

	var got []int
	tree.Ascend(func(k, v int) bool {
		assert.Equal(t, k*2, v)
		got = append(got, k)
		return true
	})
	require.Len(t, got, 500)
	for i, k := range got {
		assert.Equal(t, i, k)
	}

	for _, k := range keys {
		v, ok := tree.Search(k)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, k*2, v)
	}

	last, ok := tree.Max()
	require.True(t, ok)
	assert.Equal(t, 499, last)
}

func TestBPlusTree_Range(t *testing.T) {
	tree := bptree.NewBPlusTree[string, int](3)
	for i, k := range []string{"arc", "circle", "insert", "line", "point", "text"} {
		require.NoError(t, tree.Insert(k, i))
	}

	var got []string
	tree.Range("c", "p", func(k string, _ int) bool {
		got = append(got, k)
		return true
	})
	assert.Equal(t, []string{"circle", "insert", "line"}, got)

	got = got[:0]
	tree.Range("a", "z", func(k string, _ int) bool {
		got = append(got, k)
		return len(got) < 2
	})
	assert.Equal(t, []string{"arc", "circle"}, got)
}

func TestBPlusTree_Concurrency(t *testing.T) {
	tree := bptree.NewBPlusTree[int, string](4)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, tree.Insert(i, string(rune('a'+i-1))))
		}(i)
	}
	wg.Wait()

	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, found := tree.Search(i); !found {
				t.Errorf("Expected to find key %d", i)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, tree.Len())
}

func BenchmarkBPlusTree_Insert(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tree := bptree.NewBPlusTree[uint64, int](bptree.DefaultOrder)
		for k := uint64(1); k <= 1000; k++ {
			_ = tree.Insert(k, int(k))
		}
	}
}
