package index

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ssargent/dwgkit/pkg/bptree"
)

const (
	sep        = "\x00"
	afterValue = "\x01"
	// upperBound sorts after every key; keys are valid UTF-8.
	upperBound = "\xff"
)

// Bound is one end of a range search. A nil Value leaves that end open.
type Bound struct {
	Value     interface{}
	Inclusive bool
}

// SecondaryIndex manages a B+Tree-based index for a specific field
type SecondaryIndex struct {
	fieldName string
	tree      *bptree.BPlusTree[string, uint64]
}

// NewSecondaryIndex creates a new secondary index for a field
func NewSecondaryIndex(fieldName string, order int) *SecondaryIndex {
	return &SecondaryIndex{
		fieldName: fieldName,
		tree:      bptree.NewBPlusTree[string, uint64](order),
	}
}

// Field returns the indexed field name.
func (idx *SecondaryIndex) Field() string {
	return idx.fieldName
}

// Len returns the number of indexed handles.
func (idx *SecondaryIndex) Len() int {
	return idx.tree.Len()
}

// Insert adds a handle to the secondary index
// The index key is: field_value + handle (to ensure uniqueness)
func (idx *SecondaryIndex) Insert(fieldValue interface{}, handle uint64) error {
	if err := idx.tree.Insert(createIndexKey(fieldValue, handle), handle); err != nil {
		return fmt.Errorf("index %s: handle 0x%X already indexed under %v: %w", idx.fieldName, handle, fieldValue, err)
	}
	return nil
}

// Search finds handles with exact field value match, in handle order
func (idx *SecondaryIndex) Search(fieldValue interface{}) []uint64 {
	prefix := EncodeValue(fieldValue) + sep
	return idx.collect(prefix, EncodeValue(fieldValue)+afterValue)
}

// SearchRange finds handles whose field value lies between start and end,
// ordered by field value and then handle
func (idx *SecondaryIndex) SearchRange(start, end Bound) []uint64 {
	from, to := "", upperBound
	if start.Value != nil {
		from = EncodeValue(start.Value) + afterValue
		if start.Inclusive {
			from = EncodeValue(start.Value) + sep
		}
	}
	if end.Value != nil {
		to = EncodeValue(end.Value) + sep
		if end.Inclusive {
			to = EncodeValue(end.Value) + afterValue
		}
	}
	if from >= to {
		return nil
	}
	return idx.collect(from, to)
}

// Values returns the distinct field values in the index with their counts.
func (idx *SecondaryIndex) Values() map[string]int {
	out := make(map[string]int)
	idx.tree.Ascend(func(k string, _ uint64) bool {
		out[k[:strings.LastIndex(k, sep)]]++
		return true
	})
	return out
}

func (idx *SecondaryIndex) collect(from, to string) []uint64 {
	var out []uint64
	idx.tree.Range(from, to, func(_ string, h uint64) bool {
		out = append(out, h)
		return true
	})
	return out
}

// createIndexKey creates a composite key: field_value + handle
func createIndexKey(fieldValue interface{}, handle uint64) string {
	return fmt.Sprintf("%s%s%016X", EncodeValue(fieldValue), sep, handle)
}

// EncodeValue serializes a field value so that byte order matches value
// order. Strings compare case-insensitively, as table names do.
func EncodeValue(value interface{}) string {
	switch v := value.(type) {
	case uint64:
		return fmt.Sprintf("%016X", v)
	case int:
		return fmt.Sprintf("%016X", uint64(v)^(1<<63))
	case int16:
		return fmt.Sprintf("%016X", uint64(int64(v))^(1<<63))
	case int64:
		return fmt.Sprintf("%016X", uint64(v)^(1<<63))
	case float64:
		bits := math.Float64bits(v)
		if v < 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		return fmt.Sprintf("%016X", bits)
	case string:
		return strings.ToUpper(v)
	default:
		// For unknown types, convert to string
		return strings.ToUpper(fmt.Sprintf("%v", v))
	}
}

// IndexManager manages the secondary indexes of one document
type IndexManager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewIndexManager creates a new index manager
func NewIndexManager(order int) *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*SecondaryIndex),
		order:   order,
	}
}

// GetOrCreateIndex gets an existing index or creates a new one for a field
func (im *IndexManager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	if idx, exists := im.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(fieldName, im.order)
	im.indexes[fieldName] = idx
	return idx
}

// Index returns the index for a field if one exists
func (im *IndexManager) Index(fieldName string) (*SecondaryIndex, bool) {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	idx, ok := im.indexes[fieldName]
	return idx, ok
}

// Fields returns the indexed field names in sorted order
func (im *IndexManager) Fields() []string {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	fields := make([]string, 0, len(im.indexes))
	for name := range im.indexes {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}
