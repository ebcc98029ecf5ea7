package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/bptree"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/index"
)

// SimpleQueryEngine implements field queries over a document using secondary indexes
type SimpleQueryEngine struct {
	indexManager *index.IndexManager
	doc          *document.Document
}

// NewSimpleQueryEngine creates a new query engine
func NewSimpleQueryEngine(indexManager *index.IndexManager, doc *document.Document) *SimpleQueryEngine {
	return &SimpleQueryEngine{
		indexManager: indexManager,
		doc:          doc,
	}
}

// IndexDocument builds the standard field indexes of doc.
func IndexDocument(ctx context.Context, doc *document.Document, extractor FieldExtractor) (*index.IndexManager, error) {
	im := index.NewIndexManager(bptree.DefaultOrder)
	for _, f := range Fields() {
		im.GetOrCreateIndex(f)
	}
	for i, obj := range doc.Objects() {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		h := obj.Common().Handle
		for _, f := range Fields() {
			v, err := extractor.Extract(obj, f)
			if errors.Is(err, ErrFieldNotApplicable) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to extract %s of 0x%X: %w", f, h, err)
			}
			idx, _ := im.Index(f)
			if err := idx.Insert(v, h); err != nil {
				return nil, err
			}
		}
	}
	return im, nil
}

// NewDocumentEngine indexes doc and returns an engine over it.
func NewDocumentEngine(ctx context.Context, doc *document.Document) (*SimpleQueryEngine, error) {
	im, err := IndexDocument(ctx, doc, &DocumentFieldExtractor{})
	if err != nil {
		return nil, err
	}
	return NewSimpleQueryEngine(im, doc), nil
}

// IndexManager returns the indexes used by the engine.
func (qe *SimpleQueryEngine) IndexManager() *index.IndexManager {
	return qe.indexManager
}

// ExecuteQuery executes a single field query
func (qe *SimpleQueryEngine) ExecuteQuery(ctx context.Context, query FieldQuery) (QueryIterator, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	idx, ok := qe.indexManager.Index(query.Field)
	if !ok {
		return nil, fmt.Errorf("field %q is not indexed", query.Field)
	}
	value := normalize(query.Field, query.Value)

	var handles []uint64
	switch query.Operator {
	case "=":
		handles = idx.Search(value)
	case ">":
		handles = idx.SearchRange(index.Bound{Value: value}, index.Bound{})
	case ">=":
		handles = idx.SearchRange(index.Bound{Value: value, Inclusive: true}, index.Bound{})
	case "<":
		handles = idx.SearchRange(index.Bound{}, index.Bound{Value: value})
	case "<=":
		handles = idx.SearchRange(index.Bound{}, index.Bound{Value: value, Inclusive: true})
	default:
		return nil, fmt.Errorf("unsupported operator: %s", query.Operator)
	}
	return qe.results(ctx, handles)
}

// ExecuteRangeQuery executes a range query between two field conditions
func (qe *SimpleQueryEngine) ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error) {
	if err := startQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid start query: %w", err)
	}
	if err := endQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid end query: %w", err)
	}

	// Ensure both queries are for the same field
	if startQuery.Field != endQuery.Field {
		return nil, fmt.Errorf("range query fields must match: %s != %s", startQuery.Field, endQuery.Field)
	}
	if startQuery.Operator != ">" && startQuery.Operator != ">=" {
		return nil, fmt.Errorf("range start must use > or >=, got %s", startQuery.Operator)
	}
	if endQuery.Operator != "<" && endQuery.Operator != "<=" {
		return nil, fmt.Errorf("range end must use < or <=, got %s", endQuery.Operator)
	}

	idx, ok := qe.indexManager.Index(startQuery.Field)
	if !ok {
		return nil, fmt.Errorf("field %q is not indexed", startQuery.Field)
	}
	handles := idx.SearchRange(
		index.Bound{Value: normalize(startQuery.Field, startQuery.Value), Inclusive: startQuery.Operator == ">="},
		index.Bound{Value: normalize(endQuery.Field, endQuery.Value), Inclusive: endQuery.Operator == "<="},
	)
	return qe.results(ctx, handles)
}

// results resolves handles to live objects
func (qe *SimpleQueryEngine) results(ctx context.Context, handles []uint64) (QueryIterator, error) {
	results := make([]QueryResult, 0, len(handles))
	for i, h := range handles {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		obj, ok := qe.doc.Lookup(h)
		if !ok {
			continue // Skip objects removed since indexing
		}
		results = append(results, QueryResult{Handle: h, Object: obj})
	}
	return &simpleIterator{results: results}, nil
}

// normalize converts query values to the types the extractor indexes.
func normalize(field string, v interface{}) interface{} {
	switch field {
	case FieldHandle, FieldOwner:
		switch n := v.(type) {
		case int:
			return uint64(n)
		case int64:
			return uint64(n)
		}
	case FieldColor:
		switch n := v.(type) {
		case int:
			return int16(n)
		case int64:
			return int16(n)
		}
	}
	return v
}

// Collect drains it into a slice and closes it.
func Collect(it QueryIterator) []QueryResult {
	defer it.Close()
	var out []QueryResult
	for it.Next() {
		out = append(out, it.Result())
	}
	return out
}

// simpleIterator implements QueryIterator for basic result streaming
type simpleIterator struct {
	results []QueryResult
	index   int
}

func (it *simpleIterator) Next() bool {
	if it.index < len(it.results) {
		it.index++
		return true
	}
	return false
}

func (it *simpleIterator) Result() QueryResult {
	if it.index > 0 && it.index <= len(it.results) {
		return it.results[it.index-1]
	}
	return QueryResult{}
}

func (it *simpleIterator) Close() error {
	return nil
}
