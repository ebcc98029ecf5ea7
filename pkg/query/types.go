package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ssargent/dwgkit/pkg/document"
)

// Fields indexed for every document.
const (
	FieldType   = "type"   // DXF type name
	FieldLayer  = "layer"  // entity layer name
	FieldOwner  = "owner"  // owner handle
	FieldBlock  = "block"  // name of the owning block record
	FieldHandle = "handle" // object handle
	FieldColor  = "color"  // entity color index
)

// Fields returns every indexed field name.
func Fields() []string {
	return []string{FieldType, FieldLayer, FieldOwner, FieldBlock, FieldHandle, FieldColor}
}

// ErrFieldNotApplicable is returned by an extractor for objects that do not
// carry the field.
var ErrFieldNotApplicable = errors.New("field not applicable")

// FieldExtractor defines how to extract field values from objects
type FieldExtractor interface {
	Extract(obj document.Object, field string) (interface{}, error)
}

// DocumentFieldExtractor extracts the standard fields from document objects
type DocumentFieldExtractor struct{}

// Extract implements FieldExtractor for document objects
func (e *DocumentFieldExtractor) Extract(obj document.Object, field string) (interface{}, error) {
	if obj == nil {
		return nil, fmt.Errorf("nil object")
	}
	c := obj.Common()
	switch field {
	case FieldType:
		return document.TypeName(obj), nil
	case FieldHandle:
		return c.Handle, nil
	case FieldOwner:
		if c.Owner == nil {
			return nil, ErrFieldNotApplicable
		}
		return c.Owner.Common().Handle, nil
	case FieldBlock:
		if b, ok := c.Owner.(*document.BlockRecord); ok {
			return b.Name, nil
		}
		return nil, ErrFieldNotApplicable
	case FieldLayer, FieldColor:
		ent, ok := obj.(document.Entity)
		if !ok {
			return nil, ErrFieldNotApplicable
		}
		eb := ent.EntityCommon()
		if field == FieldColor {
			return eb.Color.Index, nil
		}
		if eb.Layer == nil {
			return nil, ErrFieldNotApplicable
		}
		return eb.Layer.Name, nil
	}
	return nil, fmt.Errorf("field '%s' not known", field)
}

// FieldQuery represents a single field-based query condition
type FieldQuery struct {
	Field    string      // Field name to query (e.g., "layer", "type")
	Operator string      // Comparison operator: "=", ">", "<", ">=", "<="
	Value    interface{} // Value to compare against
}

// Validate checks if the query is properly formed
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if q.Operator == "" {
		return fmt.Errorf("operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, ">": true, "<": true, ">=": true, "<=": true,
	}
	if !validOps[q.Operator] {
		return fmt.Errorf("invalid operator: %s", q.Operator)
	}
	if q.Value == nil {
		return fmt.Errorf("value cannot be empty")
	}
	return nil
}

// ParseQuery parses expressions such as "layer=WALLS" or "handle>=0x2A".
// Handles are read as hexadecimal.
func ParseQuery(expr string) (FieldQuery, error) {
	for _, op := range []string{">=", "<=", "=", ">", "<"} {
		i := strings.Index(expr, op)
		if i < 0 {
			continue
		}
		q := FieldQuery{
			Field:    strings.ToLower(strings.TrimSpace(expr[:i])),
			Operator: op,
		}
		raw := strings.TrimSpace(expr[i+len(op):])
		v, err := parseValue(q.Field, raw)
		if err != nil {
			return FieldQuery{}, err
		}
		q.Value = v
		return q, q.Validate()
	}
	return FieldQuery{}, fmt.Errorf("no operator in query %q", expr)
}

func parseValue(field, raw string) (interface{}, error) {
	if raw == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}
	switch field {
	case FieldHandle, FieldOwner:
		h, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(raw), "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid handle %q: %w", raw, err)
		}
		return h, nil
	case FieldColor:
		c, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", raw, err)
		}
		return int16(c), nil
	}
	return raw, nil
}

// QueryResult represents a single query result
type QueryResult struct {
	Handle uint64
	Object document.Object
}

// QueryIterator provides streaming access to query results
type QueryIterator interface {
	Next() bool
	Result() QueryResult
	Close() error
}

// QueryEngine handles query execution
type QueryEngine interface {
	ExecuteQuery(ctx context.Context, query FieldQuery) (QueryIterator, error)
	ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error)
}
