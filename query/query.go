/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"
)

// Op is a comparison operator in a filter.
type Op string

const (
	Eq         Op = "="
	Ne         Op = "!="
	Lt         Op = "<"
	Le         Op = "<="
	Gt         Op = ">"
	Ge         Op = ">="
	StartsWith Op = "starts_with"
	Contains   Op = "contains"
)

// Filter is a single predicate on a document field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order sorts results by one field.
type Order struct {
	Field      string
	Descending bool
}

// Query is a queryable view of a container. It is an immutable value: every
// builder method returns a new Query and leaves the receiver untouched, so a
// Condition can be applied to a shared base query safely.
type Query struct {
	filters    []Filter
	orders     []Order
	projection []string
	top        int
}

// Condition refines a Query. A nil Condition is the identity.
type Condition func(Query) Query

// New returns the query over every document in the container.
func New() Query {
	return Query{}
}

// Apply runs cond on q, or returns q unchanged when cond is nil.
func Apply(cond Condition, q Query) Query {
	if cond == nil {
		return q
	}
	return cond(q)
}

// Where adds a predicate. Predicates are combined with AND.
func (q Query) Where(field string, op Op, value any) Query {
	out := q.clone()
	out.filters = append(out.filters, Filter{Field: field, Op: op, Value: value})
	return out
}

// OrderBy appends an ascending sort on field.
func (q Query) OrderBy(field string) Query {
	out := q.clone()
	out.orders = append(out.orders, Order{Field: field})
	return out
}

// OrderByDesc appends a descending sort on field.
func (q Query) OrderByDesc(field string) Query {
	out := q.clone()
	out.orders = append(out.orders, Order{Field: field, Descending: true})
	return out
}

// Select projects results onto the given fields. Fields not selected decode
// as zero values.
func (q Query) Select(fields ...string) Query {
	out := q.clone()
	out.projection = append([]string(nil), fields...)
	return out
}

// Top limits the number of documents returned. n <= 0 removes the limit.
func (q Query) Top(n int) Query {
	out := q.clone()
	if n < 0 {
		n = 0
	}
	out.top = n
	return out
}

// Filters returns the predicates in the order they were added.
func (q Query) Filters() []Filter {
	return append([]Filter(nil), q.filters...)
}

// Orders returns the sort keys in priority order.
func (q Query) Orders() []Order {
	return append([]Order(nil), q.orders...)
}

// Projection returns the selected fields, or nil for whole documents.
func (q Query) Projection() []string {
	if len(q.projection) == 0 {
		return nil
	}
	return append([]string(nil), q.projection...)
}

// Limit returns the Top value; 0 means unlimited.
func (q Query) Limit() int {
	return q.top
}

// Validate checks that every field path and operator is usable.
func (q Query) Validate() error {
	for _, f := range q.filters {
		if err := validField(f.Field); err != nil {
			return err
		}
		switch f.Op {
		case Eq, Ne, Lt, Le, Gt, Ge:
		case StartsWith, Contains:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("operator %s on %q needs a string value, got %T", f.Op, f.Field, f.Value)
			}
		default:
			return fmt.Errorf("unsupported operator %q on %q", f.Op, f.Field)
		}
	}
	for _, o := range q.orders {
		if err := validField(o.Field); err != nil {
			return err
		}
	}
	for _, p := range q.projection {
		if err := validField(p); err != nil {
			return err
		}
	}
	return nil
}

// Path splits a dotted field path into its segments.
func Path(field string) []string {
	return strings.Split(field, ".")
}

func validField(field string) error {
	if field == "" {
		return fmt.Errorf("empty field path")
	}
	for _, seg := range Path(field) {
		if seg == "" {
			return fmt.Errorf("invalid field path %q", field)
		}
	}
	return nil
}

func (q Query) clone() Query {
	return Query{
		filters:    append([]Filter(nil), q.filters...),
		orders:     append([]Order(nil), q.orders...),
		projection: append([]string(nil), q.projection...),
		top:        q.top,
	}
}

// String renders the query for logs.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString("query")
	for _, f := range q.filters {
		fmt.Fprintf(&b, " where %s %s %v", f.Field, f.Op, f.Value)
	}
	for _, o := range q.orders {
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		fmt.Fprintf(&b, " order by %s %s", o.Field, dir)
	}
	if len(q.projection) > 0 {
		fmt.Fprintf(&b, " select %s", strings.Join(q.projection, ","))
	}
	if q.top > 0 {
		fmt.Fprintf(&b, " top %d", q.top)
	}
	return b.String()
}
