/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cosmos

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/suparena/docproxy/query"
)

// containerAlias is the alias the rendered SQL uses for the container.
const containerAlias = "c"

// BuildSQL renders q as a Cosmos DB SQL statement with named parameters.
func BuildSQL(q query.Query) (string, []azcosmos.QueryParameter, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var params []azcosmos.QueryParameter

	b.WriteString("SELECT ")
	if n := q.Limit(); n > 0 {
		fmt.Fprintf(&b, "TOP %d ", n)
	}
	if fields := q.Projection(); fields != nil {
		b.WriteString("VALUE ")
		b.WriteString(projectionLiteral(fields))
	} else {
		b.WriteString("*")
	}
	b.WriteString(" FROM ")
	b.WriteString(containerAlias)

	if filters := q.Filters(); len(filters) > 0 {
		clauses := make([]string, 0, len(filters))
		for _, f := range filters {
			name := fmt.Sprintf("@p%d", len(params))
			params = append(params, azcosmos.QueryParameter{Name: name, Value: f.Value})
			ref := fieldRef(f.Field)

			switch f.Op {
			case query.Eq, query.Lt, query.Le, query.Gt, query.Ge, query.Ne:
				clauses = append(clauses, fmt.Sprintf("%s %s %s", ref, f.Op, name))
			case query.StartsWith:
				clauses = append(clauses, fmt.Sprintf("STARTSWITH(%s, %s)", ref, name))
			case query.Contains:
				clauses = append(clauses, fmt.Sprintf("CONTAINS(%s, %s)", ref, name))
			}
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if orders := q.Orders(); len(orders) > 0 {
		keys := make([]string, len(orders))
		for i, o := range orders {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			keys[i] = fieldRef(o.Field) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}

	return b.String(), params, nil
}

// fieldRef renders a dotted path with bracket notation, e.g. c["address"]["city"].
func fieldRef(field string) string {
	var b strings.Builder
	b.WriteString(containerAlias)
	for _, seg := range query.Path(field) {
		b.WriteString("[")
		b.WriteString(quote(seg))
		b.WriteString("]")
	}
	return b.String()
}

// quote renders s as a string literal. Cosmos SQL string literals follow JSON
// escaping.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

type projectionNode struct {
	field    string
	children map[string]*projectionNode
}

// projectionLiteral builds an object literal that keeps the nesting of the
// selected paths: {"id": c["id"], "address": {"city": c["address"]["city"]}}.
func projectionLiteral(fields []string) string {
	root := &projectionNode{children: map[string]*projectionNode{}}
	for _, f := range fields {
		cur := root
		for _, seg := range query.Path(f) {
			next, ok := cur.children[seg]
			if !ok {
				next = &projectionNode{children: map[string]*projectionNode{}}
				cur.children[seg] = next
			}
			cur = next
		}
		cur.field = f
	}
	return root.render()
}

func (n *projectionNode) render() string {
	if n.field != "" {
		return fieldRef(n.field)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = quote(name) + ": " + n.children[name].render()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
