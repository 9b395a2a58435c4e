/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/docproxy/query"
)

// expressionBuilder accumulates placeholder names and values shared by the
// key condition, filter and projection expressions of one request.
type expressionBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
	byName map[string]string
	nVal   int
}

func newExpressionBuilder() *expressionBuilder {
	return &expressionBuilder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		byName: make(map[string]string),
	}
}

// path returns the placeholder form of a dotted field path, e.g. "#f0.#f1".
func (b *expressionBuilder) path(field string) string {
	segs := query.Path(field)
	out := make([]string, len(segs))
	for i, seg := range segs {
		ph, ok := b.byName[seg]
		if !ok {
			ph = fmt.Sprintf("#f%d", len(b.byName))
			b.byName[seg] = ph
			b.names[ph] = seg
		}
		out[i] = ph
	}
	return strings.Join(out, ".")
}

func (b *expressionBuilder) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter value %v: %w", v, err)
	}
	ph := fmt.Sprintf(":v%d", b.nVal)
	b.nVal++
	b.values[ph] = av
	return ph, nil
}

// filter renders the query predicates as a DynamoDB condition, joined by AND.
func (b *expressionBuilder) filter(filters []query.Filter) (string, error) {
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		name := b.path(f.Field)
		val, err := b.value(f.Value)
		if err != nil {
			return "", err
		}

		switch f.Op {
		case query.Eq:
			clauses = append(clauses, fmt.Sprintf("%s = %s", name, val))
		case query.Ne:
			clauses = append(clauses, fmt.Sprintf("%s <> %s", name, val))
		case query.Lt, query.Le, query.Gt, query.Ge:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", name, f.Op, val))
		case query.StartsWith:
			clauses = append(clauses, fmt.Sprintf("begins_with(%s, %s)", name, val))
		case query.Contains:
			clauses = append(clauses, fmt.Sprintf("contains(%s, %s)", name, val))
		default:
			return "", fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return strings.Join(clauses, " AND "), nil
}

func (b *expressionBuilder) projection(fields []string) string {
	paths := make([]string, len(fields))
	for i, f := range fields {
		paths[i] = b.path(f)
	}
	return strings.Join(paths, ", ")
}

func (b *expressionBuilder) attributeNames() map[string]string {
	if len(b.names) == 0 {
		return nil
	}
	return b.names
}

func (b *expressionBuilder) attributeValues() map[string]types.AttributeValue {
	if len(b.values) == 0 {
		return nil
	}
	return b.values
}
