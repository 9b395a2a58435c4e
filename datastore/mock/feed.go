/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// feed pages through the matches of one query.
type feed[T any] struct {
	container *Container[T]
	query     query.Query
	pk        *storagemodels.PartitionKey
	pageSize  int
	offset    int

	started bool
	done    bool
	matches []map[string]any
}

func (f *feed[T]) HasMoreResults() bool {
	return !f.done
}

func (f *feed[T]) ReadNext(ctx context.Context) (*storagemodels.FeedResponse[T], error) {
	if f.done {
		return nil, fmt.Errorf("feed has no more results")
	}
	if err := f.container.wait(ctx); err != nil {
		return nil, err
	}
	f.container.fetches.Add(1)
	if f.container.queryError != nil {
		return nil, f.container.queryError
	}

	if !f.started {
		hits, err := f.evaluate()
		if err != nil {
			return nil, err
		}
		f.matches = hits
		f.started = true
	}

	end := f.offset + f.pageSize
	if end > len(f.matches) {
		end = len(f.matches)
	}
	start := f.offset
	if start > end {
		start = end
	}

	resp := &storagemodels.FeedResponse[T]{
		Items:         make([]T, 0, end-start),
		RequestCharge: requestCharge,
		ActivityID:    uuid.NewString(),
	}
	for _, fields := range f.matches[start:end] {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		resp.Items = append(resp.Items, item)
	}

	f.offset = end
	if f.offset >= len(f.matches) {
		f.finish()
	} else {
		resp.ContinuationToken = encodeToken(f.offset)
	}
	return resp, nil
}

func (f *feed[T]) Close() error {
	f.finish()
	return nil
}

func (f *feed[T]) finish() {
	if !f.done {
		f.done = true
		f.container.openFeeds.Add(-1)
	}
}

func (f *feed[T]) evaluate() ([]map[string]any, error) {
	docs, err := f.container.snapshot(f.pk)
	if err != nil {
		return nil, err
	}

	filters := f.query.Filters()
	hits := docs[:0]
	for _, doc := range docs {
		if matchesAll(doc, filters) {
			hits = append(hits, doc)
		}
	}

	if orders := f.query.Orders(); len(orders) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			for _, o := range orders {
				a, _ := lookup(hits[i], o.Field)
				b, _ := lookup(hits[j], o.Field)
				c := compareOrdered(a, b)
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if n := f.query.Limit(); n > 0 && len(hits) > n {
		hits = hits[:n]
	}

	if fields := f.query.Projection(); fields != nil {
		for i, doc := range hits {
			hits[i] = project(doc, fields)
		}
	}
	return hits, nil
}

func matchesAll(doc map[string]any, filters []query.Filter) bool {
	for _, flt := range filters {
		v, ok := lookup(doc, flt.Field)
		if !ok || !matches(v, flt.Op, normalize(flt.Value)) {
			return false
		}
	}
	return true
}

func matches(v any, op query.Op, want any) bool {
	switch op {
	case query.StartsWith:
		s, ok := v.(string)
		return ok && strings.HasPrefix(s, want.(string))
	case query.Contains:
		s, ok := v.(string)
		return ok && strings.Contains(s, want.(string))
	}

	c, comparable := compare(v, want)
	if !comparable {
		// mismatched types only satisfy !=
		return op == query.Ne
	}
	switch op {
	case query.Eq:
		return c == 0
	case query.Ne:
		return c != 0
	case query.Lt:
		return c < 0
	case query.Le:
		return c <= 0
	case query.Gt:
		return c > 0
	case query.Ge:
		return c >= 0
	}
	return false
}

// compare orders two decoded JSON scalars of the same kind.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case nil:
		return 0, b == nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	}
	return 0, false
}

// typeRank orders values of different kinds the way Cosmos DB ORDER BY does:
// undefined, null, bool, number, string.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 1
	case bool:
		return 2
	case float64:
		return 3
	case string:
		return 4
	}
	return 5
}

func compareOrdered(a, b any) int {
	if c, ok := compare(a, b); ok {
		return c
	}
	return typeRank(a) - typeRank(b)
}

func lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, seg := range query.Path(field) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func project(doc map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		v, ok := lookup(doc, field)
		if !ok {
			continue
		}
		path := query.Path(field)
		cur := out
		for _, seg := range path[:len(path)-1] {
			next, ok := cur[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[seg] = next
			}
			cur = next
		}
		cur[path[len(path)-1]] = v
	}
	return out
}

// normalize converts a filter value to the form encoding/json decodes into.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func encodeToken(offset int) string {
	return "mock:" + strconv.Itoa(offset)
}

func decodeToken(token string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(token, "mock:"))
	if err != nil || !strings.HasPrefix(token, "mock:") || n < 0 {
		return 0, errors.NewValidationError("continuationToken", fmt.Sprintf("malformed token %q", token))
	}
	return n, nil
}
