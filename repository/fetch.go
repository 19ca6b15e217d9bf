/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"strings"

	"github.com/tomoncle/tablerepo/types"
)

// FetchOption narrows a FetchAll or Count query.
type FetchOption func(*fetchQuery)

type fetchQuery struct {
	limit      *uint64
	offset     *uint64
	conditions []string
	args       []any
	orders     []string
}

func newFetchQuery(opts []FetchOption) *fetchQuery {
	q := &fetchQuery{}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// WithLimit caps the number of rows returned.
func WithLimit(n uint64) FetchOption {
	return func(q *fetchQuery) { q.limit = &n }
}

// WithOffset skips the first n rows.
func WithOffset(n uint64) FetchOption {
	return func(q *fetchQuery) { q.offset = &n }
}

// WithCondition adds a WHERE predicate. The predicate is inserted verbatim
// and must come from trusted code; values belong in args, one per "?".
// A "?" inside a quoted literal such as 'Why?' is kept as text, and "\?"
// writes a literal "?" anywhere else (the Postgres jsonb operator, say).
// Several conditions are joined with AND.
func WithCondition(condition string, args ...any) FetchOption {
	return func(q *fetchQuery) {
		if strings.TrimSpace(condition) == "" {
			return
		}
		q.conditions = append(q.conditions, escapeQuoted(condition))
		q.args = append(q.args, args...)
	}
}

// WithFilter adds the predicate of a QueryFilter. A nil filter is ignored.
func WithFilter(filter *types.QueryFilter) FetchOption {
	if filter == nil {
		return nil
	}
	return WithCondition(filter.Condition, filter.Args...)
}

// WithOrder appends ORDER BY terms of the form "column [ASC|DESC]".
func WithOrder(orders ...string) FetchOption {
	return func(q *fetchQuery) { q.orders = append(q.orders, orders...) }
}

// WithPage applies the filter, ordering and window of a page request.
func WithPage(page *types.PageRequest) FetchOption {
	if page == nil {
		return nil
	}
	return func(q *fetchQuery) {
		if opt := WithFilter(page.GetFilter()); opt != nil {
			opt(q)
		}
		q.orders = append(q.orders, page.GetOrders()...)
		limit := uint64(page.GetPageSize())
		offset := uint64(page.GetOffset())
		q.limit = &limit
		q.offset = &offset
	}
}

func (q *fetchQuery) appendWhere(sb *strings.Builder, args []any) []any {
	switch len(q.conditions) {
	case 0:
		return args
	case 1:
		sb.WriteString(" WHERE ")
		sb.WriteString(q.conditions[0])
	default:
		sb.WriteString(" WHERE (")
		sb.WriteString(strings.Join(q.conditions, ") AND ("))
		sb.WriteString(")")
	}
	return append(args, q.args...)
}
