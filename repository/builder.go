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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)
	orderPattern = regexp.MustCompile(`(?i)^\s*([A-Za-z_][A-Za-z0-9_$]*(?:\.[A-Za-z_][A-Za-z0-9_$]*)?)(?:\s+(ASC|DESC))?\s*$`)
)

// ValidateIdentifier accepts a plain or schema-qualified SQL name such as
// "wpbi_posts" or "public.products".
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return ErrInvalidIdentifier
	}
	return nil
}

// Fields maps column names to the values written to them.
type Fields map[string]any

// Columns returns the column names in ascending order.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for col := range f {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Statement is a parameterized query. Identifiers travel in Args as
// bun.Ident and are quoted by the dialect when the query is formatted.
type Statement struct {
	Query string
	Args  []any
}

// Validate checks that every placeholder has exactly one argument. An
// escaped "\?" is not a placeholder.
func (s Statement) Validate() error {
	if n := countPlaceholders(s.Query); n != len(s.Args) {
		return fmt.Errorf("%w: %d placeholders, %d args", ErrPlaceholderMismatch, n, len(s.Args))
	}
	return nil
}

func countPlaceholders(query string) int {
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' && (i == 0 || query[i-1] != '\\') {
			n++
		}
	}
	return n
}

// escapeQuoted escapes each "?" inside a quoted literal of a predicate so
// the formatter emits it unchanged. A backslash inside a literal escapes
// the byte after it.
func escapeQuoted(predicate string) string {
	if !strings.Contains(predicate, "?") {
		return predicate
	}
	var sb strings.Builder
	sb.Grow(len(predicate) + 4)
	var quote byte
	for i := 0; i < len(predicate); i++ {
		c := predicate[i]
		switch {
		case quote == 0:
			if c == '\'' || c == '"' || c == '`' {
				quote = c
			}
		case c == '\\' && i+1 < len(predicate):
			sb.WriteByte(c)
			i++
			c = predicate[i]
		case c == quote:
			quote = 0
		case c == '?':
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

type orderBy struct {
	column    string
	direction string // "", "ASC" or "DESC"
}

func parseOrder(s string) (orderBy, error) {
	m := orderPattern.FindStringSubmatch(s)
	if m == nil {
		return orderBy{}, &ValidationError{Field: "order", Value: s, Err: ErrInvalidIdentifier}
	}
	return orderBy{column: m[1], direction: strings.ToUpper(m[2])}, nil
}

// builder renders statements for one dialect and primary key column.
type builder struct {
	dialect    dialect.Name
	primaryKey string
}

func (b builder) selectAll(table string, q *fetchQuery) (Statement, error) {
	var sb strings.Builder
	args := []any{bun.Ident(table)}
	sb.WriteString("SELECT * FROM ?")

	args = q.appendWhere(&sb, args)

	if len(q.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, raw := range q.orders {
			o, err := parseOrder(raw)
			if err != nil {
				return Statement{}, err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, bun.Ident(o.column))
			if o.direction != "" {
				sb.WriteString(" " + o.direction)
			}
		}
	}

	switch {
	case q.limit != nil:
		sb.WriteString(" LIMIT ?")
		args = append(args, *q.limit)
	case q.offset != nil:
		if sentinel := b.unboundedLimit(); sentinel != "" {
			sb.WriteString(" LIMIT ")
			sb.WriteString(sentinel)
		}
	}
	if q.offset != nil {
		sb.WriteString(" OFFSET ?")
		args = append(args, *q.offset)
	}

	return Statement{Query: sb.String(), Args: args}, nil
}

// unboundedLimit is the LIMIT value the dialect needs before a bare OFFSET.
func (b builder) unboundedLimit() string {
	switch b.dialect {
	case dialect.MySQL:
		return strconv.FormatUint(^uint64(0), 10)
	case dialect.SQLite:
		return "-1"
	default:
		return ""
	}
}

func (b builder) count(table string, q *fetchQuery) Statement {
	var sb strings.Builder
	args := []any{bun.Ident(table)}
	sb.WriteString("SELECT COUNT(*) FROM ?")
	args = q.appendWhere(&sb, args)
	return Statement{Query: sb.String(), Args: args}
}

func (b builder) selectOne(table string, id any) Statement {
	return Statement{
		Query: "SELECT * FROM ? WHERE ? = ?",
		Args:  []any{bun.Ident(table), bun.Ident(b.primaryKey), id},
	}
}

func (b builder) insert(table string, fields Fields, returning bool) (Statement, error) {
	cols := fields.Columns()
	if err := validateColumns(cols); err != nil {
		return Statement{}, err
	}

	args := make([]any, 0, 2*len(cols)+2)
	args = append(args, bun.Ident(table))
	for _, col := range cols {
		args = append(args, bun.Ident(col))
	}
	for _, col := range cols {
		args = append(args, fields[col])
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := "INSERT INTO ? (" + placeholders + ") VALUES (" + placeholders + ")"
	if returning {
		query += " RETURNING ?"
		args = append(args, bun.Ident(b.primaryKey))
	}
	return Statement{Query: query, Args: args}, nil
}

func (b builder) update(table string, id any, fields Fields) (Statement, error) {
	cols := fields.Columns()
	if err := validateColumns(cols); err != nil {
		return Statement{}, err
	}

	args := make([]any, 0, 2*len(cols)+3)
	args = append(args, bun.Ident(table))
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = "? = ?"
		args = append(args, bun.Ident(col), fields[col])
	}
	args = append(args, bun.Ident(b.primaryKey), id)

	return Statement{
		Query: "UPDATE ? SET " + strings.Join(sets, ", ") + " WHERE ? = ?",
		Args:  args,
	}, nil
}

func (b builder) delete(table string, id any) Statement {
	return Statement{
		Query: "DELETE FROM ? WHERE ? = ?",
		Args:  []any{bun.Ident(table), bun.Ident(b.primaryKey), id},
	}
}

func validateColumns(cols []string) error {
	for _, col := range cols {
		if err := ValidateIdentifier(col); err != nil {
			return &ValidationError{Field: "column", Value: col, Err: err}
		}
	}
	return nil
}
