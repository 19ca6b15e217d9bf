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
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"

	"github.com/tomoncle/tablerepo/database"
	"github.com/tomoncle/tablerepo/types"
)

// DefaultPrimaryKey is the column FetchOne, UpdateRecord and DeleteRecord
// match ids against unless WithPrimaryKey says otherwise.
const DefaultPrimaryKey = "id"

// Repository runs table-agnostic queries over a shared connection pool.
// It holds no per-call state and is safe for concurrent use.
type Repository struct {
	db         *bun.DB
	logger     database.Logger
	primaryKey string
	registry   *Registry
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger that receives the rendered SQL of each call.
func WithLogger(logger database.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPrimaryKey changes the id column.
func WithPrimaryKey(column string) Option {
	return func(r *Repository) { r.primaryKey = column }
}

// WithRegistry restricts every call to the tables in reg.
func WithRegistry(reg *Registry) Option {
	return func(r *Repository) { r.registry = reg }
}

// New creates a repository over db.
func New(db *bun.DB, opts ...Option) *Repository {
	r := &Repository{
		db:         db,
		logger:     database.GetLogger(),
		primaryKey: DefaultPrimaryKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) DB() *bun.DB { return r.db }

func (r *Repository) PrimaryKey() string { return r.primaryKey }

func (r *Repository) builder() builder {
	return builder{dialect: r.db.Dialect().Name(), primaryKey: r.primaryKey}
}

func (r *Repository) checkTable(table string) error {
	if r.db == nil {
		return ErrNotConnected
	}
	if err := ValidateIdentifier(table); err != nil {
		return &ValidationError{Field: "table", Value: table, Err: err}
	}
	if err := ValidateIdentifier(r.primaryKey); err != nil {
		return &ValidationError{Field: "primary key", Value: r.primaryKey, Err: err}
	}
	if r.registry != nil && !r.registry.Allowed(table) {
		return &ValidationError{Field: "table", Value: table, Err: ErrTableNotAllowed}
	}
	return nil
}

// render logs the statement with its arguments inlined and returns that text.
func (r *Repository) render(stmt Statement) string {
	query := r.db.Formatter().FormatQuery(stmt.Query, stmt.Args...)
	r.logger.Debug("SQL: " + query)
	return query
}

// FetchAll returns every row of table matching opts, decoded into T.
// A query that matches nothing yields a *NoRecordsFoundError.
func FetchAll[T any](ctx context.Context, r *Repository, table string, opts ...FetchOption) ([]*T, error) {
	if err := r.checkTable(table); err != nil {
		return nil, err
	}
	stmt, err := r.builder().selectAll(table, newFetchQuery(opts))
	if err != nil {
		return nil, err
	}
	if err := stmt.Validate(); err != nil {
		return nil, &ValidationError{Field: "condition", Err: err}
	}

	query := r.render(stmt)
	var items []*T
	if err := r.db.NewRaw(stmt.Query, stmt.Args...).Scan(ctx, &items); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, newQueryError("fetch_all", query, err)
		}
	}
	if len(items) == 0 {
		return nil, &NoRecordsFoundError{Table: table}
	}
	return items, nil
}

// FetchOne returns the row of table whose primary key equals id.
func FetchOne[T any](ctx context.Context, r *Repository, table string, id any) (*T, error) {
	if err := r.checkTable(table); err != nil {
		return nil, err
	}
	stmt := r.builder().selectOne(table, id)

	query := r.render(stmt)
	item := new(T)
	if err := r.db.NewRaw(stmt.Query, stmt.Args...).Scan(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NoRecordFoundError{Table: table, ID: id}
		}
		return nil, newQueryError("fetch_one", query, err)
	}
	return item, nil
}

// Count returns the number of rows of table matching the conditions in
// opts. Limit, offset and ordering options are ignored.
func Count(ctx context.Context, r *Repository, table string, opts ...FetchOption) (int, error) {
	if err := r.checkTable(table); err != nil {
		return 0, err
	}
	stmt := r.builder().count(table, newFetchQuery(opts))
	if err := stmt.Validate(); err != nil {
		return 0, &ValidationError{Field: "condition", Err: err}
	}

	query := r.render(stmt)
	var total int
	if err := r.db.NewRaw(stmt.Query, stmt.Args...).Scan(ctx, &total); err != nil {
		return 0, newQueryError("count", query, err)
	}
	return total, nil
}

// FetchPage returns one page of table. An empty page is not an error.
func FetchPage[T any](ctx context.Context, r *Repository, table string, page *types.PageRequest) (*types.Pagination[T], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())

	total, err := Count(ctx, r, table, WithFilter(page.GetFilter()))
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	if total == 0 {
		return pagination, nil
	}

	items, err := FetchAll[T](ctx, r, table, WithPage(page))
	if err != nil {
		if errors.Is(err, ErrNoRecordsFound) {
			return pagination, nil
		}
		return nil, err
	}
	pagination.Items = items
	return pagination, nil
}

// InsertRecord writes one row and returns its generated id. Dialects with
// RETURNING report the primary key column; MySQL reports LAST_INSERT_ID().
func (r *Repository) InsertRecord(ctx context.Context, table string, fields Fields) (int64, error) {
	if err := r.checkTable(table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, &ValidationError{Field: "fields", Err: ErrEmptyFields}
	}

	returning := r.db.HasFeature(feature.InsertReturning)
	stmt, err := r.builder().insert(table, fields, returning)
	if err != nil {
		return 0, err
	}

	query := r.render(stmt)
	if returning {
		var id int64
		if err := r.db.NewRaw(stmt.Query, stmt.Args...).Scan(ctx, &id); err != nil {
			return 0, newQueryError("insert_record", query, err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return 0, newQueryError("insert_record", query, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, newQueryError("insert_record", query, err)
	}
	return id, nil
}

// UpdateRecord sets fields on the row whose primary key equals id and
// returns the affected row count. A missing id affects zero rows.
func (r *Repository) UpdateRecord(ctx context.Context, table string, id any, fields Fields) (int64, error) {
	if err := r.checkTable(table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, &ValidationError{Field: "fields", Err: ErrEmptyFields}
	}

	stmt, err := r.builder().update(table, id, fields)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "update_record", stmt)
}

// DeleteRecord removes the row whose primary key equals id and returns the
// affected row count. A missing id affects zero rows.
func (r *Repository) DeleteRecord(ctx context.Context, table string, id any) (int64, error) {
	if err := r.checkTable(table); err != nil {
		return 0, err
	}
	return r.exec(ctx, "delete_record", r.builder().delete(table, id))
}

func (r *Repository) exec(ctx context.Context, op string, stmt Statement) (int64, error) {
	query := r.render(stmt)
	res, err := r.db.ExecContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return 0, newQueryError(op, query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newQueryError(op, query, err)
	}
	return n, nil
}
