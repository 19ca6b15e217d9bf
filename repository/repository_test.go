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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/tablerepo/database"
	"github.com/tomoncle/tablerepo/models"
	"github.com/tomoncle/tablerepo/types"
)

const testSchema = `
CREATE TABLE products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    price DECIMAL(10, 2) NOT NULL,
    description TEXT
);

-- posts carry more columns than models.Post decodes
CREATE TABLE wpbi_posts (
    ID INTEGER PRIMARY KEY AUTOINCREMENT,
    post_title TEXT NOT NULL DEFAULT '',
    post_content TEXT NOT NULL DEFAULT '',
    post_type TEXT,
    post_status TEXT NOT NULL DEFAULT 'publish'
);
`

type recordingLogger struct {
	database.NopLogger
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	db := bun.NewDB(sqlDB, sqlitedialect.New(), bun.WithDiscardUnknownColumns())
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewScriptRunner(db, database.NopLogger{}).ExecScript(context.Background(), testSchema)
	require.NoError(t, err)
	return db
}

func newTestRepository(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	opts = append([]Option{WithLogger(database.NopLogger{})}, opts...)
	return New(newTestDB(t), opts...)
}

func insertProducts(t *testing.T, r *Repository, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		id, err := r.InsertRecord(context.Background(), models.ProductsTable, Fields{
			"name":  fmt.Sprintf("product-%d", i),
			"price": fmt.Sprintf("%d.50", i),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestInsertThenFetchOne(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	id, err := r.InsertRecord(ctx, models.ProductsTable, Fields{
		"name":        "Widget",
		"price":       "9.99",
		"description": "A widget",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	product, err := FetchOne[models.Product](ctx, r, models.ProductsTable, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(id), product.ID)
	assert.Equal(t, "Widget", product.Name)
	assert.True(t, decimal.RequireFromString("9.99").Equal(product.Price), product.Price.String())
	require.NotNil(t, product.Description)
	assert.Equal(t, "A widget", *product.Description)
}

func TestInsertLeavesOmittedColumnsNull(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	id, err := r.InsertRecord(ctx, models.ProductsTable, Fields{"name": "Bare", "price": "1"})
	require.NoError(t, err)

	product, err := FetchOne[models.Product](ctx, r, models.ProductsTable, id)
	require.NoError(t, err)
	assert.Nil(t, product.Description)
}

func TestUpdateRecord(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	ids := insertProducts(t, r, 2)

	n, err := r.UpdateRecord(ctx, models.ProductsTable, ids[0], Fields{"name": "Renamed", "price": "3.25"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	product, err := FetchOne[models.Product](ctx, r, models.ProductsTable, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Renamed", product.Name)
	assert.True(t, decimal.RequireFromString("3.25").Equal(product.Price))

	other, err := FetchOne[models.Product](ctx, r, models.ProductsTable, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "product-2", other.Name)
}

func TestUpdateMissingIDAffectsNothing(t *testing.T) {
	r := newTestRepository(t)

	n, err := r.UpdateRecord(context.Background(), models.ProductsTable, 999, Fields{"name": "ghost"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	ids := insertProducts(t, r, 1)

	n, err := r.DeleteRecord(ctx, models.ProductsTable, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = FetchOne[models.Product](ctx, r, models.ProductsTable, ids[0])
	var notFound *NoRecordFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ids[0], notFound.ID)

	n, err = r.DeleteRecord(ctx, models.ProductsTable, ids[0])
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFetchOneNotFound(t *testing.T) {
	r := newTestRepository(t)

	product, err := FetchOne[models.Product](context.Background(), r, models.ProductsTable, 999)
	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrNoRecordFound)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "no record found with id 999")
}

func TestFetchAllEmptyTable(t *testing.T) {
	r := newTestRepository(t)

	items, err := FetchAll[models.Product](context.Background(), r, models.ProductsTable)
	assert.Nil(t, items)

	var notFound *NoRecordsFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, models.ProductsTable, notFound.Table)
	assert.ErrorIs(t, err, ErrNoRecordsFound)
	assert.EqualError(t, err, "no records found in table products")
}

func TestFetchAllLimitOffset(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	ids := insertProducts(t, r, 5)

	all, err := FetchAll[models.Product](ctx, r, models.ProductsTable, WithOrder("id"))
	require.NoError(t, err)
	assert.Len(t, all, 5)

	window, err := FetchAll[models.Product](ctx, r, models.ProductsTable,
		WithOrder("id ASC"), WithLimit(2), WithOffset(1))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, uint64(ids[1]), window[0].ID)
	assert.Equal(t, uint64(ids[2]), window[1].ID)

	tail, err := FetchAll[models.Product](ctx, r, models.ProductsTable, WithOrder("id"), WithOffset(3))
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(ids[3]), tail[0].ID)

	desc, err := FetchAll[models.Product](ctx, r, models.ProductsTable, WithOrder("id desc"), WithLimit(1))
	require.NoError(t, err)
	require.Len(t, desc, 1)
	assert.Equal(t, uint64(ids[4]), desc[0].ID)

	_, err = FetchAll[models.Product](ctx, r, models.ProductsTable, WithOffset(5))
	assert.ErrorIs(t, err, ErrNoRecordsFound)
}

func TestFetchAllPostsByType(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t, WithPrimaryKey("ID"))

	for i, postType := range []string{"post", "page", "post", "revision", "post"} {
		_, err := r.InsertRecord(ctx, models.PostsTable, Fields{
			"post_title":   fmt.Sprintf("title %d", i),
			"post_content": "body",
			"post_type":    postType,
		})
		require.NoError(t, err)
	}

	posts, err := FetchAll[models.Post](ctx, r, models.PostsTable,
		WithCondition("post_type='post'"), WithLimit(10), WithOffset(0))
	require.NoError(t, err)
	assert.Len(t, posts, 3)
	for _, p := range posts {
		require.NotNil(t, p.PostType)
		assert.Equal(t, "post", *p.PostType)
	}

	bound, err := FetchAll[models.Post](ctx, r, models.PostsTable, WithCondition("post_type = ?", "page"))
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, "title 1", bound[0].PostTitle)

	post, err := FetchOne[models.Post](ctx, r, models.PostsTable, bound[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "body", post.PostContent)
	assert.Contains(t, post.String(), "PostType: page")
}

func TestConditionValuesAreBound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	insertProducts(t, r, 2)

	_, err := FetchAll[models.Product](ctx, r, models.ProductsTable,
		WithCondition("name = ?", "x' OR '1'='1"))
	assert.ErrorIs(t, err, ErrNoRecordsFound)

	count, err := Count(ctx, r, models.ProductsTable)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConditionWithQuotedQuestionMark(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	insertProducts(t, r, 2)
	_, err := r.InsertRecord(ctx, models.ProductsTable, Fields{"name": "Why?", "price": "2"})
	require.NoError(t, err)

	items, err := FetchAll[models.Product](ctx, r, models.ProductsTable, WithCondition("name = 'Why?'"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Why?", items[0].Name)

	items, err = FetchAll[models.Product](ctx, r, models.ProductsTable,
		WithCondition("name LIKE '%?%' AND price > ?", 1))
	require.NoError(t, err)
	require.Len(t, items, 1)

	count, err := Count(ctx, r, models.ProductsTable, WithCondition("name <> 'Why?'"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConditionPlaceholderMismatch(t *testing.T) {
	r := newTestRepository(t)

	_, err := FetchAll[models.Product](context.Background(), r, models.ProductsTable,
		WithCondition("name = ? AND price = ?", "only-one"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrPlaceholderMismatch)
}

func TestCountAndFetchPage(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	empty, err := FetchPage[models.Product](ctx, r, models.ProductsTable, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Items)

	insertProducts(t, r, 5)

	page, err := FetchPage[models.Product](ctx, r, models.ProductsTable,
		types.NewPageRequest(2, 2, nil, []string{"id"}))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "product-3", page.Items[0].Name)

	beyond, err := FetchPage[models.Product](ctx, r, models.ProductsTable, types.NewDefaultPageRequest(4, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, beyond.Total)
	assert.Empty(t, beyond.Items)

	filtered, err := FetchPage[models.Product](ctx, r, models.ProductsTable,
		types.NewPageRequest(1, 10, types.NewQueryFilter("price > ?", 3), []string{"price DESC"}))
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.Total)
	require.Len(t, filtered.Items, 3)
	assert.Equal(t, "product-5", filtered.Items[0].Name)

	count, err := Count(ctx, r, models.ProductsTable, WithCondition("price < ?", 2))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInvalidInputsAreRejected(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	_, err := FetchAll[models.Product](ctx, r, "products; DROP TABLE products")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = FetchOne[models.Product](ctx, r, "", 1)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = r.InsertRecord(ctx, models.ProductsTable, Fields{})
	assert.ErrorIs(t, err, ErrEmptyFields)

	_, err = r.UpdateRecord(ctx, models.ProductsTable, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyFields)

	_, err = r.DeleteRecord(ctx, "products WHERE 1=1 --", 1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "table", verr.Field)

	count, err := Count(ctx, r, models.ProductsTable)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNilDatabase(t *testing.T) {
	r := New(nil)

	_, err := FetchAll[models.Product](context.Background(), r, models.ProductsTable)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRegistryRestrictsTables(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	require.NoError(t, reg.Register(models.ProductsTable, &models.Product{}))
	r := newTestRepository(t, WithRegistry(reg))

	_, err := r.InsertRecord(ctx, models.ProductsTable, Fields{"name": "ok", "price": "1"})
	require.NoError(t, err)

	_, err = FetchAll[models.Post](ctx, r, models.PostsTable)
	assert.ErrorIs(t, err, ErrTableNotAllowed)

	_, err = r.DeleteRecord(ctx, models.PostsTable, 1)
	assert.ErrorIs(t, err, ErrTableNotAllowed)
}

func TestQueryErrorClassification(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	_, err := FetchAll[models.Product](ctx, r, "missing_table")
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "fetch_all", qerr.Op)
	assert.Equal(t, database.NoTableErr, qerr.Kind)
	assert.Contains(t, qerr.Query, `"missing_table"`)
	assert.True(t, strings.HasPrefix(err.Error(), "database query failed: "))

	ids := insertProducts(t, r, 1)
	_, err = r.InsertRecord(ctx, models.ProductsTable, Fields{"id": ids[0], "name": "dup", "price": "1"})
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, database.DuplicateKeyErr, qerr.Kind)

	_, err = r.UpdateRecord(ctx, models.ProductsTable, ids[0], Fields{"no_such_column": "x"})
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "update_record", qerr.Op)
	assert.Equal(t, database.NoColumnErr, qerr.Kind)
}

func TestRenderedSQLIsLogged(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	r := newTestRepository(t, WithLogger(logger))

	_, _ = FetchOne[models.Product](ctx, r, models.ProductsTable, 42)
	_, _ = FetchAll[models.Product](ctx, r, models.ProductsTable,
		WithCondition("name = ?", "Widget"), WithLimit(10), WithOffset(0))

	assert.Equal(t, []string{
		`SQL: SELECT * FROM "products" WHERE "id" = 42`,
		`SQL: SELECT * FROM "products" WHERE name = 'Widget' LIMIT 10 OFFSET 0`,
	}, logger.Messages())
}

func TestConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	ids := insertProducts(t, r, 4)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%len(ids)]
			p, err := FetchOne[models.Product](ctx, r, models.ProductsTable, id)
			if err != nil {
				errs <- err
				return
			}
			if p.ID != uint64(id) {
				errs <- fmt.Errorf("got id %d, want %d", p.ID, id)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
