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

package tablerepo

import (
	"context"
	"sync"

	"github.com/tomoncle/tablerepo/database"
	"github.com/tomoncle/tablerepo/repository"
	"github.com/tomoncle/tablerepo/types"
)

type Service[T any] interface {
	// Table returns the table the service is bound to.
	Table() string

	// Get returns the record whose primary key equals id.
	Get(ctx context.Context, id any) (*T, error)

	// All returns the records matching opts.
	All(ctx context.Context, opts ...repository.FetchOption) ([]*T, error)

	// Page returns one page of records.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Count returns the number of records matching opts.
	Count(ctx context.Context, opts ...repository.FetchOption) (int, error)

	// Save inserts a record and returns its generated id.
	Save(ctx context.Context, fields repository.Fields) (int64, error)

	// Update modifies the record with the given id.
	Update(ctx context.Context, id any, fields repository.Fields) (int64, error)

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id any) (int64, error)
}

type baseServiceImpl[T any] struct {
	table string
	opts  []repository.Option
	lazy  bool

	mu   sync.Mutex
	repo *repository.Repository
}

// NewService returns a Service for table backed by repo.
func NewService[T any](repo *repository.Repository, table string) Service[T] {
	return &baseServiceImpl[T]{table: table, repo: repo}
}

// NewDefaultService returns a Service for table that builds its repository
// from the global database connection on first use. Calls made before
// database.InitDB fail with repository.ErrNotConnected and are retried
// against the global connection on the next call.
func NewDefaultService[T any](table string, opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{table: table, opts: opts, lazy: true}
}

func (s *baseServiceImpl[T]) baseRepo() *repository.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil || (s.lazy && s.repo.DB() == nil) {
		s.repo = repository.New(database.GetDB(), s.opts...)
	}
	return s.repo
}

func (s *baseServiceImpl[T]) Table() string { return s.table }

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return repository.FetchOne[T](ctx, s.baseRepo(), s.table, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context, opts ...repository.FetchOption) ([]*T, error) {
	return repository.FetchAll[T](ctx, s.baseRepo(), s.table, opts...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return repository.FetchPage[T](ctx, s.baseRepo(), s.table, page)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, opts ...repository.FetchOption) (int, error) {
	return repository.Count(ctx, s.baseRepo(), s.table, opts...)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, fields repository.Fields) (int64, error) {
	return s.baseRepo().InsertRecord(ctx, s.table, fields)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id any, fields repository.Fields) (int64, error) {
	return s.baseRepo().UpdateRecord(ctx, s.table, id, fields)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) (int64, error) {
	return s.baseRepo().DeleteRecord(ctx, s.table, id)
}
