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
	"errors"
	"fmt"

	"github.com/tomoncle/tablerepo/database"
)

var (
	// ErrNoRecordsFound matches every *NoRecordsFoundError.
	ErrNoRecordsFound = errors.New("no records found")
	// ErrNoRecordFound matches every *NoRecordFoundError.
	ErrNoRecordFound = errors.New("no record found")

	ErrNotConnected        = errors.New("database is not initialized")
	ErrEmptyFields         = errors.New("field map is empty")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrTableNotAllowed     = errors.New("table is not registered")
	ErrPlaceholderMismatch = errors.New("placeholder count does not match argument count")
)

// QueryError wraps any failure reported by the driver while executing or
// decoding a statement.
type QueryError struct {
	Op    string
	Query string
	Kind  database.SQLError
	Err   error
}

func newQueryError(op, query string, err error) *QueryError {
	kind, _ := database.ClassifyError(err)
	return &QueryError{Op: op, Query: query, Kind: kind, Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("database query failed: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NoRecordsFoundError is returned by FetchAll when the query matched no rows.
type NoRecordsFoundError struct {
	Table string
}

func (e *NoRecordsFoundError) Error() string {
	return fmt.Sprintf("no records found in table %s", e.Table)
}

func (e *NoRecordsFoundError) Is(target error) bool { return target == ErrNoRecordsFound }

// NoRecordFoundError is returned by FetchOne when no row has the id.
type NoRecordFoundError struct {
	Table string
	ID    any
}

func (e *NoRecordFoundError) Error() string {
	return fmt.Sprintf("no record found with id %v", e.ID)
}

func (e *NoRecordFoundError) Is(target error) bool { return target == ErrNoRecordFound }

// ValidationError rejects an input before any statement is built.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is either of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoRecordFound) || errors.Is(err, ErrNoRecordsFound)
}
