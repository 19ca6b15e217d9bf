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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  SQLError
		known bool
	}{
		{"nil", nil, UnknownErr, false},
		{"no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), NoRowsErr, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}, DuplicateKeyErr, true},
		{"mysql missing table", &mysql.MySQLError{Number: 1146}, NoTableErr, true},
		{"mysql unknown number", &mysql.MySQLError{Number: 9999}, UnknownErr, true},
		{"mysql bad conn", mysql.ErrInvalidConn, ConnectionErr, true},
		{"postgres unique", &pq.Error{Code: "23505"}, DuplicateKeyErr, true},
		{"postgres undefined column", fmt.Errorf("wrapped: %w", &pq.Error{Code: "42703"}), NoColumnErr, true},
		{"postgres other", &pq.Error{Code: "57014"}, UnknownErr, true},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: products.id (1555)"), DuplicateKeyErr, true},
		{"sqlite missing table", errors.New("SQL logic error: no such table: missing (1)"), NoTableErr, true},
		{"sqlite not null", errors.New("NOT NULL constraint failed: products.name"), NotNullViolationErr, true},
		{"unrelated", errors.New("boom"), UnknownErr, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, known := ClassifyError(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestSQLErrorString(t *testing.T) {
	assert.Equal(t, sqlErrorNames[DuplicateKeyErr], DuplicateKeyErr.String())
	assert.Equal(t, sqlErrorNames[UnknownErr], SQLError(-1).String())
}
