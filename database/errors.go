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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError is a driver-independent classification of a database failure.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	SyntaxErr
	ConnectionErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no rows",
	NoColumnErr:                 "no such column",
	NoTableErr:                  "no such table",
	DuplicateKeyErr:             "duplicate key",
	NotNullViolationErr:         "not null violation",
	ForeignKeyViolationErr:      "foreign key violation",
	CheckConstraintViolationErr: "check constraint violation",
	DataTruncatedErr:            "data truncated",
	InvalidTypeCastErr:          "invalid type cast",
	SyntaxErr:                   "syntax error",
	ConnectionErr:               "connection error",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

// MySQL server error numbers.
var mysqlErrors = map[uint16]SQLError{
	1054: NoColumnErr,
	1146: NoTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1364: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
	1366: InvalidTypeCastErr,
	1064: SyntaxErr,
}

// Postgres SQLSTATE codes.
var postgresErrors = map[pq.ErrorCode]SQLError{
	"42703": NoColumnErr,
	"42P01": NoTableErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"22P02": InvalidTypeCastErr,
	"42601": SyntaxErr,
}

// Message fragments for drivers without structured errors (SQLite).
var messageErrors = []struct {
	fragment string
	kind     SQLError
}{
	{"no such column", NoColumnErr},
	{"has no column named", NoColumnErr},
	{"no such table", NoTableErr},
	{"unique constraint failed", DuplicateKeyErr},
	{"not null constraint failed", NotNullViolationErr},
	{"foreign key constraint failed", ForeignKeyViolationErr},
	{"check constraint failed", CheckConstraintViolationErr},
	{"datatype mismatch", InvalidTypeCastErr},
	{"syntax error", SyntaxErr},
	{"connection refused", ConnectionErr},
	{"bad connection", ConnectionErr},
}

// ClassifyError maps a driver error onto a SQLError. The boolean reports
// whether err was recognized as a database error at all.
func ClassifyError(err error) (SQLError, bool) {
	if err == nil {
		return UnknownErr, false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NoRowsErr, true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrors[mysqlErr.Number]; ok {
			return kind, true
		}
		return UnknownErr, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresErrors[pqErr.Code]; ok {
			return kind, true
		}
		return UnknownErr, true
	}

	if errors.Is(err, mysql.ErrInvalidConn) {
		return ConnectionErr, true
	}

	s := strings.ToLower(err.Error())
	for _, m := range messageErrors {
		if strings.Contains(s, m.fragment) {
			return m.kind, true
		}
	}
	return UnknownErr, false
}
