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
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ScriptRunner executes plain SQL scripts statement by statement. It is used
// to bootstrap schemas and fixtures; each statement runs on its own.
type ScriptRunner struct {
	db     bun.IDB
	logger Logger
}

// ScriptResult reports the outcome of one script.
type ScriptResult struct {
	Source       string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
}

// NewScriptRunner returns a runner for db. A nil logger uses GetLogger.
func NewScriptRunner(db bun.IDB, logger Logger) *ScriptRunner {
	if logger == nil {
		logger = GetLogger()
	}
	return &ScriptRunner{db: db, logger: logger}
}

// ExecFile reads and executes the script at path.
func (s *ScriptRunner) ExecFile(ctx context.Context, path string) (*ScriptResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sql file: %w", err)
	}
	return s.exec(ctx, path, string(content))
}

// ExecScript executes the statements contained in script, stopping at the
// first failure.
func (s *ScriptRunner) ExecScript(ctx context.Context, script string) (*ScriptResult, error) {
	return s.exec(ctx, "<inline>", script)
}

func (s *ScriptRunner) exec(ctx context.Context, source, script string) (*ScriptResult, error) {
	start := time.Now()
	result := &ScriptResult{Source: source}

	for _, stmt := range SplitStatements(script) {
		res, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			s.logger.Error("SQL script statement failed", "source", source, "statement", stmt, "error", err)
			return result, fmt.Errorf("failed to execute SQL statement %q: %w", stmt, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			result.RowsAffected += n
		}
		result.Statements++
	}

	result.Duration = time.Since(start)
	s.logger.Info("SQL script executed", map[string]interface{}{
		"source":        source,
		"statements":    result.Statements,
		"rows_affected": result.RowsAffected,
		"duration":      result.Duration.String(),
	})
	return result, nil
}

// SplitStatements splits a script on lines ending with ';'. Blank lines and
// "--" comment lines are dropped; a trailing statement without ';' is kept.
// Lines have no length limit.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		stmt = strings.TrimSuffix(stmt, ";")
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
