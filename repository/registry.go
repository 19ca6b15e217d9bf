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
	"reflect"
	"sort"
	"sync"
)

// Registry is an allow-list of tables a Repository may touch. Each table is
// registered together with the record type it decodes into.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]reflect.Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]reflect.Type)}
}

// Register allows table. model is a value or pointer of the record type; it
// may be nil when the table is only written to.
func (r *Registry) Register(table string, model any) error {
	if err := ValidateIdentifier(table); err != nil {
		return &ValidationError{Field: "table", Value: table, Err: err}
	}

	var typ reflect.Type
	if model != nil {
		typ = reflect.TypeOf(model)
		for typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ.Kind() != reflect.Struct {
			return fmt.Errorf("record type for table %s must be a struct, got %s", table, typ)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = typ
	return nil
}

// Allowed reports whether table was registered.
func (r *Registry) Allowed(table string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[table]
	return ok
}

// RecordType returns the struct type registered for table, or nil.
func (r *Registry) RecordType(table string) reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[table]
}

// Tables returns the registered table names in ascending order.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
