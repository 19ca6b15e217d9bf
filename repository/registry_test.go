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
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/tablerepo/models"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(models.PostsTable, models.Post{}))
	require.NoError(t, reg.Register(models.ProductsTable, &models.Product{}))
	require.NoError(t, reg.Register("audit_log", nil))

	assert.Equal(t, []string{"audit_log", "products", "wpbi_posts"}, reg.Tables())
	assert.True(t, reg.Allowed("products"))
	assert.False(t, reg.Allowed("PRODUCTS"))
	assert.Equal(t, reflect.TypeOf(models.Post{}), reg.RecordType(models.PostsTable))
	assert.Equal(t, reflect.TypeOf(models.Product{}), reg.RecordType(models.ProductsTable))
	assert.Nil(t, reg.RecordType("audit_log"))
	assert.Nil(t, reg.RecordType("unknown"))
}

func TestRegistryRejectsInvalidEntries(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register("bad name", models.Post{})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	err = reg.Register("numbers", 42)
	assert.Error(t, err)
	assert.Empty(t, reg.Tables())
}
