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

package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const ProductsTable = "products"

type Product struct {
	bun.BaseModel `bun:"table:products,discard_unknown_columns"`

	ID          uint64          `bun:"id,pk" json:"id"`
	Name        string          `bun:"name" json:"name"`
	Price       decimal.Decimal `bun:"price" json:"price"`
	Description *string         `bun:"description" json:"description,omitempty"`
}
