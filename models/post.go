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

// Package models holds the record shapes decoded by the repository.
package models

import (
	"fmt"

	"github.com/uptrace/bun"
)

// PostsTable is the WordPress-style posts table the driver program reads.
const PostsTable = "wpbi_posts"

// PostsPrimaryKey is the id column of PostsTable. Postgres compares quoted
// names case-sensitively, so it is not interchangeable with "id".
const PostsPrimaryKey = "ID"

// Post is a row of the posts table. Columns not listed here are discarded
// when decoding a SELECT *.
type Post struct {
	bun.BaseModel `bun:"table:wpbi_posts,discard_unknown_columns"`

	ID          uint64  `bun:"ID,pk" json:"id"`
	PostTitle   string  `bun:"post_title" json:"post_title"`
	PostContent string  `bun:"post_content" json:"post_content"`
	PostType    *string `bun:"post_type" json:"post_type,omitempty"`
}

func (p *Post) String() string {
	postType := "<nil>"
	if p.PostType != nil {
		postType = *p.PostType
	}
	return fmt.Sprintf("Post{ID: %d, PostTitle: %q, PostType: %s, PostContent: %d bytes}",
		p.ID, p.PostTitle, postType, len(p.PostContent))
}
