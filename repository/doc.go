// Package repository runs generic record queries against any table over a
// shared Bun connection pool. Rows are decoded into caller-supplied struct
// types by column name, writes take a column-to-value map, and every value
// is bound as a query parameter.
package repository
