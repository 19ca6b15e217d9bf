// Package database provides connection management, DSN resolution for
// MySQL, PostgreSQL and SQLite, configuration loading, logging, query hooks,
// driver error classification and SQL script execution built on top of Bun.
package database
