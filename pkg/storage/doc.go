// Package storage loads fetch results into PostgreSQL.
//
// Rows are modelled as a Table (name, columns, row values). A table can be
// rendered as a literal INSERT script for dry runs, or written through a
// pgx pool with a parameterized multi-row INSERT inside one transaction.
package storage
