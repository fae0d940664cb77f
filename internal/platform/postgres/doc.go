// Package postgres implements the store interfaces on PostgreSQL using
// database/sql with the pgx stdlib driver.
package postgres
