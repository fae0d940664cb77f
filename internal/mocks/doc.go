// Package mocks provides in-memory implementations of the store
// interfaces for hermetic service and handler tests.
package mocks
