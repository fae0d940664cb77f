// Package domain contains the core entities of the review engine:
// review items, the append-only review log, and their validation rules.
package domain
