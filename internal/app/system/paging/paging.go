// internal/app/system/paging/paging.go

// Package paging reads history page parameters and trims look-ahead rows.
//
// History pages walk backwards in time: the caller fetches limit+1 rows
// older than a cursor, oldest first, and TrimOldest drops the extra one.
// Rows are ordered by (created_at, id), so rows sharing a timestamp are
// split between pages without loss.
package paging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
)

// ParseLimit reads the "limit" query parameter. Missing means 0, which the
// caller replaces with its default.
func ParseLimit(r *http.Request) (int, error) {
	s := query.Get(r, "limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("paging", "limit must be a non-negative integer")
	}
	return n, nil
}

// ParseBefore reads the "before" query parameter as an RFC 3339 timestamp.
// Missing means the zero time.
func ParseBefore(r *http.Request) (time.Time, error) {
	s := query.Get(r, "before")
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("paging", "before must be an RFC 3339 timestamp")
	}
	return t, nil
}

// Cursor marks a position in a history timeline. A row is older than the
// cursor when its timestamp is earlier, or equal with a smaller id. The zero
// Cursor means "from the newest row".
type Cursor struct {
	Before   time.Time `json:"before"`
	BeforeID string    `json:"beforeId,omitempty"`
}

// CursorAt is the cursor just before the row (createdAt, id).
func CursorAt(createdAt time.Time, id string) Cursor {
	return Cursor{Before: createdAt, BeforeID: id}
}

// IsZero reports whether c starts from the newest row.
func (c Cursor) IsZero() bool { return c.Before.IsZero() }

// Admits reports whether the row (createdAt, id) lies strictly before c.
func (c Cursor) Admits(createdAt time.Time, id string) bool {
	switch {
	case c.Before.IsZero():
		return true
	case createdAt.Before(c.Before):
		return true
	case createdAt.Equal(c.Before):
		return c.BeforeID != "" && id < c.BeforeID
	}
	return false
}

// ParseCursor reads the "before" and "beforeId" query parameters. beforeId
// is only meaningful together with before.
func ParseCursor(r *http.Request) (Cursor, error) {
	before, err := ParseBefore(r)
	if err != nil {
		return Cursor{}, err
	}
	id := query.Get(r, "beforeId")
	if id != "" && before.IsZero() {
		return Cursor{}, apperr.Invalid("paging", "beforeId requires before")
	}
	return Cursor{Before: before, BeforeID: id}, nil
}

// LimitPlusOne is the fetch size for a page of limit rows.
func LimitPlusOne(limit int) int { return limit + 1 }

// TrimOldest drops the first row when more than limit were fetched and
// reports whether older rows exist.
func TrimOldest[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) <= limit {
		return false
	}
	*rows = (*rows)[len(*rows)-limit:]
	return true
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
