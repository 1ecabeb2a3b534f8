// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows per page; MaxPageSize caps what a
// caller may ask for.
const (
	PageSize    = 50
	MaxPageSize = 200
)

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // ascending, cursor compared with "gt"
	Backward                  // descending, cursor compared with "lt"
)

// Request is what a caller asked for: at most one of Before/After, plus a
// page size.
type Request struct {
	Before string
	After  string
	Limit  int
}

// FromRequest reads ?before=, ?after= and ?limit= from r.
func FromRequest(r *http.Request) Request {
	return Request{
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Limit:  ParseLimit(query.Get(r, "limit")),
	}
}

// ParseLimit turns a limit parameter into a page size within
// [1, MaxPageSize], using PageSize when s is empty or invalid.
func ParseLimit(s string) int {
	if s == "" {
		return PageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// KeysetConfig holds the decoded cursor and sort for one page query.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 ascending, -1 descending
	Cursor    *wafflemongo.Cursor
	Limit     int
}

// ConfigureKeyset decodes the cursor in req. An undecodable cursor is
// treated as absent so a stale link yields the first page.
func ConfigureKeyset(req Request) KeysetConfig {
	cfg := KeysetConfig{
		Direction: Forward,
		SortOrder: 1,
		Limit:     req.Limit,
	}
	if cfg.Limit <= 0 {
		cfg.Limit = PageSize
	}

	if req.Before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(req.Before); ok {
			cfg.Cursor = &c
		}
	} else if req.After != "" {
		if c, ok := wafflemongo.DecodeCursor(req.After); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sets sort (sortField, then _id) and a limit one past the page
// size so TrimPage can tell whether another page exists.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(cfg.Limit + 1))
}

// KeysetWindow returns the filter clause selecting rows past the cursor, or
// nil when there is no cursor.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Result reports whether neighbouring pages exist.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage cuts the look-ahead row from rows (fetched with ApplyToFind) and
// restores ascending order for backward pages.
func TrimPage[T any](rows *[]T, cfg KeysetConfig) Result {
	var res Result
	over := len(*rows) > cfg.Limit

	if cfg.Direction == Backward {
		if over {
			*rows = (*rows)[:cfg.Limit]
			res.HasPrev = true
		}
		Reverse(*rows)
		res.HasNext = true
		return res
	}

	if over {
		*rows = (*rows)[:cfg.Limit]
		res.HasNext = true
	}
	res.HasPrev = cfg.Cursor != nil
	return res
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes cursors for the first and last rows of a page.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first := rows[0]
	last := rows[len(rows)-1]
	prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
	next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	return prev, next
}
