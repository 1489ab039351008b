package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is one slice of a sorted result set
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

// NewPage builds a page. Pages is ceil(total/limit), so an empty result has
// zero pages.
func NewPage[T any](items []T, page, limit int, total int64) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{
		Items: items,
		Page:  page,
		Pages: pages,
		Total: total,
	}
}

// ContainsID reports whether id is in ids
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without any occurrence of id
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
