package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memorySchema tells a memoryCollection how to reach into one document type
type memorySchema[T any] struct {
	id    func(*T) primitive.ObjectID
	setID func(*T, primitive.ObjectID)
	touch func(*T, time.Time)
	// ids returns the membership set stored under field, nil if unknown
	ids func(*T, Field) *[]primitive.ObjectID
	// counter returns the counter stored under field, nil if unknown
	counter     func(*T, Field) *int64
	matches     func(*T, Query) bool
	sortValue   func(*T, string) interface{}
	defaultSort []SortKey
	// conflicts reports whether two documents collide on a unique key
	conflicts func(a, b *T) bool
}

// memoryCollection keeps documents of one type in a map guarded by a mutex.
// Documents are cloned on the way in and out so callers never share state
// with the store.
type memoryCollection[T any] struct {
	mu     sync.RWMutex
	name   string
	schema memorySchema[T]
	docs   map[primitive.ObjectID]*T
}

func newMemoryCollection[T any](name string, schema memorySchema[T]) *memoryCollection[T] {
	return &memoryCollection[T]{
		name:   name,
		schema: schema,
		docs:   make(map[primitive.ObjectID]*T),
	}
}

// clone deep-copies a document through its bson encoding
func clone[T any](doc *T) *T {
	data, err := bson.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("memory store: marshal %T: %v", doc, err))
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memory store: unmarshal %T: %v", doc, err))
	}
	return &out
}

func (c *memoryCollection[T]) conflictLocked(doc *T) bool {
	if c.schema.conflicts == nil {
		return false
	}
	id := c.schema.id(doc)
	for otherID, other := range c.docs {
		if otherID != id && c.schema.conflicts(doc, other) {
			return true
		}
	}
	return false
}

func (c *memoryCollection[T]) insert(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := clone(doc)
	id := primitive.NewObjectID()
	c.schema.setID(stored, id)
	if c.conflictLocked(stored) {
		return ErrDuplicate
	}
	c.docs[id] = stored
	c.schema.setID(doc, id)
	return nil
}

func (c *memoryCollection[T]) get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

func (c *memoryCollection[T]) first(ctx context.Context, match func(*T) bool) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.docs {
		if match(doc) {
			return clone(doc), nil
		}
	}
	return nil, nil
}

func (c *memoryCollection[T]) find(ctx context.Context, q Query) ([]*T, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make([]*T, 0)
	for _, doc := range c.docs {
		if c.schema.matches(doc, q) {
			matched = append(matched, doc)
		}
	}

	keys := q.Sort
	if len(keys) == 0 {
		keys = c.schema.defaultSort
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return c.less(matched[i], matched[j], keys)
	})

	total := int64(len(matched))
	start := q.Skip
	switch {
	case start < 0:
		start = 0
	case start > total:
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]*T, 0, end-start)
	for _, doc := range matched[start:end] {
		out = append(out, clone(doc))
	}
	return out, total, nil
}

func (c *memoryCollection[T]) less(a, b *T, keys []SortKey) bool {
	for _, key := range keys {
		cmp := compareValues(c.schema.sortValue(a, key.Field), c.schema.sortValue(b, key.Field))
		if cmp == 0 {
			continue
		}
		if key.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	idA, idB := c.schema.id(a), c.schema.id(b)
	return strings.Compare(idA.Hex(), idB.Hex()) < 0
}

func compareValues(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

// mutate applies fn to the stored document under the write lock. fn runs on
// a copy which replaces the original only if fn reports a change.
func (c *memoryCollection[T]) mutate(ctx context.Context, id primitive.ObjectID, fn func(*T) (bool, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	working := clone(stored)
	changed, err := fn(working)
	if err != nil || !changed {
		return false, err
	}
	if c.conflictLocked(working) {
		return false, ErrDuplicate
	}
	c.schema.touch(working, time.Now())
	c.docs[id] = working
	return true, nil
}

// mutateAll applies fn to every stored document and counts the changed ones
func (c *memoryCollection[T]) mutateAll(ctx context.Context, fn func(*T) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var modified int64
	now := time.Now()
	for id, stored := range c.docs {
		working := clone(stored)
		if fn(working) {
			c.schema.touch(working, now)
			c.docs[id] = working
			modified++
		}
	}
	return modified, nil
}

func (c *memoryCollection[T]) remove(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

func (c *memoryCollection[T]) set(doc *T, field Field) (*[]primitive.ObjectID, error) {
	ids := c.schema.ids(doc, field)
	if ids == nil {
		return nil, fmt.Errorf("%s has no set %q", c.name, field)
	}
	return ids, nil
}

func (c *memoryCollection[T]) AddMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error) {
	return c.AddMembers(ctx, id, field, []primitive.ObjectID{member})
}

func (c *memoryCollection[T]) AddMembers(ctx context.Context, id primitive.ObjectID, field Field, members []primitive.ObjectID) (bool, error) {
	if len(members) == 0 {
		return true, nil
	}
	return c.mutate(ctx, id, func(doc *T) (bool, error) {
		ids, err := c.set(doc, field)
		if err != nil {
			return false, err
		}
		for _, member := range members {
			for _, existing := range *ids {
				if existing == member {
					return false, nil
				}
			}
		}
		*ids = append(*ids, members...)
		return true, nil
	})
}

func (c *memoryCollection[T]) RemoveMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error) {
	return c.mutate(ctx, id, func(doc *T) (bool, error) {
		ids, err := c.set(doc, field)
		if err != nil {
			return false, err
		}
		return pullID(ids, member), nil
	})
}

func (c *memoryCollection[T]) RemoveMemberFromAll(ctx context.Context, field Field, member primitive.ObjectID) (int64, error) {
	return c.mutateAll(ctx, func(doc *T) bool {
		ids := c.schema.ids(doc, field)
		return ids != nil && pullID(ids, member)
	})
}

func (c *memoryCollection[T]) AdjustCounter(ctx context.Context, id primitive.ObjectID, field Field, delta int64) error {
	_, err := c.mutate(ctx, id, func(doc *T) (bool, error) {
		counter := c.schema.counter(doc, field)
		if counter == nil {
			return false, fmt.Errorf("%s has no counter %q", c.name, field)
		}
		*counter += delta
		if *counter < 0 {
			*counter = 0
		}
		return true, nil
	})
	return err
}

// pullID removes every occurrence of id, reporting whether any was present
func pullID(ids *[]primitive.ObjectID, id primitive.ObjectID) bool {
	kept := (*ids)[:0]
	found := false
	for _, candidate := range *ids {
		if candidate == id {
			found = true
			continue
		}
		kept = append(kept, candidate)
	}
	*ids = kept
	return found
}

// containsFold reports whether any of fields contains search, ignoring case
func containsFold(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
