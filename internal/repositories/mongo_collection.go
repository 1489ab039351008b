package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection implements Relations and the shared CRUD plumbing for one
// MongoDB collection
type mongoCollection struct {
	collection *mongo.Collection
	name       string
}

func newMongoCollection(db *mongo.Database, name string) mongoCollection {
	return mongoCollection{
		collection: db.Collection(name),
		name:       name,
	}
}

// insert stores doc and returns the generated id
func (c mongoCollection) insert(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	result, err := c.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected %s id type %T", c.name, result.InsertedID)
	}
	return id, nil
}

// findOne decodes the first match into out. Reports false when nothing matched.
func (c mongoCollection) findOne(ctx context.Context, filter bson.M, out interface{}) (bool, error) {
	err := c.collection.FindOne(ctx, filter).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find %s: %w", c.name, err)
	}
	return true, nil
}

// set applies a $set to one document, stamping updated_at
func (c mongoCollection) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := c.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update %s: %w", c.name, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c mongoCollection) delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.name, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c mongoCollection) exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := c.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return count > 0, nil
}

// conditionalUpdate runs update against id only when cond also matches. A
// miss is resolved into ErrNotFound or "condition failed".
func (c mongoCollection) conditionalUpdate(ctx context.Context, id primitive.ObjectID, cond bson.M, update bson.M) (bool, error) {
	filter := bson.M{"_id": id}
	for k, v := range cond {
		filter[k] = v
	}

	result, err := c.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", c.name, err)
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	found, err := c.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrNotFound
	}
	return false, nil
}

// AddMember appends member to field unless already present
func (c mongoCollection) AddMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error) {
	return c.conditionalUpdate(ctx, id,
		bson.M{string(field): bson.M{"$ne": member}},
		bson.M{
			"$push": bson.M{string(field): member},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
}

// AddMembers appends all members unless any of them is already present
func (c mongoCollection) AddMembers(ctx context.Context, id primitive.ObjectID, field Field, members []primitive.ObjectID) (bool, error) {
	if len(members) == 0 {
		return true, nil
	}
	return c.conditionalUpdate(ctx, id,
		bson.M{string(field): bson.M{"$nin": members}},
		bson.M{
			"$push": bson.M{string(field): bson.M{"$each": members}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
}

// RemoveMember pulls member from field if present
func (c mongoCollection) RemoveMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error) {
	return c.conditionalUpdate(ctx, id,
		bson.M{string(field): member},
		bson.M{
			"$pull": bson.M{string(field): member},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
}

// RemoveMemberFromAll pulls member from field on every document holding it
func (c mongoCollection) RemoveMemberFromAll(ctx context.Context, field Field, member primitive.ObjectID) (int64, error) {
	result, err := c.collection.UpdateMany(ctx,
		bson.M{string(field): member},
		bson.M{"$pull": bson.M{string(field): member}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pull %s from %s: %w", field, c.name, err)
	}
	return result.ModifiedCount, nil
}

// AdjustCounter adds delta in a single pipeline update so concurrent callers
// never lose increments and the value never drops below zero
func (c mongoCollection) AdjustCounter(ctx context.Context, id primitive.ObjectID, field Field, delta int64) error {
	f := string(field)
	sum := bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + f, 0}}}, delta}}}
	clamped := bson.D{{Key: "$max", Value: bson.A{0, sum}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: f, Value: clamped}}}},
	}

	result, err := c.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to adjust %s on %s: %w", f, c.name, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// regexFilter builds a case-insensitive substring match on any of fields
func regexFilter(search string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	clauses := make([]bson.M, 0, len(fields))
	for _, field := range fields {
		clauses = append(clauses, bson.M{field: pattern})
	}
	return bson.M{"$or": clauses}
}

// andFilter combines clauses, dropping empty ones
func andFilter(clauses ...bson.M) bson.M {
	nonEmpty := make([]bson.M, 0, len(clauses))
	for _, clause := range clauses {
		if len(clause) > 0 {
			nonEmpty = append(nonEmpty, clause)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return bson.M{}
	case 1:
		return nonEmpty[0]
	default:
		return bson.M{"$and": nonEmpty}
	}
}

// sortDocument converts sort keys into a bson sort document ending in _id
func sortDocument(keys []SortKey) bson.D {
	sort := make(bson.D, 0, len(keys)+1)
	for _, key := range keys {
		direction := 1
		if key.Descending {
			direction = -1
		}
		sort = append(sort, bson.E{Key: key.Field, Value: direction})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// findPage counts all matches and returns the requested window of them
func findPage[T any](ctx context.Context, c mongoCollection, filter bson.M, q Query, defaultSort []SortKey) ([]*T, int64, error) {
	total, err := c.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}

	sortKeys := q.Sort
	if len(sortKeys) == 0 {
		sortKeys = defaultSort
	}
	opts := options.Find().SetSort(sortDocument(sortKeys))
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := c.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find %s: %w", c.name, err)
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s document: %w", c.name, err)
		}
		docs = append(docs, &doc)
	}

	return docs, total, cursor.Err()
}
