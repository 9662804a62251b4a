package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker/internal/models"
	"tracker/internal/storage"
)

type collection[T models.Entity] struct {
	coll *mongo.Collection
	kind string
}

func newCollection[T models.Entity](coll *mongo.Collection, kind string) *collection[T] {
	return &collection[T]{coll: coll, kind: kind}
}

func (c *collection[T]) Insert(ctx context.Context, doc T) error {
	if doc.EntityID() == "" {
		doc.SetEntityID(uuid.NewString())
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return c.writeErr("insert", err)
	}
	return nil
}

func (c *collection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("%s %s: %w", c.kind, id, models.ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("get %s: %w", c.kind, err)
	}
	return doc, nil
}

func (c *collection[T]) FindOne(ctx context.Context, q storage.Query) (T, error) {
	var doc T
	opts := options.FindOne().SetSort(sortDoc(q))
	err := c.coll.FindOne(ctx, filterDoc(q), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("%s: %w", c.kind, models.ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("find %s: %w", c.kind, err)
	}
	return doc, nil
}

func (c *collection[T]) Find(ctx context.Context, q storage.Query) ([]T, error) {
	cur, err := c.coll.Find(ctx, filterDoc(q), options.Find().SetSort(sortDoc(q)))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.kind, err)
	}
	defer cur.Close(ctx)

	var docs []T
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.kind, err)
		}
		docs = append(docs, doc)
	}
	return docs, cur.Err()
}

func (c *collection[T]) Count(ctx context.Context, q storage.Query) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filterDoc(q))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	return n, nil
}

func (c *collection[T]) Update(ctx context.Context, doc T) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": doc.EntityID()}, doc)
	if err != nil {
		return c.writeErr("update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.kind, doc.EntityID(), models.ErrNotFound)
	}
	return nil
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.kind, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.kind, id, models.ErrNotFound)
	}
	return nil
}

func (c *collection[T]) writeErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", op, c.kind, models.ErrConflict)
	}
	return fmt.Errorf("%s %s: %w", op, c.kind, err)
}

func key(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func condDoc(cond storage.Cond) bson.M {
	k := key(cond.Field)
	switch cond.Op {
	case storage.Match:
		text, _ := cond.Value.(string)
		return bson.M{k: bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}}
	case storage.Missing:
		return bson.M{k: bson.M{"$in": bson.A{nil, ""}}}
	case storage.Present:
		return bson.M{k: bson.M{"$nin": bson.A{nil, ""}}}
	case storage.In:
		values, _ := cond.Value.([]string)
		if values == nil {
			values = []string{}
		}
		return bson.M{k: bson.M{"$in": values}}
	default:
		// equality on an array field already matches any element
		return bson.M{k: cond.Value}
	}
}

func filterDoc(q storage.Query) bson.M {
	var and bson.A
	for _, cond := range q.All {
		and = append(and, condDoc(cond))
	}
	if len(q.Any) > 0 {
		var or bson.A
		for _, cond := range q.Any {
			or = append(or, condDoc(cond))
		}
		and = append(and, bson.M{"$or": or})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func sortDoc(q storage.Query) bson.D {
	sort := bson.D{}
	for _, o := range q.Sort {
		dir := 1
		if o.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: key(o.Field), Value: dir})
	}
	// natural order is not guaranteed; fall back to _id for stable output
	return append(sort, bson.E{Key: "_id", Value: 1})
}
