// Package storage defines the document store the domain services persist
// through. Backends live in the sqlite and mongo subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/models"
)

// Op is a condition operator.
type Op int

const (
	// Eq matches documents whose field equals the value.
	Eq Op = iota
	// Contains matches documents whose array field holds the value.
	Contains
	// Match is a case-insensitive substring match on a string field.
	Match
	// Missing matches documents where the field is absent, null or empty.
	Missing
	// Present is the negation of Missing.
	Present
	// In matches documents whose field equals one of the []string values.
	In
)

// Cond is a single predicate over a document field addressed by its
// serialized name ("projectId", "memberIds", ...).
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Order sorts results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents. All conditions in All must hold and, when Any
// is non-empty, at least one of Any must hold too.
type Query struct {
	All  []Cond
	Any  []Cond
	Sort []Order
}

// Where starts a query from AND conditions.
func Where(conds ...Cond) Query {
	return Query{All: conds}
}

// OrderBy appends a sort order.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Sort = append(append([]Order(nil), q.Sort...), Order{Field: field, Desc: desc})
	return q
}

// Or appends alternative conditions.
func (q Query) Or(conds ...Cond) Query {
	q.Any = append(append([]Cond(nil), q.Any...), conds...)
	return q
}

func EqualTo(field string, v any) Cond    { return Cond{Field: field, Op: Eq, Value: v} }
func Includes(field string, v any) Cond   { return Cond{Field: field, Op: Contains, Value: v} }
func Like(field, text string) Cond        { return Cond{Field: field, Op: Match, Value: text} }
func Unset(field string) Cond             { return Cond{Field: field, Op: Missing} }
func IsSet(field string) Cond             { return Cond{Field: field, Op: Present} }
func OneOf(field string, v []string) Cond { return Cond{Field: field, Op: In, Value: v} }

// Collection is a persistent set of documents of one kind keyed by ID.
//
// Get, FindOne, Update and Delete return an error wrapping
// models.ErrNotFound when nothing matches. Insert and Update wrap
// models.ErrConflict on unique key violations. Insert assigns an ID when
// the document has none.
type Collection[T models.Entity] interface {
	Insert(ctx context.Context, doc T) error
	Get(ctx context.Context, id string) (T, error)
	FindOne(ctx context.Context, q Query) (T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, doc T) error
	Delete(ctx context.Context, id string) error
}

// Store bundles the six collections.
type Store interface {
	Users() Collection[*models.User]
	Projects() Collection[*models.Project]
	Sprints() Collection[*models.Sprint]
	Tasks() Collection[*models.Task]
	Statuses() Collection[*models.Status]
	Workflows() Collection[*models.Workflow]
	Close() error
}

// Upsert applies set to the document matching the natural key query and
// stores it, or applies set to a fresh document and inserts it when none
// matches. Fields set does not touch keep their stored values.
func Upsert[T models.Entity](ctx context.Context, c Collection[T], key Query, fresh func() T, set func(T)) (T, error) {
	doc, err := c.FindOne(ctx, key)
	switch {
	case errors.Is(err, models.ErrNotFound):
		doc = fresh()
		set(doc)
		err = c.Insert(ctx, doc)
	case err != nil:
		return doc, fmt.Errorf("upsert lookup: %w", err)
	default:
		set(doc)
		err = c.Update(ctx, doc)
	}
	return doc, err
}
