// Package service holds the mutation, lifecycle and aggregation rules for
// users, projects, sprints, tasks, statuses and workflows. Every operation
// loads the affected document, applies the change and writes it back
// through the injected storage.Store.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Service groups the per-entity services sharing one store.
type Service struct {
	Users     *Users
	Projects  *Projects
	Sprints   *Sprints
	Tasks     *Tasks
	Statuses  *Statuses
	Workflows *Workflows
}

type deps struct {
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// Option customizes New.
type Option func(*deps)

// WithClock replaces the wall clock used for timestamps and lifecycle dates.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// New wires all services to store.
func New(store storage.Store, hasher Hasher, logger zerolog.Logger, opts ...Option) *Service {
	d := &deps{
		store:  store,
		logger: logger.With().Str("component", "service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}

	s := &Service{
		Users:     &Users{deps: d, hasher: hasher},
		Projects:  &Projects{deps: d},
		Sprints:   &Sprints{deps: d},
		Tasks:     &Tasks{deps: d},
		Statuses:  &Statuses{deps: d},
		Workflows: &Workflows{deps: d},
	}
	s.Projects.sprints = s.Sprints
	s.Projects.tasks = s.Tasks
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

type toucher interface {
	Touch(now time.Time)
}

// mutate loads the document with id, applies fn and persists the result
// when fn reports a change. Unchanged documents are returned as loaded.
func mutate[T models.Entity](ctx context.Context, d *deps, coll storage.Collection[T], id, op string, fn func(doc T) (bool, error)) (T, error) {
	doc, err := coll.Get(ctx, id)
	if err != nil {
		return doc, err
	}

	changed, err := fn(doc)
	if err != nil || !changed {
		return doc, err
	}

	if t, ok := any(doc).(toucher); ok {
		t.Touch(d.now())
	}
	if err := coll.Update(ctx, doc); err != nil {
		return doc, err
	}

	d.logger.Debug().Str("id", id).Str("op", op).Msg("document updated")
	return doc, nil
}

// toggleMember adds or removes value in the id set selected by field. Adding
// a present value and removing an absent one are no-ops.
func toggleMember[T models.Entity](ctx context.Context, d *deps, coll storage.Collection[T], id, op string, field func(T) *[]string, value string, add bool) (T, error) {
	if err := required("id", value); err != nil {
		var zero T
		return zero, err
	}
	return mutate(ctx, d, coll, id, op, func(doc T) (bool, error) {
		set := field(doc)
		var changed bool
		if add {
			*set, changed = models.AddUnique(*set, value)
		} else {
			*set, changed = models.RemoveValue(*set, value)
		}
		return changed, nil
	})
}

func setCustomField(fields *map[string]any, key string, value any) error {
	if err := required("key", key); err != nil {
		return err
	}
	if *fields == nil {
		*fields = make(map[string]any)
	}
	(*fields)[key] = value
	return nil
}

func removeCustomField(fields map[string]any, key string) bool {
	if _, ok := fields[key]; !ok {
		return false
	}
	delete(fields, key)
	return true
}

// loadAll resolves ids to documents in id order, skipping dangling
// references.
func loadAll[T models.Entity](ctx context.Context, coll storage.Collection[T], ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := coll.Find(ctx, storage.Where(storage.OneOf("id", ids)))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]T, len(docs))
	for _, doc := range docs {
		byID[doc.EntityID()] = doc
	}
	out := make([]T, 0, len(docs))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}
