package service

import (
	"context"
	"strings"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Statuses manages the reference list of board states.
type Statuses struct {
	*deps
}

// StatusPatch lists the fields a partial update may change.
type StatusPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Order       *int    `json:"order"`
	IsDefault   *bool   `json:"isDefault"`
}

func (s *Statuses) Create(ctx context.Context, in models.Status) (*models.Status, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	in.ID = ""
	in.Name = strings.TrimSpace(in.Name)
	if err := s.store.Statuses().Insert(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *Statuses) Get(ctx context.Context, id string) (*models.Status, error) {
	return s.store.Statuses().Get(ctx, id)
}

// List returns statuses by display order.
func (s *Statuses) List(ctx context.Context) ([]*models.Status, error) {
	return s.store.Statuses().Find(ctx, storage.Query{}.OrderBy("order", false))
}

// Default returns the status flagged isDefault.
func (s *Statuses) Default(ctx context.Context) (*models.Status, error) {
	return s.store.Statuses().FindOne(ctx, storage.Where(storage.EqualTo("isDefault", true)).OrderBy("order", false))
}

func (s *Statuses) Update(ctx context.Context, id string, patch StatusPatch) (*models.Status, error) {
	return mutate(ctx, s.deps, s.store.Statuses(), id, "update", func(status *models.Status) (bool, error) {
		if patch.Name != nil {
			if err := required("name", *patch.Name); err != nil {
				return false, err
			}
			status.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			status.Description = *patch.Description
		}
		if patch.Color != nil {
			status.Color = *patch.Color
		}
		if patch.Order != nil {
			status.Order = *patch.Order
		}
		if patch.IsDefault != nil {
			status.IsDefault = *patch.IsDefault
		}
		return true, nil
	})
}

func (s *Statuses) Delete(ctx context.Context, id string) error {
	return s.store.Statuses().Delete(ctx, id)
}

// Workflows manages named status sequences. Listed status names are free
// text and are not resolved against the statuses collection.
type Workflows struct {
	*deps
}

// WorkflowPatch lists the fields a partial update may change.
type WorkflowPatch struct {
	Name     *string   `json:"name"`
	Statuses *[]string `json:"statuses"`
}

func (w *Workflows) Create(ctx context.Context, name string, statuses []string) (*models.Workflow, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = []string{}
	}
	wf := &models.Workflow{Name: strings.TrimSpace(name), Statuses: statuses}
	if err := w.store.Workflows().Insert(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (w *Workflows) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return w.store.Workflows().Get(ctx, id)
}

func (w *Workflows) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	return w.store.Workflows().FindOne(ctx, storage.Where(storage.EqualTo("name", name)))
}

func (w *Workflows) List(ctx context.Context) ([]*models.Workflow, error) {
	return w.store.Workflows().Find(ctx, storage.Query{}.OrderBy("name", false))
}

func (w *Workflows) Update(ctx context.Context, id string, patch WorkflowPatch) (*models.Workflow, error) {
	return mutate(ctx, w.deps, w.store.Workflows(), id, "update", func(wf *models.Workflow) (bool, error) {
		if patch.Name != nil {
			if err := required("name", *patch.Name); err != nil {
				return false, err
			}
			wf.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Statuses != nil {
			wf.Statuses = *patch.Statuses
		}
		return true, nil
	})
}

func (w *Workflows) Delete(ctx context.Context, id string) error {
	return w.store.Workflows().Delete(ctx, id)
}
