package service

import (
	"context"
	"strings"
	"time"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Tasks manages board cards.
type Tasks struct {
	*deps
}

// NewTask holds the fields accepted on creation. Zero values fall back to
// the task defaults (status todo, priority medium, order 0).
type NewTask struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	ProjectID    string            `json:"projectId"`
	SprintID     string            `json:"sprintId"`
	AssignedToID string            `json:"assignedToId"`
	Points       int               `json:"points"`
	Priority     models.Priority   `json:"priority"`
	Status       models.TaskStatus `json:"status"`
	Order        float64           `json:"order"`
	DueDate      *time.Time        `json:"dueDate"`
	CustomFields map[string]any    `json:"customFields"`
}

// TaskPatch lists the fields a partial update may change. Sprint placement
// goes through MoveToSprint and MoveToBacklog.
type TaskPatch struct {
	Title        *string            `json:"title"`
	Description  *string            `json:"description"`
	Points       *int               `json:"points"`
	Priority     *models.Priority   `json:"priority"`
	Status       *models.TaskStatus `json:"status"`
	AssignedToID *string            `json:"assignedToId"`
	Order        *float64           `json:"order"`
	DueDate      *time.Time         `json:"dueDate"`
}

func (t *Tasks) coll() storage.Collection[*models.Task] {
	return t.store.Tasks()
}

func (t *Tasks) Create(ctx context.Context, in NewTask) (*models.Task, error) {
	if err := required("title", in.Title); err != nil {
		return nil, err
	}
	if err := required("projectId", in.ProjectID); err != nil {
		return nil, err
	}
	if in.Points < 0 {
		return nil, invalid("points must not be negative")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, invalid("unknown priority %q", in.Priority)
	}
	if in.Status == "" {
		in.Status = models.TaskTodo
	}
	if !in.Status.Valid() {
		return nil, invalid("unknown status %q", in.Status)
	}

	if _, err := t.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if in.SprintID != "" {
		if err := t.checkSprint(ctx, in.ProjectID, in.SprintID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Points:       in.Points,
		Priority:     in.Priority,
		Status:       in.Status,
		Attachments:  []models.Attachment{},
		Comments:     []models.Comment{},
		AssignedToID: in.AssignedToID,
		ProjectID:    in.ProjectID,
		SprintID:     in.SprintID,
		Order:        in.Order,
		DueDate:      in.DueDate,
		CustomFields: in.CustomFields,
	}
	task.Touch(t.now())

	if err := t.coll().Insert(ctx, task); err != nil {
		return nil, err
	}
	t.logger.Info().Str("task", task.ID).Str("project", task.ProjectID).Msg("task created")
	return task, nil
}

// checkSprint verifies the sprint exists and belongs to projectID.
func (t *Tasks) checkSprint(ctx context.Context, projectID, sprintID string) error {
	sprint, err := t.store.Sprints().Get(ctx, sprintID)
	if err != nil {
		return err
	}
	if sprint.ProjectID != projectID {
		return invalid("sprint %s belongs to project %s, not %s", sprintID, sprint.ProjectID, projectID)
	}
	return nil
}

func (t *Tasks) Get(ctx context.Context, id string) (*models.Task, error) {
	return t.coll().Get(ctx, id)
}

func (t *Tasks) Update(ctx context.Context, id string, patch TaskPatch) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "update", func(task *models.Task) (bool, error) {
		if patch.Title != nil {
			if err := required("title", *patch.Title); err != nil {
				return false, err
			}
			task.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.Points != nil {
			if *patch.Points < 0 {
				return false, invalid("points must not be negative")
			}
			task.Points = *patch.Points
		}
		if patch.Priority != nil {
			if !patch.Priority.Valid() {
				return false, invalid("unknown priority %q", *patch.Priority)
			}
			task.Priority = *patch.Priority
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return false, invalid("unknown status %q", *patch.Status)
			}
			task.Status = *patch.Status
		}
		if patch.AssignedToID != nil {
			task.AssignedToID = *patch.AssignedToID
		}
		if patch.Order != nil {
			task.Order = *patch.Order
		}
		if patch.DueDate != nil {
			task.DueDate = patch.DueDate
		}
		return true, nil
	})
}

// Delete removes the task only. Backlog, sprint and user references remain.
func (t *Tasks) Delete(ctx context.Context, id string) error {
	if err := t.coll().Delete(ctx, id); err != nil {
		return err
	}
	t.logger.Info().Str("task", id).Msg("task deleted")
	return nil
}

// UpdateStatus moves the task to another board column. The value must be
// one of the six columns; the project's workflow is not consulted.
func (t *Tasks) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	return mutate(ctx, t.deps, t.coll(), id, "update_status", func(task *models.Task) (bool, error) {
		task.Status = status
		return true, nil
	})
}

func (t *Tasks) AssignTo(ctx context.Context, id, userID string) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "assign", func(task *models.Task) (bool, error) {
		task.AssignedToID = userID
		return true, nil
	})
}

// LogTime adds hours to the time spent. Negative values are accepted.
func (t *Tasks) LogTime(ctx context.Context, id string, hours float64) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "log_time", func(task *models.Task) (bool, error) {
		task.TimeSpent += hours
		return true, nil
	})
}

// UpdateOrder overwrites the sort key. Siblings are not renumbered.
func (t *Tasks) UpdateOrder(ctx context.Context, id string, order float64) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "update_order", func(task *models.Task) (bool, error) {
		task.Order = order
		return true, nil
	})
}

// AddComment appends a comment and returns the whole task.
func (t *Tasks) AddComment(ctx context.Context, id, text, authorID string) (*models.Task, error) {
	if err := required("text", text); err != nil {
		return nil, err
	}
	return mutate(ctx, t.deps, t.coll(), id, "add_comment", func(task *models.Task) (bool, error) {
		task.Comments = append(task.Comments, models.Comment{Text: text, AuthorID: authorID, CreatedAt: t.now()})
		return true, nil
	})
}

func (t *Tasks) AddAttachment(ctx context.Context, id, name, url string) (*models.Task, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}
	if err := required("url", url); err != nil {
		return nil, err
	}
	return mutate(ctx, t.deps, t.coll(), id, "add_attachment", func(task *models.Task) (bool, error) {
		task.Attachments = append(task.Attachments, models.Attachment{Name: name, URL: url})
		return true, nil
	})
}

func (t *Tasks) AddCustomField(ctx context.Context, id, key string, value any) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "add_custom_field", func(task *models.Task) (bool, error) {
		return true, setCustomField(&task.CustomFields, key, value)
	})
}

func (t *Tasks) RemoveCustomField(ctx context.Context, id, key string) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "remove_custom_field", func(task *models.Task) (bool, error) {
		return removeCustomField(task.CustomFields, key), nil
	})
}

// MoveToSprint sets the sprint reference. The sprint must belong to the
// task's project. Neither the project backlog nor the sprint task list is
// updated.
func (t *Tasks) MoveToSprint(ctx context.Context, id, sprintID string) (*models.Task, error) {
	if err := required("sprintId", sprintID); err != nil {
		return nil, err
	}
	return mutate(ctx, t.deps, t.coll(), id, "move_to_sprint", func(task *models.Task) (bool, error) {
		if err := t.checkSprint(ctx, task.ProjectID, sprintID); err != nil {
			return false, err
		}
		task.SprintID = sprintID
		return true, nil
	})
}

// MoveToBacklog clears the sprint reference.
func (t *Tasks) MoveToBacklog(ctx context.Context, id string) (*models.Task, error) {
	return mutate(ctx, t.deps, t.coll(), id, "move_to_backlog", func(task *models.Task) (bool, error) {
		task.SprintID = ""
		return true, nil
	})
}

func (t *Tasks) find(ctx context.Context, q storage.Query) ([]*models.Task, error) {
	return t.coll().Find(ctx, q.OrderBy("order", false))
}

func (t *Tasks) FindByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return t.find(ctx, storage.Where(storage.EqualTo("projectId", projectID)))
}

func (t *Tasks) FindBySprint(ctx context.Context, sprintID string) ([]*models.Task, error) {
	return t.find(ctx, storage.Where(storage.EqualTo("sprintId", sprintID)))
}

// FindBacklog returns the project's tasks without a sprint.
func (t *Tasks) FindBacklog(ctx context.Context, projectID string) ([]*models.Task, error) {
	return t.find(ctx, storage.Where(storage.EqualTo("projectId", projectID), storage.Unset("sprintId")))
}

func (t *Tasks) FindByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return t.find(ctx, storage.Where(storage.EqualTo("status", status)))
}

func (t *Tasks) FindByAssignee(ctx context.Context, userID string) ([]*models.Task, error) {
	return t.find(ctx, storage.Where(storage.EqualTo("assignedToId", userID)))
}

// Search matches text case-insensitively against title or description.
func (t *Tasks) Search(ctx context.Context, text string) ([]*models.Task, error) {
	return t.find(ctx, storage.Query{}.Or(storage.Like("title", text), storage.Like("description", text)))
}
