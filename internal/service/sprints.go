package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Sprints manages sprint task lists and the planning → active → completed
// lifecycle.
type Sprints struct {
	*deps
}

// NewSprint holds the fields accepted on creation.
type NewSprint struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	ProjectID string    `json:"projectId"`
	Goal      string    `json:"goal"`
}

// SprintPatch lists the fields a partial update may change. Status only
// moves through Start and Complete.
type SprintPatch struct {
	Name      *string    `json:"name"`
	Goal      *string    `json:"goal"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// Summary aggregates a sprint's referenced tasks.
type Summary struct {
	SprintID       string  `json:"sprintId"`
	TaskCount      int     `json:"taskCount"`
	TotalPoints    int     `json:"totalPoints"`
	CompletedCount int     `json:"completedCount"`
	Progress       float64 `json:"progress"`
}

func (s *Sprints) coll() storage.Collection[*models.Sprint] {
	return s.store.Sprints()
}

// Create persists a sprint in the planning state. The owning project must
// exist; the project's sprint set is not touched.
func (s *Sprints) Create(ctx context.Context, in NewSprint) (*models.Sprint, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("projectId", in.ProjectID); err != nil {
		return nil, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, invalid("endDate precedes startDate")
	}
	if _, err := s.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	sprint := &models.Sprint{
		Name:      strings.TrimSpace(in.Name),
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		TaskIDs:   []string{},
		ProjectID: in.ProjectID,
		Status:    models.SprintPlanning,
		Goal:      in.Goal,
	}
	sprint.Touch(s.now())

	if err := s.coll().Insert(ctx, sprint); err != nil {
		return nil, err
	}
	s.logger.Info().Str("sprint", sprint.ID).Str("project", sprint.ProjectID).Msg("sprint created")
	return sprint, nil
}

func (s *Sprints) Get(ctx context.Context, id string) (*models.Sprint, error) {
	return s.coll().Get(ctx, id)
}

// List returns the sprints of a project, or all sprints when projectID is
// empty, by start date.
func (s *Sprints) List(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	q := storage.Query{}
	if projectID != "" {
		q = storage.Where(storage.EqualTo("projectId", projectID))
	}
	return s.coll().Find(ctx, q.OrderBy("startDate", false))
}

func (s *Sprints) Update(ctx context.Context, id string, patch SprintPatch) (*models.Sprint, error) {
	return mutate(ctx, s.deps, s.coll(), id, "update", func(sprint *models.Sprint) (bool, error) {
		if patch.Name != nil {
			if err := required("name", *patch.Name); err != nil {
				return false, err
			}
			sprint.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Goal != nil {
			sprint.Goal = *patch.Goal
		}
		if patch.StartDate != nil {
			sprint.StartDate = patch.StartDate.UTC()
		}
		if patch.EndDate != nil {
			sprint.EndDate = patch.EndDate.UTC()
		}
		if !sprint.StartDate.IsZero() && !sprint.EndDate.IsZero() && sprint.EndDate.Before(sprint.StartDate) {
			return false, invalid("endDate precedes startDate")
		}
		return true, nil
	})
}

// Delete removes the sprint only. Tasks keep their sprintId.
func (s *Sprints) Delete(ctx context.Context, id string) error {
	if err := s.coll().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("sprint", id).Msg("sprint deleted")
	return nil
}

func sprintTasks(s *models.Sprint) *[]string { return &s.TaskIDs }

// AddTask appends taskID to the sprint's ordered task list.
func (s *Sprints) AddTask(ctx context.Context, sprintID, taskID string) (*models.Sprint, error) {
	return toggleMember(ctx, s.deps, s.coll(), sprintID, "add_task", sprintTasks, taskID, true)
}

func (s *Sprints) RemoveTask(ctx context.Context, sprintID, taskID string) (*models.Sprint, error) {
	return toggleMember(ctx, s.deps, s.coll(), sprintID, "remove_task", sprintTasks, taskID, false)
}

// Start moves a planning sprint to active and stamps startDate with the
// current time, replacing any planned date. It refuses while another sprint
// of the same project is active.
func (s *Sprints) Start(ctx context.Context, sprintID string) (*models.Sprint, error) {
	return mutate(ctx, s.deps, s.coll(), sprintID, "start", func(sprint *models.Sprint) (bool, error) {
		if sprint.Status != models.SprintPlanning {
			return false, fmt.Errorf("%w: only a planning sprint can be started, sprint is %s",
				models.ErrInvalidTransition, sprint.Status)
		}

		active, err := s.coll().Count(ctx, storage.Where(
			storage.EqualTo("projectId", sprint.ProjectID),
			storage.EqualTo("status", models.SprintActive),
		))
		if err != nil {
			return false, err
		}
		if active > 0 {
			return false, fmt.Errorf("%w: project %s already has an active sprint",
				models.ErrInvalidTransition, sprint.ProjectID)
		}

		sprint.Status = models.SprintActive
		sprint.StartDate = s.now()
		return true, nil
	})
}

// Complete moves an active sprint to completed and stamps endDate with the
// current time.
func (s *Sprints) Complete(ctx context.Context, sprintID string) (*models.Sprint, error) {
	return mutate(ctx, s.deps, s.coll(), sprintID, "complete", func(sprint *models.Sprint) (bool, error) {
		if sprint.Status != models.SprintActive {
			return false, fmt.Errorf("%w: only an active sprint can be completed, sprint is %s",
				models.ErrInvalidTransition, sprint.Status)
		}
		sprint.Status = models.SprintCompleted
		sprint.EndDate = s.now()
		return true, nil
	})
}

// Tasks resolves the sprint's task list in list order. Ids of deleted
// tasks are skipped.
func (s *Sprints) Tasks(ctx context.Context, sprintID string) ([]*models.Task, error) {
	sprint, err := s.Get(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	return loadAll(ctx, s.store.Tasks(), sprint.TaskIDs)
}

// TaskCount is the size of the task list, dangling ids included.
func (s *Sprints) TaskCount(ctx context.Context, sprintID string) (int, error) {
	sprint, err := s.Get(ctx, sprintID)
	if err != nil {
		return 0, err
	}
	return len(sprint.TaskIDs), nil
}

func (s *Sprints) TotalPoints(ctx context.Context, sprintID string) (int, error) {
	summary, err := s.Summary(ctx, sprintID)
	if err != nil {
		return 0, err
	}
	return summary.TotalPoints, nil
}

func (s *Sprints) CompletedTaskCount(ctx context.Context, sprintID string) (int, error) {
	summary, err := s.Summary(ctx, sprintID)
	if err != nil {
		return 0, err
	}
	return summary.CompletedCount, nil
}

// Progress is the percentage of done tasks, 0 for an empty sprint.
func (s *Sprints) Progress(ctx context.Context, sprintID string) (float64, error) {
	summary, err := s.Summary(ctx, sprintID)
	if err != nil {
		return 0, err
	}
	return summary.Progress, nil
}

// Summary computes count, points, completed count and progress in one pass.
func (s *Sprints) Summary(ctx context.Context, sprintID string) (Summary, error) {
	sprint, err := s.Get(ctx, sprintID)
	if err != nil {
		return Summary{}, err
	}
	tasks, err := loadAll(ctx, s.store.Tasks(), sprint.TaskIDs)
	if err != nil {
		return Summary{}, err
	}
	return summarize(sprint, tasks), nil
}

func summarize(sprint *models.Sprint, tasks []*models.Task) Summary {
	sum := Summary{SprintID: sprint.ID, TaskCount: len(sprint.TaskIDs)}
	for _, t := range tasks {
		sum.TotalPoints += t.Points
		if t.Status == models.TaskDone {
			sum.CompletedCount++
		}
	}
	if sum.TaskCount > 0 {
		sum.Progress = float64(sum.CompletedCount) / float64(sum.TaskCount) * 100
	}
	return sum
}

// ActiveSprint returns the project's active sprint or an ErrNotFound error.
func (s *Sprints) ActiveSprint(ctx context.Context, projectID string) (*models.Sprint, error) {
	sprint, err := s.coll().FindOne(ctx, storage.Where(
		storage.EqualTo("projectId", projectID),
		storage.EqualTo("status", models.SprintActive),
	))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("active sprint for project %s: %w", projectID, models.ErrNotFound)
	}
	return sprint, err
}

// UpcomingSprints returns planning sprints by start date ascending.
func (s *Sprints) UpcomingSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	return s.coll().Find(ctx, storage.Where(
		storage.EqualTo("projectId", projectID),
		storage.EqualTo("status", models.SprintPlanning),
	).OrderBy("startDate", false))
}

// CompletedSprints returns completed sprints by end date descending.
func (s *Sprints) CompletedSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	return s.coll().Find(ctx, storage.Where(
		storage.EqualTo("projectId", projectID),
		storage.EqualTo("status", models.SprintCompleted),
	).OrderBy("endDate", true))
}
