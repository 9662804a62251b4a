// Package seed bootstraps a store with reference data, demo accounts and a
// sample project. Every record is upserted by its natural key so the loader
// can run repeatedly.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tracker/internal/models"
	"tracker/internal/storage"
)

//go:embed seed.json
var defaultSeed []byte

// DefaultWorkflow is the workflow every seeded project without an explicit
// one is attached to.
const DefaultWorkflow = "Default"

// Data is the seed document.
type Data struct {
	Statuses  []models.Status `json:"statuses"`
	Workflows []Workflow      `json:"workflows"`
	Users     []User          `json:"users"`
	Projects  []Project       `json:"projects"`
}

type Workflow struct {
	Name     string   `json:"name"`
	Statuses []string `json:"statuses"`
}

type User struct {
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Project references users by email. Owner defaults to the first admin and
// Workflow to DefaultWorkflow.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Members     []string `json:"members"`
	Workflow    string   `json:"workflow"`
	Sprints     []Sprint `json:"sprints"`
	Tasks       []Task   `json:"tasks"`
}

type Sprint struct {
	Name      string              `json:"name"`
	Goal      string              `json:"goal"`
	Status    models.SprintStatus `json:"status"`
	StartDate time.Time           `json:"startDate"`
	EndDate   time.Time           `json:"endDate"`
}

// Task lands in the project's active sprint unless Backlog is set or the
// project has no active sprint.
type Task struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Points      int               `json:"points"`
	Priority    models.Priority   `json:"priority"`
	Status      models.TaskStatus `json:"status"`
	Assignee    string            `json:"assignee"`
	Order       float64           `json:"order"`
	Backlog     bool              `json:"backlog"`
}

// Default returns the embedded seed.
func Default() (Data, error) {
	return Parse(defaultSeed)
}

// ReadFile loads a seed document from disk.
func ReadFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a seed document.
func Parse(raw []byte) (Data, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("decode seed: %w", err)
	}
	return data, nil
}

// Hasher hashes seeded passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// Loader writes seed data into a store.
type Loader struct {
	store  storage.Store
	hasher Hasher
	logger zerolog.Logger
	now    func() time.Time
}

// NewLoader creates a loader. A nil clock means time.Now in UTC.
func NewLoader(store storage.Store, hasher Hasher, logger zerolog.Logger, now func() time.Time) *Loader {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Loader{
		store:  store,
		hasher: hasher,
		logger: logger.With().Str("component", "seed").Logger(),
		now:    now,
	}
}

// RunIfEmpty loads data only when the store holds no tasks yet. It reports
// whether the seed ran.
func (l *Loader) RunIfEmpty(ctx context.Context, data Data) (bool, error) {
	n, err := l.store.Tasks().Count(ctx, storage.Query{})
	if err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	if n > 0 {
		l.logger.Debug().Int64("tasks", n).Msg("store not empty, skipping seed")
		return false, nil
	}
	return true, l.Run(ctx, data)
}

// Run upserts statuses, workflows and users, then each project with its
// sprints and tasks.
func (l *Loader) Run(ctx context.Context, data Data) error {
	for _, s := range data.Statuses {
		if err := l.status(ctx, s); err != nil {
			return err
		}
	}

	workflows := make(map[string]string, len(data.Workflows))
	for _, w := range data.Workflows {
		id, err := l.workflow(ctx, w)
		if err != nil {
			return err
		}
		workflows[w.Name] = id
	}

	users := make(map[string]*models.User, len(data.Users))
	var admin *models.User
	for _, u := range data.Users {
		user, err := l.user(ctx, u)
		if err != nil {
			return err
		}
		users[user.Email] = user
		if admin == nil && user.Role == models.RoleAdmin {
			admin = user
		}
	}

	for _, p := range data.Projects {
		if err := l.project(ctx, p, workflows, users, admin); err != nil {
			return fmt.Errorf("seed project %q: %w", p.Name, err)
		}
	}

	l.logger.Info().
		Int("statuses", len(data.Statuses)).
		Int("workflows", len(data.Workflows)).
		Int("users", len(data.Users)).
		Int("projects", len(data.Projects)).
		Msg("seed loaded")
	return nil
}

func (l *Loader) status(ctx context.Context, in models.Status) error {
	_, err := storage.Upsert(ctx, l.store.Statuses(),
		storage.Where(storage.EqualTo("name", in.Name)),
		func() *models.Status { return &models.Status{} },
		func(s *models.Status) {
			s.Name = in.Name
			s.Description = in.Description
			s.Color = in.Color
			s.Order = in.Order
			s.IsDefault = in.IsDefault
		})
	if err != nil {
		return fmt.Errorf("seed status %q: %w", in.Name, err)
	}
	return nil
}

func (l *Loader) workflow(ctx context.Context, in Workflow) (string, error) {
	wf, err := storage.Upsert(ctx, l.store.Workflows(),
		storage.Where(storage.EqualTo("name", in.Name)),
		func() *models.Workflow { return &models.Workflow{} },
		func(w *models.Workflow) {
			w.Name = in.Name
			w.Statuses = append([]string{}, in.Statuses...)
		})
	if err != nil {
		return "", fmt.Errorf("seed workflow %q: %w", in.Name, err)
	}
	return wf.ID, nil
}

func (l *Loader) user(ctx context.Context, in User) (*models.User, error) {
	hash, err := l.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", in.Email, err)
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	now := l.now()

	user, err := storage.Upsert(ctx, l.store.Users(),
		storage.Where(storage.EqualTo("email", email)),
		func() *models.User {
			return &models.User{ProjectIDs: []string{}, TaskIDs: []string{}, Preferences: models.DefaultPreferences()}
		},
		func(u *models.User) {
			u.Email = email
			u.Username = in.Username
			u.PasswordHash = hash
			u.Role = role
			u.Touch(now)
		})
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	return user, nil
}

func (l *Loader) project(ctx context.Context, in Project, workflows map[string]string, users map[string]*models.User, admin *models.User) error {
	owner := admin
	if in.Owner != "" {
		owner = users[strings.ToLower(in.Owner)]
	}
	if owner == nil {
		return fmt.Errorf("%w: no owner available", models.ErrValidation)
	}

	wfName := in.Workflow
	if wfName == "" {
		wfName = DefaultWorkflow
	}
	now := l.now()

	project, err := storage.Upsert(ctx, l.store.Projects(),
		storage.Where(storage.EqualTo("name", in.Name)),
		func() *models.Project {
			return &models.Project{
				MemberIDs:      []string{},
				SprintIDs:      []string{},
				BacklogTaskIDs: []string{},
				Status:         models.ProjectActive,
			}
		},
		func(p *models.Project) {
			p.Name = in.Name
			p.Description = in.Description
			p.OwnerID = owner.ID
			p.WorkflowID = workflows[wfName]
			for _, email := range in.Members {
				if u, ok := users[strings.ToLower(email)]; ok {
					p.MemberIDs, _ = models.AddUnique(p.MemberIDs, u.ID)
				}
			}
			p.Touch(now)
		})
	if err != nil {
		return err
	}

	var active *models.Sprint
	for _, s := range in.Sprints {
		sprint, err := l.sprint(ctx, project.ID, s)
		if err != nil {
			return err
		}
		project.SprintIDs, _ = models.AddUnique(project.SprintIDs, sprint.ID)
		if sprint.Status == models.SprintActive && active == nil {
			active = sprint
		}
	}
	if active == nil {
		// an active sprint seeded on an earlier run still counts
		found, err := l.store.Sprints().FindOne(ctx, storage.Where(
			storage.EqualTo("projectId", project.ID),
			storage.EqualTo("status", string(models.SprintActive)),
		))
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if err == nil {
			active = found
		}
	}

	for _, t := range in.Tasks {
		var sprint *models.Sprint
		if !t.Backlog {
			sprint = active
		}
		var assignee *models.User
		if t.Assignee != "" {
			var ok bool
			if assignee, ok = users[strings.ToLower(t.Assignee)]; !ok {
				return fmt.Errorf("%w: task %q assigned to unknown user %s", models.ErrValidation, t.Title, t.Assignee)
			}
		}
		task, err := l.task(ctx, project.ID, sprint, assignee, t)
		if err != nil {
			return err
		}

		if sprint != nil {
			sprint.TaskIDs, _ = models.AddUnique(sprint.TaskIDs, task.ID)
		} else {
			project.BacklogTaskIDs, _ = models.AddUnique(project.BacklogTaskIDs, task.ID)
		}
		if assignee != nil {
			assignee.TaskIDs, _ = models.AddUnique(assignee.TaskIDs, task.ID)
		}
	}

	if active != nil {
		if err := l.store.Sprints().Update(ctx, active); err != nil {
			return err
		}
	}
	if err := l.store.Projects().Update(ctx, project); err != nil {
		return err
	}

	// owner and members point back at the project
	ids := append([]string{owner.ID}, project.MemberIDs...)
	for _, u := range users {
		if models.Contains(ids, u.ID) {
			u.ProjectIDs, _ = models.AddUnique(u.ProjectIDs, project.ID)
		}
		if err := l.store.Users().Update(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) sprint(ctx context.Context, projectID string, in Sprint) (*models.Sprint, error) {
	status := in.Status
	if status == "" {
		status = models.SprintPlanning
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: sprint %q has unknown status %q", models.ErrValidation, in.Name, status)
	}
	now := l.now()

	sprint, err := storage.Upsert(ctx, l.store.Sprints(),
		storage.Where(storage.EqualTo("projectId", projectID), storage.EqualTo("name", in.Name)),
		func() *models.Sprint { return &models.Sprint{TaskIDs: []string{}} },
		func(s *models.Sprint) {
			s.Name = in.Name
			s.Goal = in.Goal
			s.ProjectID = projectID
			s.Status = status
			s.StartDate = in.StartDate.UTC()
			s.EndDate = in.EndDate.UTC()
			s.Touch(now)
		})
	if err != nil {
		return nil, fmt.Errorf("seed sprint %q: %w", in.Name, err)
	}
	return sprint, nil
}

func (l *Loader) task(ctx context.Context, projectID string, sprint *models.Sprint, assignee *models.User, in Task) (*models.Task, error) {
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	status := in.Status
	if status == "" {
		status = models.TaskTodo
	}
	if !priority.Valid() || !status.Valid() {
		return nil, fmt.Errorf("%w: task %q has unknown priority or status", models.ErrValidation, in.Title)
	}

	var assigneeID string
	if assignee != nil {
		assigneeID = assignee.ID
	}
	now := l.now()

	task, err := storage.Upsert(ctx, l.store.Tasks(),
		storage.Where(storage.EqualTo("projectId", projectID), storage.EqualTo("title", in.Title)),
		func() *models.Task {
			return &models.Task{Attachments: []models.Attachment{}, Comments: []models.Comment{}}
		},
		func(t *models.Task) {
			t.Title = in.Title
			t.Description = in.Description
			t.Points = in.Points
			t.Priority = priority
			t.Status = status
			t.AssignedToID = assigneeID
			t.ProjectID = projectID
			t.Order = in.Order
			t.SprintID = ""
			if sprint != nil {
				t.SprintID = sprint.ID
			}
			t.Touch(now)
		})
	if err != nil {
		return nil, fmt.Errorf("seed task %q: %w", in.Title, err)
	}
	return task, nil
}
