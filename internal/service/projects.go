package service

import (
	"context"
	"strings"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// Projects manages projects and their member, sprint and backlog sets.
type Projects struct {
	*deps
	sprints *Sprints
	tasks   *Tasks
}

// NewProject holds the fields accepted on creation.
type NewProject struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	OwnerID      string         `json:"ownerId"`
	WorkflowID   string         `json:"workflowId"`
	CustomFields map[string]any `json:"customFields"`
}

// ProjectPatch lists the fields that a partial update may change.
type ProjectPatch struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	WorkflowID  *string               `json:"workflowId"`
	Status      *models.ProjectStatus `json:"status"`
}

func (p *Projects) coll() storage.Collection[*models.Project] {
	return p.store.Projects()
}

// Create persists an active project with empty member, sprint and backlog
// sets. The owner is not added to the members.
func (p *Projects) Create(ctx context.Context, in NewProject) (*models.Project, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("ownerId", in.OwnerID); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		OwnerID:        in.OwnerID,
		MemberIDs:      []string{},
		SprintIDs:      []string{},
		BacklogTaskIDs: []string{},
		WorkflowID:     in.WorkflowID,
		Status:         models.ProjectActive,
		CustomFields:   in.CustomFields,
	}
	project.Touch(p.now())

	if err := p.coll().Insert(ctx, project); err != nil {
		return nil, err
	}
	p.logger.Info().Str("project", project.ID).Str("name", project.Name).Msg("project created")
	return project, nil
}

// Get returns a project by id.
func (p *Projects) Get(ctx context.Context, id string) (*models.Project, error) {
	return p.coll().Get(ctx, id)
}

// List returns every project in creation order.
func (p *Projects) List(ctx context.Context) ([]*models.Project, error) {
	return p.coll().Find(ctx, storage.Query{}.OrderBy("createdAt", false))
}

// Update applies a partial update.
func (p *Projects) Update(ctx context.Context, id string, patch ProjectPatch) (*models.Project, error) {
	return mutate(ctx, p.deps, p.coll(), id, "update", func(project *models.Project) (bool, error) {
		if patch.Name != nil {
			if err := required("name", *patch.Name); err != nil {
				return false, err
			}
			project.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			project.Description = *patch.Description
		}
		if patch.WorkflowID != nil {
			project.WorkflowID = *patch.WorkflowID
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return false, invalid("unknown project status %q", *patch.Status)
			}
			project.Status = *patch.Status
		}
		return true, nil
	})
}

// Delete removes the project only. Its sprints and tasks are left in place.
func (p *Projects) Delete(ctx context.Context, id string) error {
	if err := p.coll().Delete(ctx, id); err != nil {
		return err
	}
	p.logger.Info().Str("project", id).Msg("project deleted")
	return nil
}

func projectMembers(p *models.Project) *[]string { return &p.MemberIDs }
func projectSprints(p *models.Project) *[]string { return &p.SprintIDs }
func projectBacklog(p *models.Project) *[]string { return &p.BacklogTaskIDs }

func (p *Projects) AddMember(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "add_member", projectMembers, userID, true)
}

func (p *Projects) RemoveMember(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "remove_member", projectMembers, userID, false)
}

func (p *Projects) AddSprint(ctx context.Context, projectID, sprintID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "add_sprint", projectSprints, sprintID, true)
}

func (p *Projects) RemoveSprint(ctx context.Context, projectID, sprintID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "remove_sprint", projectSprints, sprintID, false)
}

// AddTaskToBacklog records taskID in the backlog set. Sprint membership of
// the task is not consulted.
func (p *Projects) AddTaskToBacklog(ctx context.Context, projectID, taskID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "add_backlog_task", projectBacklog, taskID, true)
}

func (p *Projects) RemoveTaskFromBacklog(ctx context.Context, projectID, taskID string) (*models.Project, error) {
	return toggleMember(ctx, p.deps, p.coll(), projectID, "remove_backlog_task", projectBacklog, taskID, false)
}

// SetWorkflow overwrites the workflow reference.
func (p *Projects) SetWorkflow(ctx context.Context, projectID, workflowID string) (*models.Project, error) {
	return mutate(ctx, p.deps, p.coll(), projectID, "set_workflow", func(project *models.Project) (bool, error) {
		project.WorkflowID = workflowID
		return true, nil
	})
}

func (p *Projects) Archive(ctx context.Context, projectID string) (*models.Project, error) {
	return p.setStatus(ctx, projectID, models.ProjectArchived)
}

func (p *Projects) Activate(ctx context.Context, projectID string) (*models.Project, error) {
	return p.setStatus(ctx, projectID, models.ProjectActive)
}

func (p *Projects) setStatus(ctx context.Context, projectID string, status models.ProjectStatus) (*models.Project, error) {
	return mutate(ctx, p.deps, p.coll(), projectID, "set_status", func(project *models.Project) (bool, error) {
		project.Status = status
		return true, nil
	})
}

func (p *Projects) AddCustomField(ctx context.Context, projectID, key string, value any) (*models.Project, error) {
	return mutate(ctx, p.deps, p.coll(), projectID, "add_custom_field", func(project *models.Project) (bool, error) {
		return true, setCustomField(&project.CustomFields, key, value)
	})
}

func (p *Projects) RemoveCustomField(ctx context.Context, projectID, key string) (*models.Project, error) {
	return mutate(ctx, p.deps, p.coll(), projectID, "remove_custom_field", func(project *models.Project) (bool, error) {
		return removeCustomField(project.CustomFields, key), nil
	})
}

// FindByMember returns projects listing userID as a member.
func (p *Projects) FindByMember(ctx context.Context, userID string) ([]*models.Project, error) {
	return p.coll().Find(ctx, storage.Where(storage.Includes("memberIds", userID)))
}

func (p *Projects) FindByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	return p.coll().Find(ctx, storage.Where(storage.EqualTo("ownerId", ownerID)))
}

func (p *Projects) FindActive(ctx context.Context) ([]*models.Project, error) {
	return p.coll().Find(ctx, storage.Where(storage.EqualTo("status", models.ProjectActive)))
}

func (p *Projects) FindArchived(ctx context.Context) ([]*models.Project, error) {
	return p.coll().Find(ctx, storage.Where(storage.EqualTo("status", models.ProjectArchived)))
}

// Search matches text case-insensitively against name or description.
func (p *Projects) Search(ctx context.Context, text string) ([]*models.Project, error) {
	q := storage.Query{}.Or(storage.Like("name", text), storage.Like("description", text))
	return p.coll().Find(ctx, q)
}

// ActiveSprint returns the project's active sprint.
func (p *Projects) ActiveSprint(ctx context.Context, projectID string) (*models.Sprint, error) {
	if _, err := p.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return p.sprints.ActiveSprint(ctx, projectID)
}

func (p *Projects) UpcomingSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	if _, err := p.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return p.sprints.UpcomingSprints(ctx, projectID)
}

func (p *Projects) CompletedSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	if _, err := p.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return p.sprints.CompletedSprints(ctx, projectID)
}

// Tasks returns every task of the project ordered by its sort key.
func (p *Projects) Tasks(ctx context.Context, projectID string) ([]*models.Task, error) {
	if _, err := p.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return p.tasks.FindByProject(ctx, projectID)
}

func (p *Projects) TasksByStatus(ctx context.Context, projectID string, status models.TaskStatus) ([]*models.Task, error) {
	if _, err := p.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return p.tasks.find(ctx, storage.Where(
		storage.EqualTo("projectId", projectID),
		storage.EqualTo("status", status),
	))
}

// Members resolves the member ids. Ids of deleted users are skipped.
func (p *Projects) Members(ctx context.Context, projectID string) ([]*models.User, error) {
	project, err := p.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return loadAll(ctx, p.store.Users(), project.MemberIDs)
}

// Owner resolves the owner reference.
func (p *Projects) Owner(ctx context.Context, projectID string) (*models.User, error) {
	project, err := p.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return p.store.Users().Get(ctx, project.OwnerID)
}
