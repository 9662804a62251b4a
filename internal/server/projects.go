package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

type projectRequest struct {
	Name         string         `json:"name" binding:"required"`
	Description  string         `json:"description"`
	WorkflowID   string         `json:"workflowId"`
	CustomFields map[string]any `json:"customFields"`
}

type workflowRef struct {
	WorkflowID string `json:"workflowId" binding:"required"`
}

type fieldValue struct {
	Value any `json:"value"`
}

func (s *Server) registerProjectRoutes(projects *gin.RouterGroup) {
	projects.GET("", s.handleListProjects)
	projects.POST("", s.handleCreateProject)
	projects.GET(":id", s.handleGetProject)
	projects.PUT(":id", s.handleUpdateProject)
	projects.DELETE(":id", s.handleDeleteProject)

	projects.PUT(":id/members/:userId", s.handleProjectSet(s.svc.Projects.AddMember, "userId"))
	projects.DELETE(":id/members/:userId", s.handleProjectSet(s.svc.Projects.RemoveMember, "userId"))
	projects.PUT(":id/sprints/:sprintId", s.handleProjectSet(s.svc.Projects.AddSprint, "sprintId"))
	projects.DELETE(":id/sprints/:sprintId", s.handleProjectSet(s.svc.Projects.RemoveSprint, "sprintId"))
	projects.PUT(":id/backlog/:taskId", s.handleProjectSet(s.svc.Projects.AddTaskToBacklog, "taskId"))
	projects.DELETE(":id/backlog/:taskId", s.handleProjectSet(s.svc.Projects.RemoveTaskFromBacklog, "taskId"))

	projects.PUT(":id/workflow", s.handleSetWorkflow)
	projects.POST(":id/archive", s.handleProjectState(s.svc.Projects.Archive))
	projects.POST(":id/activate", s.handleProjectState(s.svc.Projects.Activate))
	projects.PUT(":id/fields/:key", s.handleSetProjectField)
	projects.DELETE(":id/fields/:key", s.handleRemoveProjectField)

	projects.GET(":id/members", s.handleProjectMembers)
	projects.GET(":id/owner", s.handleProjectOwner)
	projects.GET(":id/sprints", s.handleProjectSprints)
	projects.GET(":id/sprints/active", s.handleActiveSprint)
	projects.GET(":id/tasks", s.handleProjectTasks)
	projects.GET(":id/backlog", s.handleProjectBacklog)
}

// handleListProjects returns projects, optionally filtered by ?member=,
// ?owner=, ?status= or a ?q= search.
func (s *Server) handleListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		projects []*models.Project
		err      error
	)
	switch {
	case c.Query("member") != "":
		projects, err = s.svc.Projects.FindByMember(ctx, c.Query("member"))
	case c.Query("owner") != "":
		projects, err = s.svc.Projects.FindByOwner(ctx, c.Query("owner"))
	case c.Query("q") != "":
		projects, err = s.svc.Projects.Search(ctx, c.Query("q"))
	case c.Query("status") == string(models.ProjectActive):
		projects, err = s.svc.Projects.FindActive(ctx)
	case c.Query("status") == string(models.ProjectArchived):
		projects, err = s.svc.Projects.FindArchived(ctx)
	default:
		projects, err = s.svc.Projects.List(ctx)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": orEmpty(projects)})
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.svc.Projects.Create(c.Request.Context(), service.NewProject{
		Name:         req.Name,
		Description:  req.Description,
		OwnerID:      currentUserID(c),
		WorkflowID:   req.WorkflowID,
		CustomFields: req.CustomFields,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.svc.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var patch service.ProjectPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	project, err := s.svc.Projects.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes the project only; sprints and tasks stay.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.svc.Projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleProjectSet adapts an idempotent set add or remove to a route whose
// second path parameter carries the value.
func (s *Server) handleProjectSet(op func(context.Context, string, string) (*models.Project, error), param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := op(c.Request.Context(), c.Param("id"), c.Param(param))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"project": project})
	}
}

func (s *Server) handleProjectState(op func(context.Context, string) (*models.Project, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := op(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"project": project})
	}
}

func (s *Server) handleSetWorkflow(c *gin.Context) {
	var req workflowRef
	if !s.bindJSON(c, &req) {
		return
	}
	project, err := s.svc.Projects.SetWorkflow(c.Request.Context(), c.Param("id"), req.WorkflowID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleSetProjectField(c *gin.Context) {
	var req fieldValue
	if !s.bindJSON(c, &req) {
		return
	}
	project, err := s.svc.Projects.AddCustomField(c.Request.Context(), c.Param("id"), c.Param("key"), req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleRemoveProjectField(c *gin.Context) {
	project, err := s.svc.Projects.RemoveCustomField(c.Request.Context(), c.Param("id"), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleProjectMembers(c *gin.Context) {
	members, err := s.svc.Projects.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": publicUsers(members)})
}

func (s *Server) handleProjectOwner(c *gin.Context) {
	owner, err := s.svc.Projects.Owner(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": owner.Public()})
}

// handleProjectSprints lists the project's sprints, narrowed by
// ?state=upcoming or ?state=completed.
func (s *Server) handleProjectSprints(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	var (
		sprints []*models.Sprint
		err     error
	)
	switch c.Query("state") {
	case "upcoming":
		sprints, err = s.svc.Projects.UpcomingSprints(ctx, id)
	case "completed":
		sprints, err = s.svc.Projects.CompletedSprints(ctx, id)
	case "":
		if _, err = s.svc.Projects.Get(ctx, id); err == nil {
			sprints, err = s.svc.Sprints.List(ctx, id)
		}
	default:
		err = fmt.Errorf("%w: unknown sprint state %q", models.ErrValidation, c.Query("state"))
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": orEmpty(sprints)})
}

func (s *Server) handleActiveSprint(c *gin.Context) {
	sprint, err := s.svc.Projects.ActiveSprint(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleProjectTasks lists the project's tasks, optionally only those in
// ?status=.
func (s *Server) handleProjectTasks(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		tasks []*models.Task
		err   error
	)
	if status := c.Query("status"); status != "" {
		tasks, err = s.svc.Projects.TasksByStatus(ctx, c.Param("id"), models.TaskStatus(status))
	} else {
		tasks, err = s.svc.Projects.Tasks(ctx, c.Param("id"))
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": orEmpty(tasks)})
}

// handleProjectBacklog lists the project's tasks without a sprint.
func (s *Server) handleProjectBacklog(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.svc.Projects.Get(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	tasks, err := s.svc.Tasks.FindBacklog(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": orEmpty(tasks)})
}
