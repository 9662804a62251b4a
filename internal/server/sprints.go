package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

func (s *Server) registerSprintRoutes(sprints *gin.RouterGroup) {
	sprints.POST("", s.handleCreateSprint)
	sprints.GET(":id", s.handleGetSprint)
	sprints.PUT(":id", s.handleUpdateSprint)
	sprints.DELETE(":id", s.handleDeleteSprint)
	sprints.POST(":id/start", s.handleSprintLifecycle(s.svc.Sprints.Start))
	sprints.POST(":id/complete", s.handleSprintLifecycle(s.svc.Sprints.Complete))
	sprints.GET(":id/tasks", s.handleSprintTasks)
	sprints.PUT(":id/tasks/:taskId", s.handleSprintTask(true))
	sprints.DELETE(":id/tasks/:taskId", s.handleSprintTask(false))
	sprints.GET(":id/summary", s.handleSprintSummary)
}

// handleCreateSprint creates a planning sprint. The sprint is not added to
// the project's sprint set; that is a separate call.
func (s *Server) handleCreateSprint(c *gin.Context) {
	var req service.NewSprint
	if !s.bindJSON(c, &req) {
		return
	}
	sprint, err := s.svc.Sprints.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}

func (s *Server) handleGetSprint(c *gin.Context) {
	sprint, err := s.svc.Sprints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

func (s *Server) handleUpdateSprint(c *gin.Context) {
	var patch service.SprintPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	sprint, err := s.svc.Sprints.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

func (s *Server) handleDeleteSprint(c *gin.Context) {
	if err := s.svc.Sprints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleSprintLifecycle(op func(context.Context, string) (*models.Sprint, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sprint, err := op(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
	}
}

func (s *Server) handleSprintTasks(c *gin.Context) {
	tasks, err := s.svc.Sprints.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": orEmpty(tasks)})
}

func (s *Server) handleSprintTask(add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := s.svc.Sprints.RemoveTask
		if add {
			op = s.svc.Sprints.AddTask
		}
		sprint, err := op(c.Request.Context(), c.Param("id"), c.Param("taskId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
	}
}

// handleSprintSummary reports task count, points and progress.
func (s *Server) handleSprintSummary(c *gin.Context) {
	summary, err := s.svc.Sprints.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"summary": summary})
}
