package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

type workflowRequest struct {
	Name     string   `json:"name" binding:"required"`
	Statuses []string `json:"statuses"`
}

func (s *Server) registerStatusRoutes(statuses *gin.RouterGroup) {
	statuses.GET("", s.handleListStatuses)
	statuses.POST("", s.handleCreateStatus)
	statuses.GET("default", s.handleDefaultStatus)
	statuses.GET(":id", s.handleGetStatus)
	statuses.PUT(":id", s.handleUpdateStatus)
	statuses.DELETE(":id", s.handleDeleteStatus)
}

func (s *Server) registerWorkflowRoutes(workflows *gin.RouterGroup) {
	workflows.GET("", s.handleListWorkflows)
	workflows.POST("", s.handleCreateWorkflow)
	workflows.GET(":id", s.handleGetWorkflow)
	workflows.PUT(":id", s.handleUpdateWorkflow)
	workflows.DELETE(":id", s.handleDeleteWorkflow)
}

// handleListStatuses returns board columns in display order.
func (s *Server) handleListStatuses(c *gin.Context) {
	statuses, err := s.svc.Statuses.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"statuses": orEmpty(statuses)})
}

func (s *Server) handleCreateStatus(c *gin.Context) {
	var req models.Status
	if !s.bindJSON(c, &req) {
		return
	}
	status, err := s.svc.Statuses.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"status": status})
}

func (s *Server) handleDefaultStatus(c *gin.Context) {
	status, err := s.svc.Statuses.Default(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleGetStatus(c *gin.Context) {
	status, err := s.svc.Statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var patch service.StatusPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	status, err := s.svc.Statuses.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleDeleteStatus(c *gin.Context) {
	if err := s.svc.Statuses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	workflows, err := s.svc.Workflows.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workflows": orEmpty(workflows)})
}

func (s *Server) handleCreateWorkflow(c *gin.Context) {
	var req workflowRequest
	if !s.bindJSON(c, &req) {
		return
	}
	workflow, err := s.svc.Workflows.Create(c.Request.Context(), req.Name, req.Statuses)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"workflow": workflow})
}

// handleGetWorkflow accepts an id or, with ?by=name, a workflow name.
func (s *Server) handleGetWorkflow(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		workflow *models.Workflow
		err      error
	)
	if c.Query("by") == "name" {
		workflow, err = s.svc.Workflows.GetByName(ctx, c.Param("id"))
	} else {
		workflow, err = s.svc.Workflows.Get(ctx, c.Param("id"))
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workflow": workflow})
}

func (s *Server) handleUpdateWorkflow(c *gin.Context) {
	var patch service.WorkflowPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	workflow, err := s.svc.Workflows.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workflow": workflow})
}

func (s *Server) handleDeleteWorkflow(c *gin.Context) {
	if err := s.svc.Workflows.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
