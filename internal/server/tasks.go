package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

type statusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type assigneeRequest struct {
	UserID string `json:"userId"`
}

// timeRequest takes a pointer so an explicit zero is accepted.
type timeRequest struct {
	Hours *float64 `json:"hours" binding:"required"`
}

type orderRequest struct {
	Order float64 `json:"order"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

type attachmentRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required,url"`
}

type sprintRef struct {
	SprintID string `json:"sprintId" binding:"required"`
}

func (s *Server) registerTaskRoutes(tasks *gin.RouterGroup) {
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET(":id", s.handleGetTask)
	tasks.PUT(":id", s.handleUpdateTask)
	tasks.DELETE(":id", s.handleDeleteTask)
	tasks.PUT(":id/status", s.handleUpdateTaskStatus)
	tasks.PUT(":id/assignee", s.handleAssignTask)
	tasks.POST(":id/time", s.handleLogTime)
	tasks.PUT(":id/order", s.handleUpdateOrder)
	tasks.POST(":id/comments", s.handleAddComment)
	tasks.POST(":id/attachments", s.handleAddAttachment)
	tasks.PUT(":id/fields/:key", s.handleSetTaskField)
	tasks.DELETE(":id/fields/:key", s.handleRemoveTaskField)
	tasks.PUT(":id/sprint", s.handleMoveToSprint)
	tasks.DELETE(":id/sprint", s.handleMoveToBacklog)
}

// handleListTasks filters tasks by exactly one of ?project=, ?sprint=,
// ?status=, ?assignee= or ?q=.
func (s *Server) handleListTasks(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		tasks []*models.Task
		err   error
	)
	switch {
	case c.Query("project") != "":
		tasks, err = s.svc.Tasks.FindByProject(ctx, c.Query("project"))
	case c.Query("sprint") != "":
		tasks, err = s.svc.Tasks.FindBySprint(ctx, c.Query("sprint"))
	case c.Query("status") != "":
		tasks, err = s.svc.Tasks.FindByStatus(ctx, models.TaskStatus(c.Query("status")))
	case c.Query("assignee") != "":
		tasks, err = s.svc.Tasks.FindByAssignee(ctx, c.Query("assignee"))
	case c.Query("q") != "":
		tasks, err = s.svc.Tasks.Search(ctx, c.Query("q"))
	default:
		tasks, err = s.svc.Tasks.FindByAssignee(ctx, currentUserID(c))
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": orEmpty(tasks)})
}

// handleCreateTask inserts a new task into a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req service.NewTask
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.svc.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask updates task fields such as status or description.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var patch service.TaskPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	task, err := s.svc.Tasks.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.svc.Tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleUpdateTaskStatus moves a task to another board column.
func (s *Server) handleUpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleAssignTask sets the assignee; an empty userId unassigns.
func (s *Server) handleAssignTask(c *gin.Context) {
	var req assigneeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.AssignTo(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleLogTime(c *gin.Context) {
	var req timeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.LogTime(c.Request.Context(), c.Param("id"), *req.Hours)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleUpdateOrder(c *gin.Context) {
	var req orderRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.UpdateOrder(c.Request.Context(), c.Param("id"), req.Order)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleAddComment appends a comment authored by the caller.
func (s *Server) handleAddComment(c *gin.Context) {
	var req commentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.AddComment(c.Request.Context(), c.Param("id"), req.Text, currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleAddAttachment(c *gin.Context) {
	var req attachmentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.AddAttachment(c.Request.Context(), c.Param("id"), req.Name, req.URL)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleSetTaskField(c *gin.Context) {
	var req fieldValue
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.AddCustomField(c.Request.Context(), c.Param("id"), c.Param("key"), req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleRemoveTaskField(c *gin.Context) {
	task, err := s.svc.Tasks.RemoveCustomField(c.Request.Context(), c.Param("id"), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleMoveToSprint sets the task's sprint reference. The sprint's task
// set is managed through the sprint routes.
func (s *Server) handleMoveToSprint(c *gin.Context) {
	var req sprintRef
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.svc.Tasks.MoveToSprint(c.Request.Context(), c.Param("id"), req.SprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleMoveToBacklog(c *gin.Context) {
	task, err := s.svc.Tasks.MoveToBacklog(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}
