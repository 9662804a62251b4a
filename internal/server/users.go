package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/service"
)

type passwordRequest struct {
	Current  string `json:"current" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (s *Server) registerUserRoutes(users *gin.RouterGroup) {
	users.GET("", s.handleListUsers)
	users.GET(":id", s.handleGetUser)

	owner := s.selfOrAdmin()
	users.PUT(":id", owner, s.handleUpdateUser)
	users.DELETE(":id", owner, s.handleDeleteUser)
	users.PUT(":id/password", owner, s.handleChangePassword)
	users.PUT(":id/preferences", owner, s.handleUpdatePreferences)
	users.PUT(":id/projects/:projectId", owner, s.handleUserProject(true))
	users.DELETE(":id/projects/:projectId", owner, s.handleUserProject(false))
	users.PUT(":id/tasks/:taskId", owner, s.handleUserTask(true))
	users.DELETE(":id/tasks/:taskId", owner, s.handleUserTask(false))
}

func publicUsers(users []*models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// handleListUsers returns every user, or the one matching ?email=.
func (s *Server) handleListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	if email := c.Query("email"); email != "" {
		user, err := s.svc.Users.FindByEmail(ctx, email)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"users": []models.User{user.Public()}})
		return
	}

	users, err := s.svc.Users.List(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": publicUsers(users)})
}

func (s *Server) handleGetUser(c *gin.Context) {
	user, err := s.svc.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}

// handleUpdateUser applies a profile patch. Only admins may change roles.
func (s *Server) handleUpdateUser(c *gin.Context) {
	var patch service.UserPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	if patch.Role != nil && !isAdmin(c) {
		s.respondError(c, fmt.Errorf("%w: only admins may change roles", models.ErrForbidden))
		return
	}
	user, err := s.svc.Users.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.svc.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleChangePassword requires the current password before replacing it.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req passwordRequest
	if !s.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	ok, err := s.svc.Users.ComparePassword(ctx, id, req.Current)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		s.respondError(c, service.ErrInvalidCredentials)
		return
	}

	user, err := s.svc.Users.ChangePassword(ctx, id, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}

func (s *Server) handleUpdatePreferences(c *gin.Context) {
	var patch service.PreferencesPatch
	if !s.bindJSON(c, &patch) {
		return
	}
	user, err := s.svc.Users.UpdatePreferences(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}

func (s *Server) handleUserProject(add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := s.svc.Users.RemoveProject
		if add {
			op = s.svc.Users.AddProject
		}
		user, err := op(c.Request.Context(), c.Param("id"), c.Param("projectId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
	}
}

func (s *Server) handleUserTask(add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := s.svc.Users.RemoveTask
		if add {
			op = s.svc.Users.AddTask
		}
		user, err := op(c.Request.Context(), c.Param("id"), c.Param("taskId"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
	}
}
