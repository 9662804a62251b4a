package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/service"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authRequired rejects requests without a valid bearer token and stores the
// caller's id and role in the context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			s.respondError(c, fmt.Errorf("%w: missing bearer token", auth.ErrInvalidToken))
			return
		}

		claims, err := s.tokens.Verify(raw)
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == string(models.RoleAdmin)
}

// selfOrAdmin restricts a /users/:id route to the account owner and admins.
func (s *Server) selfOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("id") != currentUserID(c) && !isAdmin(c) {
			s.respondError(c, fmt.Errorf("%w: user %s may not modify user %s",
				models.ErrForbidden, currentUserID(c), c.Param("id")))
			return
		}
		c.Next()
	}
}

// handleRegister creates a regular account. Roles are granted through the
// user update route.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.svc.Users.Register(c.Request.Context(), service.NewUser{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondWithToken(c, http.StatusCreated, user.ID, string(user.Role), user.Public())
}

// handleLogin exchanges credentials for a bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.svc.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondWithToken(c, http.StatusOK, user.ID, string(user.Role), user.Public())
}

func (s *Server) respondWithToken(c *gin.Context, status int, userID, role string, user any) {
	token, err := s.tokens.Issue(userID, role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, status, gin.H{"token": token, "user": user})
}

// handleMe returns the authenticated user.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.svc.Users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user.Public()})
}
