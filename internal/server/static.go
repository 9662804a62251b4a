package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
)

const apiPrefix = "/api"

// mountStatic serves the board frontend from staticDir. Every top-level
// entry of the build output is exposed under its own name and unknown GET
// paths fall back to index.html for client-side routing. Unknown paths under
// prefix always answer with a JSON 404.
func (s *Server) mountStatic(prefix string) {
	index := s.indexFile()
	if index != "" {
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
		s.mountBuildOutput(prefix)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if index == "" || isUnder(path, prefix) || c.Request.Method != http.MethodGet {
			s.respondError(c, fmt.Errorf("%w: no route for %s %s", models.ErrNotFound, c.Request.Method, path))
			return
		}
		c.File(index)
	})
}

// indexFile returns the path of index.html, or "" when the frontend is not
// available.
func (s *Server) indexFile() string {
	if s.staticDir == "" {
		s.logger.Warn().Msg("static directory not configured; serving the API only")
		return ""
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn().Str("path", s.staticDir).Err(err).Msg("static directory missing")
		return ""
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Warn().Str("path", index).Err(err).Msg("index.html not found")
		return ""
	}
	return index
}

func (s *Server) mountBuildOutput(prefix string) {
	entries, err := os.ReadDir(s.staticDir)
	if err != nil {
		s.logger.Warn().Str("path", s.staticDir).Err(err).Msg("read static directory")
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		route := "/" + name
		if name == "index.html" || strings.HasPrefix(name, ".") || isUnder(route, prefix) {
			continue
		}
		path := filepath.Join(s.staticDir, name)
		if entry.IsDir() {
			s.engine.StaticFS(route, gin.Dir(path, false))
		} else {
			s.engine.StaticFile(route, path)
		}
		s.logger.Debug().Str("route", route).Msg("static entry mounted")
	}
}

func isUnder(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
