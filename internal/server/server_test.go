package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/service"
	"tracker/internal/storage/sqlite"
)

type testAPI struct {
	t      *testing.T
	srv    *Server
	svc    *service.Service
	tokens *auth.Tokens
	token  string
	userID string
}

func newTestAPI(t *testing.T, staticDir string) *testAPI {
	t.Helper()
	store, err := sqlite.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := service.New(store, auth.NewBcryptHasher(bcrypt.MinCost), zerolog.Nop())
	tokens := auth.NewTokens("test-secret", time.Hour)
	return &testAPI{t: t, srv: New(svc, tokens, zerolog.Nop(), staticDir), svc: svc, tokens: tokens}
}

// login registers a user through the API and keeps its token for later
// requests.
func (a *testAPI) login(email string) {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/api/auth/register", map[string]any{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	a.token = body["token"].(string)
	a.userID = body["user"].(map[string]any)["id"].(string)
}

// loginAdmin registers a user, grants it the admin role and logs in again so
// the token carries the new role.
func (a *testAPI) loginAdmin(email string) {
	a.t.Helper()
	a.login(email)
	role := models.RoleAdmin
	_, err := a.svc.Users.Update(context.Background(), a.userID, service.UserPatch{Role: &role})
	require.NoError(a.t, err)

	rec, body := a.do(http.MethodPost, "/api/auth/login", map[string]any{"email": email, "password": "secret123"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	a.token = body["token"].(string)
}

func (a *testAPI) do(method, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.srv.Engine().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

// create posts payload and returns the id of the object under key.
func (a *testAPI) create(path, key string, payload any) string {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, path, payload)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return body[key].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, "")
	rec, body := api.do(http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, "")

	rec, _ := api.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.token = "garbage"
	rec, _ = api.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	api.token = ""

	api.login("ada@example.com")

	rec, body := api.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")

	api.token = ""
	rec, _ = api.do(http.MethodPost, "/api/auth/register", map[string]any{"email": "ada@example.com", "password": "another1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = api.do(http.MethodPost, "/api/auth/register", map[string]any{"email": "not-an-email", "password": "another1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = api.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "ada@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])
	assert.NotNil(t, body["user"].(map[string]any)["lastLogin"])
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("ada@example.com")
	path := "/api/users/" + api.userID + "/password"

	rec, _ := api.do(http.MethodPut, path, map[string]any{"current": "nope", "password": "brandnew"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(http.MethodPut, path, map[string]any{"current": "secret123", "password": "brandnew"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRoutesRequireOwnerOrAdmin(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("victim@example.com")
	victimID := api.userID
	api.login("mallory@example.com")
	selfID := api.userID

	rec, _ := api.do(http.MethodPut, "/api/users/"+selfID, map[string]any{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := api.do(http.MethodPut, "/api/users/"+selfID, map[string]any{"username": "mal"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user", body["user"].(map[string]any)["role"])

	victim := "/api/users/" + victimID
	cases := []struct {
		method, path string
		payload      any
	}{
		{http.MethodPut, victim, map[string]any{"email": "owned@example.com"}},
		{http.MethodDelete, victim, nil},
		{http.MethodPut, victim + "/password", map[string]any{"current": "secret123", "password": "brandnew"}},
		{http.MethodPut, victim + "/preferences", map[string]any{"theme": "dark"}},
		{http.MethodPut, victim + "/projects/p1", nil},
		{http.MethodDelete, victim + "/projects/p1", nil},
		{http.MethodPut, victim + "/tasks/t1", nil},
		{http.MethodDelete, victim + "/tasks/t1", nil},
	}
	for _, tc := range cases {
		rec, _ := api.do(tc.method, tc.path, tc.payload)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec, body = api.do(http.MethodGet, victim, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "victim@example.com", body["user"].(map[string]any)["email"])

	api.loginAdmin("root@example.com")
	rec, body = api.do(http.MethodPut, victim, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", body["user"].(map[string]any)["role"])

	rec, _ = api.do(http.MethodDelete, victim, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectRoutes(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("ada@example.com")

	rec, _ := api.do(http.MethodPost, "/api/projects", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	projectID := api.create("/api/projects", "project", map[string]any{"name": "Alpha"})

	rec, body := api.do(http.MethodPut, "/api/projects/"+projectID+"/members/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = api.do(http.MethodPut, "/api/projects/"+projectID+"/members/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	project := body["project"].(map[string]any)
	assert.Equal(t, []any{"u2"}, project["memberIds"])
	assert.Equal(t, api.userID, project["ownerId"])

	rec, body = api.do(http.MethodGet, "/api/projects?member=u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["projects"], 1)

	rec, body = api.do(http.MethodGet, "/api/projects?status=archived", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["projects"])

	rec, _ = api.do(http.MethodPost, "/api/projects/"+projectID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = api.do(http.MethodGet, "/api/projects?status=archived", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["projects"], 1)

	rec, body = api.do(http.MethodGet, "/api/projects/"+projectID+"/owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.userID, body["user"].(map[string]any)["id"])

	rec, _ = api.do(http.MethodGet, "/api/projects/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = api.do(http.MethodDelete, "/api/projects/"+projectID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", body["status"])
}

func TestSprintLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("ada@example.com")

	projectID := api.create("/api/projects", "project", map[string]any{"name": "Alpha"})
	sprintID := api.create("/api/sprints", "sprint", map[string]any{
		"name":      "S1",
		"projectId": projectID,
		"startDate": "2024-03-04T00:00:00Z",
		"endDate":   "2024-03-18T00:00:00Z",
	})
	taskID := api.create("/api/tasks", "task", map[string]any{"title": "T1", "projectId": projectID, "points": 3})

	rec, _ := api.do(http.MethodPut, "/api/tasks/"+taskID+"/sprint", map[string]any{"sprintId": sprintID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = api.do(http.MethodPut, "/api/sprints/"+sprintID+"/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodPost, "/api/sprints/"+sprintID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := api.do(http.MethodPost, "/api/sprints/"+sprintID+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["sprint"].(map[string]any)["status"])

	rec, body = api.do(http.MethodGet, "/api/projects/"+projectID+"/sprints/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sprintID, body["sprint"].(map[string]any)["id"])

	rec, _ = api.do(http.MethodPut, "/api/tasks/"+taskID+"/status", map[string]any{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = api.do(http.MethodPut, "/api/tasks/"+taskID+"/status", map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodPost, "/api/sprints/"+sprintID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = api.do(http.MethodGet, "/api/sprints/"+sprintID+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["completedCount"])
	assert.Equal(t, 3.0, summary["totalPoints"])
	assert.Equal(t, 100.0, summary["progress"])

	rec, body = api.do(http.MethodGet, "/api/projects/"+projectID+"/sprints?state=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["sprints"], 1)
}

func TestTaskRoutes(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("ada@example.com")

	projectID := api.create("/api/projects", "project", map[string]any{"name": "Alpha"})
	taskID := api.create("/api/tasks", "task", map[string]any{"title": "T1", "projectId": projectID})

	rec, body := api.do(http.MethodPost, "/api/tasks/"+taskID+"/comments", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	comments := body["task"].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, api.userID, comments[0].(map[string]any)["authorId"])

	rec, _ = api.do(http.MethodPost, "/api/tasks/"+taskID+"/attachments", map[string]any{"name": "a", "url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.do(http.MethodPost, "/api/tasks/"+taskID+"/time", map[string]any{"hours": 2})
	rec, body = api.do(http.MethodPost, "/api/tasks/"+taskID+"/time", map[string]any{"hours": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, body["task"].(map[string]any)["timeSpent"])

	rec, body = api.do(http.MethodPost, "/api/tasks/"+taskID+"/time", map[string]any{"hours": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, body["task"].(map[string]any)["timeSpent"])
	rec, _ = api.do(http.MethodPost, "/api/tasks/"+taskID+"/time", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(http.MethodPut, "/api/tasks/"+taskID+"/assignee", map[string]any{"userId": api.userID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = api.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 1)

	rec, body = api.do(http.MethodGet, "/api/projects/"+projectID+"/backlog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 1)

	rec, body = api.do(http.MethodGet, "/api/tasks?q=t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 1)

	rec, _ = api.do(http.MethodDelete, "/api/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = api.do(http.MethodGet, "/api/tasks/"+taskID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReferenceDataRoutes(t *testing.T) {
	api := newTestAPI(t, "")
	api.login("ada@example.com")

	api.create("/api/statuses", "status", map[string]any{"name": "done", "order": 5})
	todoID := api.create("/api/statuses", "status", map[string]any{"name": "todo", "order": 0, "isDefault": true})

	rec, _ := api.do(http.MethodPost, "/api/statuses", map[string]any{"name": "todo"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := api.do(http.MethodGet, "/api/statuses/default", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, todoID, body["status"].(map[string]any)["id"])

	rec, body = api.do(http.MethodGet, "/api/statuses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := body["statuses"].([]any)
	require.Len(t, statuses, 2)
	assert.Equal(t, "todo", statuses[0].(map[string]any)["name"])

	workflowID := api.create("/api/workflows", "workflow", map[string]any{"name": "Default", "statuses": []string{"todo", "done"}})
	rec, body = api.do(http.MethodGet, "/api/workflows/Default?by=name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflowID, body["workflow"].(map[string]any)["id"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusUnauthorized, statusFor(service.ErrInvalidCredentials))
	assert.Equal(t, http.StatusForbidden, statusFor(models.ErrForbidden))
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "favicon.ico"), []byte("icon"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "assets"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600))
	api := newTestAPI(t, dir)

	rec, _ := api.do(http.MethodGet, "/board/42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board")

	rec, _ = api.do(http.MethodGet, "/assets/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	rec, _ = api.do(http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "icon", rec.Body.String())

	rec, body := api.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "no route for GET /api/nope")

	rec, _ = api.do(http.MethodPost, "/board/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRouteWithoutFrontend(t *testing.T) {
	api := newTestAPI(t, "")

	rec, body := api.do(http.MethodGet, "/board/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "not found")
}
