package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/storage/sqlite"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestService opens a fresh in-memory database and a controllable clock.
func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()

	store, err := sqlite.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := New(store, auth.NewBcryptHasher(bcrypt.MinCost), zerolog.Nop(), WithClock(clock.Now))
	return svc, clock
}

func createTestUser(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()
	user, err := svc.Users.Register(context.Background(), NewUser{Email: email, Password: "password"})
	require.NoError(t, err)
	return user
}

func createTestProject(t *testing.T, svc *Service, name, ownerID string) *models.Project {
	t.Helper()
	project, err := svc.Projects.Create(context.Background(), NewProject{Name: name, OwnerID: ownerID})
	require.NoError(t, err)
	return project
}

func createTestSprint(t *testing.T, svc *Service, name, projectID string) *models.Sprint {
	t.Helper()
	sprint, err := svc.Sprints.Create(context.Background(), NewSprint{
		Name:      name,
		ProjectID: projectID,
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return sprint
}

func createTestTask(t *testing.T, svc *Service, in NewTask) *models.Task {
	t.Helper()
	task, err := svc.Tasks.Create(context.Background(), in)
	require.NoError(t, err)
	return task
}
