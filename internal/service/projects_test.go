package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/models"
)

func TestProjects_CreateDefaults(t *testing.T) {
	svc, clock := newTestService(t)
	owner := createTestUser(t, svc, "owner@example.com")

	project := createTestProject(t, svc, "  Alpha  ", owner.ID)

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, "Alpha", project.Name)
	assert.Equal(t, models.ProjectActive, project.Status)
	assert.Empty(t, project.MemberIDs)
	assert.Empty(t, project.SprintIDs)
	assert.Empty(t, project.BacklogTaskIDs)
	assert.True(t, project.CreatedAt.Equal(clock.now))

	// the owner is not implicitly a member
	assert.NotContains(t, project.MemberIDs, owner.ID)
}

func TestProjects_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Projects.Create(ctx, NewProject{OwnerID: "u1"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Projects.Create(ctx, NewProject{Name: "Alpha"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProjects_AddMemberIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	_, err := svc.Projects.AddMember(ctx, project.ID, "u2")
	require.NoError(t, err)
	updated, err := svc.Projects.AddMember(ctx, project.ID, "u2")
	require.NoError(t, err)

	assert.Equal(t, []string{"u2"}, updated.MemberIDs)

	stored, err := svc.Projects.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, stored.MemberIDs)
}

func TestProjects_RemoveAbsentMemberIsNoop(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	_, err := svc.Projects.AddMember(ctx, project.ID, "u2")
	require.NoError(t, err)
	before, err := svc.Projects.Get(ctx, project.ID)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	after, err := svc.Projects.RemoveMember(ctx, project.ID, "u3")
	require.NoError(t, err)

	assert.Equal(t, []string{"u2"}, after.MemberIDs)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))
}

func TestProjects_RemoveMemberKeepsOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Projects.AddMember(ctx, project.ID, id)
		require.NoError(t, err)
	}
	updated, err := svc.Projects.RemoveMember(ctx, project.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, updated.MemberIDs)
}

func TestProjects_MembershipUnknownProject(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Projects.AddMember(context.Background(), "missing", "u2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProjects_MembershipEmptyID(t *testing.T) {
	svc, _ := newTestService(t)
	project := createTestProject(t, svc, "Alpha", "u1")

	_, err := svc.Projects.AddMember(context.Background(), project.ID, " ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProjects_SprintAndBacklogSets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	_, err := svc.Projects.AddSprint(ctx, project.ID, "s1")
	require.NoError(t, err)
	_, err = svc.Projects.AddSprint(ctx, project.ID, "s1")
	require.NoError(t, err)
	_, err = svc.Projects.AddTaskToBacklog(ctx, project.ID, "t1")
	require.NoError(t, err)
	_, err = svc.Projects.AddTaskToBacklog(ctx, project.ID, "t2")
	require.NoError(t, err)

	updated, err := svc.Projects.RemoveTaskFromBacklog(ctx, project.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, updated.SprintIDs)
	assert.Equal(t, []string{"t2"}, updated.BacklogTaskIDs)

	updated, err = svc.Projects.RemoveSprint(ctx, project.ID, "s1")
	require.NoError(t, err)
	assert.Empty(t, updated.SprintIDs)
}

func TestProjects_ArchiveActivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alpha := createTestProject(t, svc, "Alpha", "u1")
	createTestProject(t, svc, "Beta", "u1")

	archived, err := svc.Projects.Archive(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectArchived, archived.Status)

	// archiving twice is allowed
	_, err = svc.Projects.Archive(ctx, alpha.ID)
	require.NoError(t, err)

	list, err := svc.Projects.FindArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha", list[0].Name)

	list, err = svc.Projects.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Beta", list[0].Name)

	activated, err := svc.Projects.Activate(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, activated.Status)
}

func TestProjects_SetWorkflow(t *testing.T) {
	svc, _ := newTestService(t)
	project := createTestProject(t, svc, "Alpha", "u1")

	updated, err := svc.Projects.SetWorkflow(context.Background(), project.ID, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", updated.WorkflowID)
}

func TestProjects_CustomFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")
	assert.Nil(t, project.CustomFields)

	_, err := svc.Projects.AddCustomField(ctx, project.ID, "team", "core")
	require.NoError(t, err)
	updated, err := svc.Projects.AddCustomField(ctx, project.ID, "budget", 1200.5)
	require.NoError(t, err)
	assert.Equal(t, "core", updated.CustomFields["team"])

	stored, err := svc.Projects.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1200.5, stored.CustomFields["budget"])

	updated, err = svc.Projects.RemoveCustomField(ctx, project.ID, "team")
	require.NoError(t, err)
	assert.NotContains(t, updated.CustomFields, "team")

	_, err = svc.Projects.AddCustomField(ctx, project.ID, "", 1)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProjects_Queries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	frontend := createTestProject(t, svc, "Frontend Revamp", "u1")
	_, err := svc.Projects.Create(ctx, NewProject{Name: "Billing", Description: "Move invoices to the new FRONT office", OwnerID: "u2"})
	require.NoError(t, err)
	createTestProject(t, svc, "Infra", "u2")

	_, err = svc.Projects.AddMember(ctx, frontend.ID, "u9")
	require.NoError(t, err)

	found, err := svc.Projects.Search(ctx, "front")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Frontend Revamp", found[0].Name)
	assert.Equal(t, "Billing", found[1].Name)

	found, err = svc.Projects.Search(ctx, "REVAMP")
	require.NoError(t, err)
	require.Len(t, found, 1)

	byOwner, err := svc.Projects.FindByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byMember, err := svc.Projects.FindByMember(ctx, "u9")
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, frontend.ID, byMember[0].ID)
}

func TestProjects_MembersAndOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := createTestUser(t, svc, "owner@example.com")
	member := createTestUser(t, svc, "member@example.com")
	project := createTestProject(t, svc, "Alpha", owner.ID)

	_, err := svc.Projects.AddMember(ctx, project.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.Projects.AddMember(ctx, project.ID, "deleted-user")
	require.NoError(t, err)

	users, err := svc.Projects.Members(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, member.Email, users[0].Email)

	got, err := svc.Projects.Owner(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
}

func TestProjects_DerivedSprintAndTaskQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	s1 := createTestSprint(t, svc, "S1", project.ID)
	createTestSprint(t, svc, "S2", project.ID)

	_, err := svc.Projects.ActiveSprint(ctx, project.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Sprints.Start(ctx, s1.ID)
	require.NoError(t, err)

	active, err := svc.Projects.ActiveSprint(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, active.ID)

	upcoming, err := svc.Projects.UpcomingSprints(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "S2", upcoming[0].Name)

	_, err = svc.Sprints.Complete(ctx, s1.ID)
	require.NoError(t, err)
	completed, err := svc.Projects.CompletedSprints(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, completed, 1)

	createTestTask(t, svc, NewTask{Title: "A", ProjectID: project.ID, Order: 2})
	createTestTask(t, svc, NewTask{Title: "B", ProjectID: project.ID, Order: 1, Status: models.TaskDone})

	tasks, err := svc.Projects.Tasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "B", tasks[0].Title)

	done, err := svc.Projects.TasksByStatus(ctx, project.ID, models.TaskDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "B", done[0].Title)

	_, err = svc.Projects.Tasks(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProjects_DeleteDoesNotCascade(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")
	sprint := createTestSprint(t, svc, "S1", project.ID)
	task := createTestTask(t, svc, NewTask{Title: "T1", ProjectID: project.ID})

	require.NoError(t, svc.Projects.Delete(ctx, project.ID))

	_, err := svc.Projects.Get(ctx, project.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Sprints.Get(ctx, sprint.ID)
	assert.NoError(t, err)
	_, err = svc.Tasks.Get(ctx, task.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Projects.Delete(ctx, project.ID), models.ErrNotFound)
}

func TestProjects_Update(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Alpha", "u1")

	name := "Alpha 2"
	bad := models.ProjectStatus("frozen")
	updated, err := svc.Projects.Update(ctx, project.ID, ProjectPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alpha 2", updated.Name)

	_, err = svc.Projects.Update(ctx, project.ID, ProjectPatch{Status: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)
}
