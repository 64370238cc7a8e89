package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func TestAdminListUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "admin@example.com", domain.RoleAdmin)
	f.addUser(t, "a@test.com", domain.RoleUser)

	users, err := f.admSv.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.Contains(t, ids, admin.ID)

	b, err := json.Marshal(users)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(b, &rows))
	for _, r := range rows {
		assert.ElementsMatch(t, []string{"id", "email", "name", "role", "createdAt"}, keys(r))
	}
}

func TestAdminListAllTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addUser(t, "a@test.com", domain.RoleUser)
	b := f.addUser(t, "b@test.com", domain.RoleUser)

	_, err := f.taskSv.Create(ctx, a.ID, CreateTaskInput{Title: "first"})
	require.NoError(t, err)
	_, err = f.taskSv.Create(ctx, b.ID, CreateTaskInput{Title: "second"})
	require.NoError(t, err)

	rows, err := f.admSv.ListAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Title)
	assert.Equal(t, OwnerRef{ID: b.ID, Email: "b@test.com"}, rows[0].User)
	assert.Equal(t, OwnerRef{ID: a.ID, Email: "a@test.com"}, rows[1].User)

	raw, err := json.Marshal(rows[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "second", m["title"])
	assert.Equal(t, map[string]any{"id": b.ID, "email": "b@test.com"}, m["user"])
}

func TestAdminListsEmpty(t *testing.T) {
	f := newFixture(t)
	users, err := f.admSv.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	tasks, err := f.admSv.ListAllTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
