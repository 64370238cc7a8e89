package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func samplePage() TaskPage {
	d := "desc"
	return TaskPage{
		Data: []Task{
			{ID: "a", Title: "A", Status: StatusTodo, Description: &d},
			{ID: "b", Title: "B", Status: StatusInProgress},
			{ID: "c", Title: "C", Status: StatusDone},
		},
		Meta: Meta{Page: 1, Limit: 2, Total: 3, TotalPages: 2},
	}
}

func TestPatchTaskLeavesInputAlone(t *testing.T) {
	in := samplePage()
	title := "A2"
	out := PatchTask(in, "a", Patch{Title: &title, Status: statusPtr(StatusDone), ClearDescription: true})

	assert.Equal(t, "A2", out.Data[0].Title)
	assert.Equal(t, StatusDone, out.Data[0].Status)
	assert.Nil(t, out.Data[0].Description)

	assert.Equal(t, "A", in.Data[0].Title)
	assert.Equal(t, StatusTodo, in.Data[0].Status)
	assert.NotNil(t, in.Data[0].Description)
	assert.Equal(t, in.Data[1:], out.Data[1:])
}

func TestPatchTaskUnknownID(t *testing.T) {
	in := samplePage()
	assert.Equal(t, in, PatchTask(in, "zzz", Patch{Status: statusPtr(StatusDone)}))
}

func TestRemoveTask(t *testing.T) {
	in := samplePage()
	out := RemoveTask(in, "b")
	assert.Len(t, out.Data, 2)
	assert.Equal(t, "c", out.Data[1].ID)
	assert.EqualValues(t, 2, out.Meta.Total)
	assert.EqualValues(t, 1, out.Meta.TotalPages)
	assert.Len(t, in.Data, 3)
	assert.Equal(t, "b", in.Data[1].ID)

	assert.Equal(t, in, RemoveTask(in, "zzz"))
}

func TestInsertTask(t *testing.T) {
	in := RemoveTask(samplePage(), "b")
	out := InsertTask(in, Task{ID: "b", Title: "B"}, 1)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out.Data[0].ID, out.Data[1].ID, out.Data[2].ID})
	assert.EqualValues(t, 3, out.Meta.Total)
	assert.EqualValues(t, 2, out.Meta.TotalPages)
	assert.Len(t, in.Data, 2)

	assert.Equal(t, out, InsertTask(out, Task{ID: "b"}, 0), "already present")
	tail := InsertTask(in, Task{ID: "z"}, 99)
	assert.Equal(t, "z", tail.Data[2].ID)
}

func TestReplaceTask(t *testing.T) {
	in := samplePage()
	out := ReplaceTask(in, Task{ID: "c", Title: "server", Status: StatusTodo})
	assert.Equal(t, "server", out.Data[2].Title)
	assert.Equal(t, "C", in.Data[2].Title)
}

func TestPatchJSON(t *testing.T) {
	due := time.Date(2030, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	title := "t"
	cases := []struct {
		p    Patch
		want string
	}{
		{Patch{}, `{}`},
		{Patch{Title: &title}, `{"title":"t"}`},
		{Patch{Status: statusPtr(StatusDone)}, `{"status":"DONE"}`},
		{Patch{ClearDescription: true, ClearDueDate: true}, `{"description":null,"dueDate":null}`},
		{Patch{DueDate: &due}, `{"dueDate":"2030-01-02T02:04:05Z"}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.p)
		assert.NoError(t, err)
		assert.JSONEq(t, tc.want, string(b))
	}
}

func TestTaskCacheCopies(t *testing.T) {
	c := NewTaskCache()
	q := Query{Page: 1, Limit: 2}
	p := samplePage()
	c.Set(q, p)

	p.Data[0].Title = "mutated"
	got, ok := c.Get(q)
	assert.True(t, ok)
	assert.Equal(t, "A", got.Data[0].Title)

	got.Data[0].Title = "mutated again"
	again, _ := c.Get(q)
	assert.Equal(t, "A", again.Data[0].Title)
}

func TestTaskCacheInvalidate(t *testing.T) {
	c := NewTaskCache()
	q1 := Query{Page: 1, Limit: 10}
	q2 := Query{Page: 1, Limit: 10, Status: StatusDone}
	q3 := Query{Page: 2, Limit: 10, Q: "milk"}
	for _, q := range []Query{q1, q2, q3} {
		c.Set(q, samplePage())
	}
	c.InvalidateExcept(q2)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(q2)
	assert.True(t, ok)

	c.InvalidateExcept()
	assert.Equal(t, 0, c.Len())
}

func TestQueryValues(t *testing.T) {
	assert.Equal(t, "", Query{}.Values().Encode())
	assert.Equal(t, "limit=5&page=2&q=a+b&status=DONE",
		Query{Page: 2, Limit: 5, Status: StatusDone, Q: "a b"}.Values().Encode())
}
