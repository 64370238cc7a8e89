package client

import (
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// Patch is a partial task update. Nil fields are left out of the request;
// the Clear flags send an explicit null.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	DueDate     *time.Time

	ClearDescription bool
	ClearDueDate     bool
}

func (p Patch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 4)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	switch {
	case p.ClearDescription:
		m["description"] = nil
	case p.Description != nil:
		m["description"] = *p.Description
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	switch {
	case p.ClearDueDate:
		m["dueDate"] = nil
	case p.DueDate != nil:
		m["dueDate"] = p.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(m)
}

// Apply returns t with p's fields written over it.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.ClearDescription:
		t.Description = nil
	case p.Description != nil:
		d := *p.Description
		t.Description = &d
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}

// PatchTask returns a copy of page with the task id patched. page is not
// modified.
func PatchTask(page TaskPage, id string, p Patch) TaskPage {
	out := clonePage(page)
	for i := range out.Data {
		if out.Data[i].ID == id {
			out.Data[i] = p.Apply(out.Data[i])
		}
	}
	return out
}

// ReplaceTask returns a copy of page with the task carrying t.ID swapped for t.
func ReplaceTask(page TaskPage, t Task) TaskPage {
	out := clonePage(page)
	for i := range out.Data {
		if out.Data[i].ID == t.ID {
			out.Data[i] = t
		}
	}
	return out
}

// RemoveTask returns a copy of page without the task id. Total and
// TotalPages drop with it.
func RemoveTask(page TaskPage, id string) TaskPage {
	out := clonePage(page)
	n := len(out.Data)
	out.Data = slices.DeleteFunc(out.Data, func(t Task) bool { return t.ID == id })
	if removed := int64(n - len(out.Data)); removed > 0 {
		out.Meta.Total = max(out.Meta.Total-removed, 0)
		if out.Meta.Limit > 0 {
			out.Meta.TotalPages = (out.Meta.Total + int64(out.Meta.Limit) - 1) / int64(out.Meta.Limit)
		}
	}
	return out
}

// InsertTask returns a copy of page with t placed at index at (clamped to the
// page bounds). Total and TotalPages grow with it. If page already holds
// t.ID the copy is returned unchanged.
func InsertTask(page TaskPage, t Task, at int) TaskPage {
	out := clonePage(page)
	if slices.ContainsFunc(out.Data, func(x Task) bool { return x.ID == t.ID }) {
		return out
	}
	at = min(max(at, 0), len(out.Data))
	out.Data = slices.Insert(out.Data, at, t)
	out.Meta.Total++
	if out.Meta.Limit > 0 {
		out.Meta.TotalPages = (out.Meta.Total + int64(out.Meta.Limit) - 1) / int64(out.Meta.Limit)
	}
	return out
}

func clonePage(p TaskPage) TaskPage {
	return TaskPage{Data: slices.Clone(p.Data), Meta: p.Meta}
}

// TaskCache holds fetched pages keyed by query. Pages go in and come out by
// value, so a snapshot stays valid after later writes.
type TaskCache struct {
	mu    sync.RWMutex
	pages map[Query]TaskPage
}

func NewTaskCache() *TaskCache {
	return &TaskCache{pages: make(map[Query]TaskPage)}
}

func (c *TaskCache) Get(q Query) (TaskPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pages[q]
	if !ok {
		return TaskPage{}, false
	}
	return clonePage(p), true
}

func (c *TaskCache) Set(q Query, p TaskPage) {
	c.mu.Lock()
	c.pages[q] = clonePage(p)
	c.mu.Unlock()
}

func (c *TaskCache) Delete(q Query) {
	c.mu.Lock()
	delete(c.pages, q)
	c.mu.Unlock()
}

// InvalidateExcept drops every page but the ones listed.
func (c *TaskCache) InvalidateExcept(keep ...Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for q := range c.pages {
		if !slices.Contains(keep, q) {
			delete(c.pages, q)
		}
	}
}

func (c *TaskCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
