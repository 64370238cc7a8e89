package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
	"taskboard/pkg/utils"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50

	maxTitleLen = 255
)

type CreateTaskInput struct {
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      Optional[string] `json:"status"`
	DueDate     *string          `json:"dueDate"`
}

// TaskPatch carries a partial update; only Set fields are written.
type TaskPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	DueDate     Optional[string] `json:"dueDate"`
}

type ListParams struct {
	Page   int
	Limit  int
	Status string
	Q      string
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type TaskPage struct {
	Data []domain.Task `json:"data"`
	Meta PageMeta      `json:"meta"`
}

type TaskService struct {
	tasks domain.TaskRepository
	now   func() time.Time
}

func NewTaskService(tasks domain.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (*domain.Task, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status := domain.StatusTodo
	if in.Status.Set {
		if in.Status.Null {
			return nil, errs.Validation("status cannot be null")
		}
		if status, err = validStatus(in.Status.Value); err != nil {
			return nil, err
		}
	}
	var due *time.Time
	if in.DueDate != nil {
		if due, err = parseDueDate(*in.DueDate); err != nil {
			return nil, err
		}
	}
	t := &domain.Task{
		ID:          utils.NewID(),
		Title:       title,
		Description: in.Description,
		Status:      status,
		DueDate:     due,
		UserID:      ownerID,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, errs.Internal("create task failed", err)
	}
	taskMutations.WithLabelValues("create").Inc()
	return t, nil
}

// NormalizePaging applies the page/limit rules: page >= 1, limit in [1, MaxLimit].
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	limit = min(max(limit, 1), MaxLimit)
	return page, limit
}

func (s *TaskService) List(ctx context.Context, ownerID string, p ListParams) (*TaskPage, error) {
	page, limit := NormalizePaging(p.Page, p.Limit)
	f := domain.TaskFilter{OwnerID: ownerID, Query: strings.TrimSpace(p.Q)}
	if p.Status != "" {
		st, err := validStatus(p.Status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	tasks, total, err := s.tasks.List(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return nil, errs.Internal("list tasks failed", err)
	}
	return &TaskPage{
		Data: tasks,
		Meta: PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

// Get does not distinguish a missing task from one owned by another user.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	t, err := s.tasks.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, errs.Internal("load task failed", err)
	}
	if t == nil {
		return nil, errs.NotFound("task not found")
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, ownerID, id string, p TaskPatch) (*domain.Task, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var cols []string
	if p.Title.Set {
		if p.Title.Null {
			return nil, errs.Validation("title cannot be null")
		}
		if t.Title, err = validTitle(p.Title.Value); err != nil {
			return nil, err
		}
		cols = append(cols, "title")
	}
	if p.Description.Set {
		if p.Description.Null {
			t.Description = nil
		} else {
			d := p.Description.Value
			t.Description = &d
		}
		cols = append(cols, "description")
	}
	if p.Status.Set {
		if p.Status.Null {
			return nil, errs.Validation("status cannot be null")
		}
		if t.Status, err = validStatus(p.Status.Value); err != nil {
			return nil, err
		}
		cols = append(cols, "status")
	}
	if p.DueDate.Set {
		if p.DueDate.Null {
			t.DueDate = nil
		} else if t.DueDate, err = parseDueDate(p.DueDate.Value); err != nil {
			return nil, err
		}
		cols = append(cols, "due_date")
	}
	if len(cols) == 0 {
		return t, nil
	}

	t.UpdatedAt = s.now()
	cols = append(cols, "updated_at")
	ok, err := s.tasks.UpdateFields(ctx, t, cols)
	if err != nil {
		return nil, errs.Internal("update task failed", err)
	}
	if !ok {
		// MySQL reports changed rows only; an identical write also lands here
		cur, err := s.tasks.FindOwned(ctx, id, ownerID)
		if err != nil {
			return nil, errs.Internal("load task failed", err)
		}
		if cur == nil {
			return nil, errs.NotFound("task not found")
		}
	}
	taskMutations.WithLabelValues("update").Inc()
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	ok, err := s.tasks.DeleteOwned(ctx, id, ownerID)
	if err != nil {
		return errs.Internal("delete task failed", err)
	}
	if !ok {
		return errs.NotFound("task not found")
	}
	taskMutations.WithLabelValues("delete").Inc()
	return nil
}

func validTitle(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errs.Validation("title is required")
	}
	if utf8.RuneCountInString(t) > maxTitleLen {
		return "", errs.Validation("title must be at most 255 characters")
	}
	return t, nil
}

func validStatus(s string) (domain.TaskStatus, error) {
	st, ok := domain.ParseTaskStatus(s)
	if !ok {
		return "", errs.Validation("status must be one of TODO, IN_PROGRESS, DONE")
	}
	return st, nil
}

func parseDueDate(s string) (*time.Time, error) {
	d, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Validation("dueDate must be an RFC 3339 date-time")
	}
	d = d.UTC()
	return &d, nil
}
