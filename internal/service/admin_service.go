package service

import (
	"context"

	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
)

type OwnerRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AdminTask is a task together with its owner's id and email.
type AdminTask struct {
	domain.Task
	User OwnerRef `json:"user"`
}

// AdminService serves read-only views across all users. Callers must have
// passed the ADMIN gate already.
type AdminService struct {
	users domain.UserRepository
	tasks domain.TaskRepository
}

func NewAdminService(users domain.UserRepository, tasks domain.TaskRepository) *AdminService {
	return &AdminService{users: users, tasks: tasks}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, errs.Internal("list users failed", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *AdminService) ListAllTasks(ctx context.Context) ([]AdminTask, error) {
	tasks, err := s.tasks.ListAllWithOwner(ctx)
	if err != nil {
		return nil, errs.Internal("list tasks failed", err)
	}
	out := make([]AdminTask, 0, len(tasks))
	for _, t := range tasks {
		row := AdminTask{Task: t}
		if t.Owner != nil {
			row.User = OwnerRef{ID: t.Owner.ID, Email: t.Owner.Email}
		} else {
			row.User = OwnerRef{ID: t.UserID}
		}
		row.Task.Owner = nil
		out = append(out, row)
	}
	return out, nil
}
