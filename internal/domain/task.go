package domain

import (
	"context"
	"time"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusTodo, StatusInProgress, StatusDone:
		return TaskStatus(s), true
	}
	return "", false
}

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"size:16;not null;default:TODO;index" json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	UserID      string     `gorm:"size:36;not null;index" json:"userId"`
	Owner       *User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

// TaskFilter scopes a listing. Empty Status/Query mean "no filter"; OwnerID is
// always applied.
type TaskFilter struct {
	OwnerID string
	Status  TaskStatus
	Query   string
}

// TaskRepository returns (nil, nil) / (false, nil) when the task does not exist
// or is owned by someone else; callers cannot tell the two apart.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	FindOwned(ctx context.Context, id, ownerID string) (*Task, error)
	List(ctx context.Context, f TaskFilter, offset, limit int) ([]Task, int64, error)
	UpdateFields(ctx context.Context, t *Task, columns []string) (bool, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (bool, error)
	ListAllWithOwner(ctx context.Context) ([]Task, error)
}
