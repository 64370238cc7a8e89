package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"taskboard/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepo) FindOwned(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in any of
// the supported dialects.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *TaskRepo) scope(ctx context.Context, f domain.TaskFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", f.OwnerID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '!')", like, like)
	}
	return q
}

func (r *TaskRepo) List(ctx context.Context, f domain.TaskFilter, offset, limit int) ([]domain.Task, int64, error) {
	var total int64
	if err := r.scope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	tasks := make([]domain.Task, 0, limit)
	if total == 0 {
		return tasks, 0, nil
	}
	err := r.scope(ctx, f).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// UpdateFields writes only the named columns of t, scoped to t's owner.
func (r *TaskRepo) UpdateFields(ctx context.Context, t *domain.Task, columns []string) (bool, error) {
	if len(columns) == 0 {
		return true, nil
	}
	res := r.db.WithContext(ctx).
		Model(t).
		Where("user_id = ?", t.UserID).
		Select(columns).
		Updates(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepo) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&domain.Task{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepo) ListAllWithOwner(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Preload("Owner", func(db *gorm.DB) *gorm.DB { return db.Select("id", "email") }).
		Order("created_at DESC").Order("id DESC").
		Find(&tasks).Error
	return tasks, err
}
