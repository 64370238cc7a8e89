package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskboard/internal/core/auth"
	"taskboard/internal/core/database/dbtest"
	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
	"taskboard/internal/repo"
	"taskboard/pkg/utils"
)

type fixture struct {
	db     *gorm.DB
	users  *repo.UserRepo
	tasks  *repo.TaskRepo
	jwt    *auth.JWTer
	userSv *UserService
	taskSv *TaskService
	admSv  *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		db:    db,
		users: repo.NewUserRepo(db),
		tasks: repo.NewTaskRepo(db),
		jwt:   auth.NewJWTer("test-secret", "taskboard", time.Hour),
	}
	f.userSv = NewUserService(f.users, f.jwt)
	f.taskSv = NewTaskService(f.tasks)
	f.admSv = NewAdminService(f.users, f.tasks)
	return f
}

// addUser inserts a user row directly; bcrypt is skipped where the password
// does not matter.
func (f *fixture) addUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func requireKind(t *testing.T, err error, k errs.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, k, errs.KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }
