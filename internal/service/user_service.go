package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"taskboard/internal/core/auth"
	"taskboard/internal/core/cache"
	"taskboard/internal/core/database"
	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
	"taskboard/pkg/utils"
)

type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Name     *string `json:"name" validate:"omitempty,min=2,max=64"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserSummary is the user shape embedded in a login response.
type UserSummary struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  *string     `json:"name"`
	Role  domain.Role `json:"role"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type UserService struct {
	users  domain.UserRepository
	tokens *auth.JWTer

	cache      *cache.Cache
	profileTTL time.Duration
}

func NewUserService(users domain.UserRepository, tokens *auth.JWTer) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// WithCache enables read-through caching of profiles. Users are never mutated
// through the API, so entries only expire.
func (s *UserService) WithCache(c *cache.Cache, ttl time.Duration) *UserService {
	s.cache = c
	s.profileTTL = ttl
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Name = trimOptional(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}
	return s.create(ctx, in.Email, in.Password, in.Name, domain.RoleUser)
}

func (s *UserService) create(ctx context.Context, email, password string, name *string, role domain.Role) (*domain.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, errs.Internal("lookup user failed", err)
	}
	if existing != nil {
		return nil, errs.Conflict("email already in use")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, errs.Internal("hash password failed", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册：唯一索引兜底
		if database.IsDuplicateKey(err) {
			return nil, errs.Conflict("email already in use")
		}
		return nil, errs.Internal("create user failed", err)
	}
	return u, nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnHash spends the same bcrypt work as a real comparison so that unknown
// emails and wrong passwords take the same time.
func burnHash(password string) {
	dummyOnce.Do(func() { dummyHash, _ = utils.HashPassword("taskboard-dummy-password") })
	_ = utils.CheckPassword(password, dummyHash)
}

// Login fails with the same Unauthorized error whether the email is unknown or
// the password is wrong.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, errs.Internal("lookup user failed", err)
	}
	if u == nil {
		burnHash(in.Password)
		return nil, errs.Unauthorized("invalid credentials")
	}
	if !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, errs.Unauthorized("invalid credentials")
	}
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, errs.Internal("issue token failed", err)
	}
	return &LoginResult{
		Token: tok,
		User:  UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	}, nil
}

// Me returns the profile behind a principal.
func (s *UserService) Me(ctx context.Context, p auth.Principal) (*domain.User, error) {
	load := func(ctx context.Context) (*domain.User, error) { return s.users.FindByID(ctx, p.UserID) }
	var (
		u   *domain.User
		err error
	)
	if s.cache != nil {
		u, err = cache.GetOrLoadJSON(s.cache, ctx, "user:"+p.UserID, s.profileTTL, load)
	} else {
		u, err = load(ctx)
	}
	if err != nil {
		return nil, errs.Internal("load user failed", err)
	}
	if u == nil {
		return nil, errs.Unauthorized("user no longer exists")
	}
	return u, nil
}

// SeedAdmin creates the initial administrator unless the email is already
// taken. created reports whether a row was written.
func (s *UserService) SeedAdmin(ctx context.Context, email, password, name string) (u *domain.User, created bool, err error) {
	email = domain.NormalizeEmail(email)
	if email == "" || len(password) < 6 {
		return nil, false, errs.Validation("admin email and a password of at least 6 characters are required")
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, errs.Internal("lookup user failed", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	u, err = s.create(ctx, email, password, trimOptional(&name), domain.RoleAdmin)
	if errs.Is(err, errs.KindConflict) {
		existing, ferr := s.users.FindByEmail(ctx, email)
		if ferr != nil {
			return nil, false, errs.Internal("lookup user failed", ferr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
