package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/core/auth"
	"taskboard/internal/core/cache"
	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
)

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.userSv.Register(ctx, RegisterInput{Email: " A@Test.com ", Password: "secret1", Name: ptr("Ann")})
	require.NoError(t, err)
	assert.Equal(t, "a@test.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	res, err := f.userSv.Login(ctx, LoginInput{Email: "a@test.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	p, err := f.jwt.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Principal{UserID: u.ID, Role: domain.RoleUser}, p)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.userSv.Register(ctx, RegisterInput{Email: "a@test.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.userSv.Register(ctx, RegisterInput{Email: "A@TEST.COM", Password: "secret2"})
	requireKind(t, err, errs.KindConflict)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]RegisterInput{
		"bad email":      {Email: "not-an-email", Password: "secret1"},
		"missing email":  {Password: "secret1"},
		"short password": {Email: "a@test.com", Password: "12345"},
		"short name":     {Email: "a@test.com", Password: "secret1", Name: ptr("A")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.userSv.Register(context.Background(), in)
			requireKind(t, err, errs.KindValidation)
		})
	}
}

func TestRegisterBlankNameIsDropped(t *testing.T) {
	f := newFixture(t)
	u, err := f.userSv.Register(context.Background(), RegisterInput{Email: "a@test.com", Password: "secret1", Name: ptr("   ")})
	require.NoError(t, err)
	assert.Nil(t, u.Name)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.userSv.Register(ctx, RegisterInput{Email: "a@test.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPass := f.userSv.Login(ctx, LoginInput{Email: "a@test.com", Password: "nope123"})
	_, unknown := f.userSv.Login(ctx, LoginInput{Email: "b@test.com", Password: "secret1"})

	requireKind(t, wrongPass, errs.KindUnauthorized)
	requireKind(t, unknown, errs.KindUnauthorized)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "a@test.com", domain.RoleUser)

	got, err := f.userSv.Me(context.Background(), auth.Principal{UserID: u.ID, Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = f.userSv.Me(context.Background(), auth.Principal{UserID: "gone", Role: domain.RoleUser})
	requireKind(t, err, errs.KindUnauthorized)
}

func TestMeReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	f.userSv.WithCache(c, time.Minute)

	u := f.addUser(t, "a@test.com", domain.RoleUser)
	p := auth.Principal{UserID: u.ID, Role: domain.RoleUser}
	_, err := f.userSv.Me(context.Background(), p)
	require.NoError(t, err)

	raw, err := mr.Get("taskboard:user:" + u.ID)
	require.NoError(t, err)
	var cached map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, "a@test.com", cached["email"])
	assert.NotContains(t, cached, "PasswordHash")

	// served from the cache even after the row disappears
	require.NoError(t, f.db.Exec("DELETE FROM users WHERE id = ?", u.ID).Error)
	got, err := f.userSv.Me(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "a@test.com", got.Email)
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	b, err := json.Marshal(domain.User{ID: "1", Email: "a@test.com", PasswordHash: "secret-hash", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret-hash")
	assert.NotContains(t, string(b), "password")
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.userSv.SeedAdmin(ctx, "admin@example.com", "Admin123!", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	again, created, err := f.userSv.SeedAdmin(ctx, "admin@example.com", "other-pass", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	res, err := f.userSv.Login(ctx, LoginInput{Email: "admin@example.com", Password: "Admin123!"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
}

func TestSeedAdminValidation(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.userSv.SeedAdmin(context.Background(), "", "Admin123!", "Admin")
	requireKind(t, err, errs.KindValidation)
}
