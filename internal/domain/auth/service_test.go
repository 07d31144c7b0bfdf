package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]User)}
}

func (m *memUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return apperror.NewDuplicate("user", "email", u.Email)
	}
	m.users[u.Email] = *u
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return &u, nil
}

func (m *memUsers) UpdateLoginState(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = *u
	return nil
}

func newTestService(t *testing.T) (*Service, *memUsers, id.ID) {
	t.Helper()
	users := newMemUsers()
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret"))
	svc := NewService(users, jwtSvc, DefaultServiceConfig())

	garage := id.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), NewUser(garage, "Ana@Oficina.dev", string(hash))))
	return svc, users, garage
}

func TestLogin_IssuesGarageScopedToken(t *testing.T) {
	svc, _, garage := newTestService(t)

	tok, user, err := svc.Login(context.Background(), Credentials{Email: " ana@oficina.dev ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.NotNil(t, user.LastLoginAt)

	uc, err := svc.ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, garage.String(), uc.GarageID)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, "ana@oficina.dev", uc.Email)
}

func TestLogin_WrongPasswordLocksAccount(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < DefaultServiceConfig().MaxLoginAttempts; i++ {
		_, _, err := svc.Login(ctx, Credentials{Email: "ana@oficina.dev", Password: "wrong"})
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}

	stored, err := users.GetByEmail(ctx, "ana@oficina.dev")
	require.NoError(t, err)
	require.NotNil(t, stored.LockedUntil)

	_, _, err = svc.Login(ctx, Credentials{Email: "ana@oficina.dev", Password: "s3cret-pass"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, _, err = svc.Login(ctx, Credentials{Email: "ana@oficina.dev", Password: "s3cret-pass"})
	assert.NoError(t, err)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), Credentials{Email: "nobody@x.dev", Password: "whatever"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestValidateToken_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	tok, _, err := svc.Login(context.Background(), Credentials{Email: "ana@oficina.dev", Password: "s3cret-pass"})
	require.NoError(t, err)

	other := NewService(newMemUsers(), NewJWTService(DefaultJWTConfig("other-secret")), DefaultServiceConfig())
	_, err = other.ValidateToken(tok.AccessToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	_, err = svc.ValidateToken("not-a-jwt")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	svc.jwtService.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	_, err = svc.ValidateToken(tok.AccessToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestCreateUser_ShortPassword(t *testing.T) {
	svc, _, garage := newTestService(t)
	_, err := svc.CreateUser(context.Background(), garage, "b@oficina.dev", "short", "Bruno")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
