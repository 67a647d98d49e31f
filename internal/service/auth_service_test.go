package service

import (
	"context"
	"testing"

	"stemweb/internal/auth"
	"stemweb/internal/cache"
	"stemweb/internal/config"
	"stemweb/internal/models"
	"stemweb/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockUserRepo is a testify mock for repository.UserRepository.
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}
func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *mockUserRepo) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	args := m.Called(ctx, id, isAdmin)
	return args.Error(0)
}
func (m *mockUserRepo) IsAdmin(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}
func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

const strongPassword = "SecurePass12!@"

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(&config.Config{JWTSecret: "service-test-secret-with-enough-length"})
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		repo := new(mockUserRepo)
		repo.On("GetByUsername", ctx, "carrington").Return(nil, nil)
		repo.On("GetByEmail", ctx, "c@example.com").Return(nil, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 9
		})

		user, err := NewAuthService(repo, newTokenManager()).Register(ctx, validation.Registration{
			Username: " carrington ", Email: "C@Example.com", Password: strongPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(9), user.ID)
		assert.Equal(t, "c@example.com", user.Email)
		assert.NotEqual(t, strongPassword, user.Password)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		repo := new(mockUserRepo)
		repo.On("GetByUsername", ctx, "taken").Return(&models.User{ID: 1}, nil)

		_, err := NewAuthService(repo, newTokenManager()).Register(ctx, validation.Registration{
			Username: "taken", Email: "t@example.com", Password: strongPassword,
		})
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, err := NewAuthService(new(mockUserRepo), newTokenManager()).Register(ctx, validation.Registration{Username: "x"})
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestAuthService_LoginRefreshVerifyLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(cache.Close)

	ctx := context.Background()
	hash, err := HashPassword(strongPassword)
	require.NoError(t, err)
	user := &models.User{ID: 4, Username: "carrington", Email: "c@example.com", Password: hash}

	repo := new(mockUserRepo)
	repo.On("GetByUsername", ctx, "carrington").Return(user, nil)
	repo.On("GetByEmail", ctx, "c@example.com").Return(user, nil)
	repo.On("GetByID", ctx, uint(4)).Return(user, nil)
	svc := NewAuthService(repo, newTokenManager())

	_, err = svc.Login(ctx, LoginInput{Username: "carrington", Password: "wrong"})
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	pair, err := svc.Login(ctx, LoginInput{Email: "c@example.com", Password: strongPassword})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "carrington", claims.Username)

	_, err = svc.Authenticate(ctx, pair.Refresh)
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	access, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = svc.Refresh(ctx, pair.Access)
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	require.NoError(t, svc.Verify(ctx, pair.Refresh))
	assertAppErrorCode(t, svc.Verify(ctx, "garbage"), models.CodeUnauthorized)

	require.NoError(t, svc.Logout(ctx, claims))
	_, err = svc.Authenticate(ctx, pair.Access)
	assertAppErrorCode(t, err, models.CodeUnauthorized)
	assertAppErrorCode(t, svc.Verify(ctx, pair.Access), models.CodeUnauthorized)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	repo.On("GetByUsername", ctx, "ghost").Return(nil, nil)

	_, err := NewAuthService(repo, newTokenManager()).Login(ctx, LoginInput{Username: "ghost", Password: strongPassword})
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	_, err = NewAuthService(repo, newTokenManager()).Login(ctx, LoginInput{Password: strongPassword})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestAuthService_LoginEmailInUsernameField(t *testing.T) {
	ctx := context.Background()
	hash, err := HashPassword(strongPassword)
	require.NoError(t, err)
	user := &models.User{ID: 4, Username: "carrington", Email: "c@example.com", Password: hash}

	repo := new(mockUserRepo)
	repo.On("GetByUsername", ctx, "c@example.com").Return(nil, nil)
	repo.On("GetByEmail", ctx, "c@example.com").Return(user, nil)
	repo.On("GetByUsername", ctx, "ghost@example.com").Return(nil, nil)
	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, nil)

	svc := NewAuthService(repo, newTokenManager())
	pair, err := svc.Login(ctx, LoginInput{Username: "c@example.com", Password: strongPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)

	_, err = svc.Login(ctx, LoginInput{Username: "ghost@example.com", Password: strongPassword})
	assertAppErrorCode(t, err, models.CodeUnauthorized)
	repo.AssertExpectations(t)
}

func TestUserService_ListAdminsAndSetAdmin(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	repo.On("List", ctx, 0, 0).Return([]models.User{{ID: 1, IsAdmin: true}, {ID: 2}}, nil)
	repo.On("SetAdmin", ctx, uint(2), true).Return(nil)
	repo.On("GetByID", ctx, uint(2)).Return(&models.User{ID: 2, IsAdmin: true}, nil)
	repo.On("IsAdmin", ctx, uint(2)).Return(true, nil)

	svc := NewUserService(repo)
	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, uint(1), admins[0].ID)

	u, err := svc.SetAdmin(ctx, 2, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	isAdmin, err := svc.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	repo.AssertExpectations(t)
}
