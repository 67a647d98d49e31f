package service

import (
	"context"
	"errors"
	"strings"

	"stemweb/internal/auth"
	"stemweb/internal/cache"
	"stemweb/internal/models"
	"stemweb/internal/observability"
	"stemweb/internal/repository"
	"stemweb/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const msgBadCredentials = "No active account found with the given credentials"

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in validation.Registration) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if fields := in.Validate(); fields != nil {
		return nil, models.NewFieldValidationError(fields)
	}

	if existing, err := s.userRepo.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("A user with that username already exists.")
	}
	if existing, err := s.userRepo.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("A user with that email already exists.")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks credentials. The username field also accepts an email
// address; the explicit email field is used when no username is given.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (auth.Pair, error) {
	if in.Password == "" || (in.Username == "" && in.Email == "") {
		return auth.Pair{}, models.NewValidationError("username or email and password are required")
	}

	user, err := s.findLoginUser(ctx, strings.TrimSpace(in.Username), strings.TrimSpace(in.Email))
	if err != nil {
		return auth.Pair{}, err
	}
	if user == nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return auth.Pair{}, models.NewUnauthorizedError(msgBadCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return auth.Pair{}, models.NewUnauthorizedError(msgBadCredentials)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return auth.Pair{}, models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("login").Inc()
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.verify(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	userID, _ := claims.UserID()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return "", models.NewUnauthorizedError("User not found")
		}
		return "", err
	}

	access, err := s.tokens.Issue(user.ID, user.Username, auth.TokenAccess)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("refresh").Inc()
	return access, nil
}

// Verify accepts any valid, unrevoked token of either type.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	_, err := s.verify(ctx, token, "")
	return err
}

func (s *AuthService) findLoginUser(ctx context.Context, username, email string) (*models.User, error) {
	if username == "" {
		return s.userRepo.GetByEmail(ctx, email)
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil || user != nil || !strings.Contains(username, "@") {
		return user, err
	}
	return s.userRepo.GetByEmail(ctx, username)
}

// Authenticate validates an access token presented on a request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.verify(ctx, token, auth.TokenAccess)
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := cache.BlacklistToken(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("logout").Inc()
	return nil
}

func (s *AuthService) verify(ctx context.Context, token string, want auth.TokenType) (*auth.Claims, error) {
	if token == "" {
		return nil, models.NewUnauthorizedError("Authentication credentials were not provided.")
	}
	claims, err := s.tokens.Parse(token, want)
	if err != nil {
		observability.AuthEvents.WithLabelValues("rejected").Inc()
		return nil, models.NewUnauthorizedError("Token is invalid or expired")
	}
	revoked, err := cache.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if revoked {
		observability.AuthEvents.WithLabelValues("revoked").Inc()
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}
