package service

import (
	"context"

	"stemweb/internal/models"
	"stemweb/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// ListAdmins returns every user with admin rights.
func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	admins := make([]models.User, 0)
	for _, u := range users {
		if u.IsAdmin {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

// IsAdmin reports whether the user exists and has admin rights. It bypasses
// the user cache.
func (s *UserService) IsAdmin(ctx context.Context, id uint) (bool, error) {
	return s.userRepo.IsAdmin(ctx, id)
}

func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}
