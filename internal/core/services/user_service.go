package services

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

type userService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates the minimal user lookup facade.
func NewUserService(userRepo repositories.UserRepository) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}
