package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/repository"
	"gorm.io/gorm"
)

type ProfileService struct {
	userRepo repository.UserRepository
	broker   *realtime.Broker
}

func NewProfileService(userRepo repository.UserRepository, broker *realtime.Broker) *ProfileService {
	return &ProfileService{
		userRepo: userRepo,
		broker:   broker,
	}
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *ProfileService) UpdateBio(ctx context.Context, userID uuid.UUID, bio *string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	user.Bio = bio
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.broker.Publish(realtime.UsersPath, realtime.UserPath(user.ID))
	return user, nil
}

func (s *ProfileService) SetModerationEnabled(ctx context.Context, userID uuid.UUID, enabled bool) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	user.IsModerationEnabled = enabled
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.broker.Publish(realtime.UsersPath, realtime.UserPath(user.ID))
	return user, nil
}
