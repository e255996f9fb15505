package service

import (
	"context"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// UserService handles account upserts. A freshly created user gets the fixed
// default group set and an initial stats record.
type UserService struct {
	userRepo *repository.UserRepository
	groups   *GroupService
	stats    *StatsService
}

func NewUserService(userRepo *repository.UserRepository, groups *GroupService, stats *StatsService) *UserService {
	return &UserService{userRepo: userRepo, groups: groups, stats: stats}
}

// EnsureFromTelegram finds or creates the user for a Telegram identity,
// running the signup path (default groups, initial stats) exactly once.
func (s *UserService) EnsureFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	user, created, err := s.userRepo.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username)
	if err != nil {
		return nil, err
	}
	if created {
		if _, err := s.groups.CreateDefaultGroups(ctx, user.ID); err != nil {
			return nil, err
		}
		if _, err := s.stats.Recompute(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *UserService) ListAll(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListAll(ctx)
}
