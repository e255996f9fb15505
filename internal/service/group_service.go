package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// GroupInput carries the fields accepted when creating or editing a group.
type GroupInput struct {
	Name         string
	Description  string
	Color        string
	Icon         string
	EndGoal      string
	ExpectedDate *time.Time
}

// defaultGroups is the fixed set created at signup. Default groups cannot be
// deleted and never change ownership or their default flag.
var defaultGroups = []struct {
	name  string
	color string
	icon  string
}{
	{"Personal", "#4A90D9", "🏠"},
	{"Work", "#D0021B", "💼"},
	{"Shopping", "#F5A623", "🛒"},
	{"Ideas", "#7ED321", "💡"},
}

// GroupService maintains task groups and the denormalized per-group task
// count cache, which is always rederivable from live task rows.
type GroupService struct {
	groupRepo *repository.GroupRepository
	taskRepo  *repository.TaskRepository
	stats     *StatsService
	now       func() time.Time
}

func NewGroupService(groupRepo *repository.GroupRepository, taskRepo *repository.TaskRepository, stats *StatsService) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		taskRepo:  taskRepo,
		stats:     stats,
		now:       time.Now,
	}
}

// CreateDefaultGroups inserts the fixed default set for a new user.
func (s *GroupService) CreateDefaultGroups(ctx context.Context, userID string) ([]model.Group, error) {
	groups := make([]model.Group, len(defaultGroups))
	for i, d := range defaultGroups {
		groups[i] = model.Group{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      d.name,
			Color:     d.color,
			Icon:      d.icon,
			IsDefault: true,
		}
	}
	if err := s.groupRepo.CreateAll(ctx, groups); err != nil {
		return nil, err
	}
	s.stats.RecomputeAsync(userID)
	return groups, nil
}

// Create validates and persists a user-defined group.
func (s *GroupService) Create(ctx context.Context, userID string, input GroupInput) (*model.Group, error) {
	if err := validateGroupInput(input); err != nil {
		return nil, err
	}

	group := model.Group{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		Color:        input.Color,
		Icon:         input.Icon,
		EndGoal:      input.EndGoal,
		ExpectedDate: input.ExpectedDate,
	}
	if err := s.groupRepo.Create(ctx, &group); err != nil {
		return nil, err
	}
	s.stats.RecomputeAsync(userID)
	return &group, nil
}

// Update edits a group's user-facing fields. The default flag and owner are
// immutable.
func (s *GroupService) Update(ctx context.Context, userID, groupID string, input GroupInput) (*model.Group, error) {
	if err := validateGroupInput(input); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.FindByID(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	group.Name = strings.TrimSpace(input.Name)
	group.Description = input.Description
	group.Color = input.Color
	group.Icon = input.Icon
	group.EndGoal = input.EndGoal
	group.ExpectedDate = input.ExpectedDate

	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Delete removes a group. Default groups are undeletable, and a group still
// owning tasks blocks deletion; the check uses the live count, not the cache.
func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	group, err := s.groupRepo.FindByID(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if group.IsDefault {
		return fmt.Errorf("default group cannot be deleted: %w", apperr.ErrValidation)
	}
	live, err := s.taskRepo.CountByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if live > 0 {
		return fmt.Errorf("group still owns %d tasks: %w", live, apperr.ErrValidation)
	}
	if err := s.groupRepo.Delete(ctx, userID, groupID); err != nil {
		return err
	}
	s.stats.RecomputeAsync(userID)
	return nil
}

func (s *GroupService) Get(ctx context.Context, userID, groupID string) (*model.Group, error) {
	return s.groupRepo.FindByID(ctx, userID, groupID)
}

func (s *GroupService) List(ctx context.Context, userID string) ([]model.Group, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}

// UpdateTaskCount recomputes the cached task count from live task rows.
func (s *GroupService) UpdateTaskCount(ctx context.Context, groupID string) error {
	count, err := s.taskRepo.CountByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	return s.groupRepo.SetTaskCount(ctx, groupID, count)
}

// MarkCompleted records goal completion on a group.
func (s *GroupService) MarkCompleted(ctx context.Context, userID, groupID, completedBy string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	group.IsCompleted = true
	group.CompletedAt = &now
	group.CompletedBy = completedBy
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// UnmarkCompleted clears goal completion on a group.
func (s *GroupService) UnmarkCompleted(ctx context.Context, userID, groupID string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	group.IsCompleted = false
	group.CompletedAt = nil
	group.CompletedBy = ""
	if err := s.groupRepo.Save(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func validateGroupInput(input GroupInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > model.GroupNameMaxLen {
		return fmt.Errorf("group name must be 1-%d characters: %w", model.GroupNameMaxLen, apperr.ErrValidation)
	}
	if len(input.Description) > model.GroupDescriptionMaxLen {
		return fmt.Errorf("group description too long: %w", apperr.ErrValidation)
	}
	return nil
}
