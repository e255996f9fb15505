package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// GroupRepository manages task groups.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (r *GroupRepository) CreateAll(ctx context.Context, groups []model.Group) error {
	if err := r.db.WithContext(ctx).Create(&groups).Error; err != nil {
		return fmt.Errorf("create groups: %w", err)
	}
	return nil
}

func (r *GroupRepository) FindByID(ctx context.Context, userID, groupID string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, groupID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

// FindAnyByID looks a group up by id alone; the group count fixup runs after
// the owning task is already authorized, so no owner filter applies here.
func (r *GroupRepository) FindAnyByID(ctx context.Context, groupID string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

func (r *GroupRepository) Save(ctx context.Context, group *model.Group) error {
	if err := r.db.WithContext(ctx).Save(group).Error; err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, userID, groupID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, groupID).
		Delete(&model.Group{}).Error; err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListByUser(ctx context.Context, userID string) ([]model.Group, error) {
	var groups []model.Group
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

// SetTaskCount persists the denormalized task count cache.
func (r *GroupRepository) SetTaskCount(ctx context.Context, groupID string, count int64) error {
	if err := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("id = ?", groupID).Update("task_count", count).Error; err != nil {
		return fmt.Errorf("set group task count: %w", err)
	}
	return nil
}
