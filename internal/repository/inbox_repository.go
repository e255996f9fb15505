package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// InboxRepository handles CRUD for quick-capture inbox items.
type InboxRepository struct {
	db *gorm.DB
}

func NewInboxRepository(db *gorm.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

func (r *InboxRepository) Create(ctx context.Context, item *model.InboxItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create inbox item: %w", err)
	}
	return nil
}

func (r *InboxRepository) FindByID(ctx context.Context, userID, itemID string) (*model.InboxItem, error) {
	var item model.InboxItem
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find inbox item: %w", err)
	}
	return &item, nil
}

func (r *InboxRepository) Save(ctx context.Context, item *model.InboxItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("save inbox item: %w", err)
	}
	return nil
}

// HardDelete permanently removes the row. Soft deletion goes through Save.
func (r *InboxRepository) HardDelete(ctx context.Context, userID, itemID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, itemID).
		Delete(&model.InboxItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("hard delete inbox item: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListByUser returns the owner's inbox, newest first, excluding soft-deleted
// rows unless includeDeleted is set.
func (r *InboxRepository) ListByUser(ctx context.Context, userID string, includeDeleted bool) ([]model.InboxItem, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	var items []model.InboxItem
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list inbox items: %w", err)
	}
	return items, nil
}
