package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// DraftRepository handles CRUD for promotable task stubs.
type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Create(ctx context.Context, draft *model.Draft) error {
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) FindByID(ctx context.Context, userID, draftID string) (*model.Draft, error) {
	var draft model.Draft
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, draftID).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find draft: %w", err)
	}
	return &draft, nil
}

func (r *DraftRepository) Save(ctx context.Context, draft *model.Draft) error {
	if err := r.db.WithContext(ctx).Save(draft).Error; err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, userID, draftID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, draftID).
		Delete(&model.Draft{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete draft: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteMany removes the listed drafts, skipping promoted ones unless
// includePromoted is set. Returns the number of rows removed.
func (r *DraftRepository) DeleteMany(ctx context.Context, userID string, draftIDs []string, includePromoted bool) (int64, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, draftIDs)
	if !includePromoted {
		q = q.Where("is_promoted = ?", false)
	}
	res := q.Delete(&model.Draft{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete drafts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *DraftRepository) ListByUser(ctx context.Context, userID string) ([]model.Draft, error) {
	var drafts []model.Draft
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}
