package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// StatsRepository manages the per-user aggregate counters records.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) FindByUser(ctx context.Context, userID string) (*model.Stats, error) {
	var stats model.Stats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find stats: %w", err)
	}
	return &stats, nil
}

func (r *StatsRepository) Create(ctx context.Context, stats *model.Stats) error {
	if err := r.db.WithContext(ctx).Create(stats).Error; err != nil {
		return fmt.Errorf("create stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) Save(ctx context.Context, stats *model.Stats) error {
	if err := r.db.WithContext(ctx).Save(stats).Error; err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// CountUsers returns the number of stats records, one per user.
func (r *StatsRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Stats{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count stats rows: %w", err)
	}
	return count, nil
}

// CountHigherScore returns how many other users have a strictly higher
// productivity score.
func (r *StatsRepository) CountHigherScore(ctx context.Context, userID string, score int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Stats{}).
		Where("user_id <> ? AND productivity_score > ?", userID, score).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count higher scores: %w", err)
	}
	return count, nil
}

// ListTop returns the leaderboard ordering: score, then completed tasks,
// then current streak, all descending.
func (r *StatsRepository) ListTop(ctx context.Context, limit int) ([]model.Stats, error) {
	var rows []model.Stats
	if err := r.db.WithContext(ctx).
		Order("productivity_score DESC, completed_tasks DESC, current_streak DESC").
		Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	return rows, nil
}
