package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// TaskExtra carries caller-supplied task fields merged in during promotion.
// GroupID is required: a task cannot exist without a group.
type TaskExtra struct {
	GroupID     string
	Priority    string
	Tags        []string
	IsImportant bool
	StartAt     *time.Time
	DueAt       *time.Time
	Reminders   []time.Time
}

// PromotionResult aggregates the entities touched by a promotion path.
type PromotionResult struct {
	Task      *model.Task
	Draft     *model.Draft
	InboxItem *model.InboxItem
}

// DraftInput carries the fields accepted when creating or editing a draft.
type DraftInput struct {
	Title  string
	Notes  string
	Source string
}

// InboxInput carries the fields accepted when creating or editing an inbox item.
type InboxInput struct {
	Title string
	Notes string
}

const (
	softDeleteAttempts = 3
	softDeleteBackoff  = 50 * time.Millisecond
)

// PromotionService owns the inbox -> draft -> task promotion chain. Each
// promotion runs inside a single database transaction: the created target and
// the promoted-mark on the source commit together or not at all.
type PromotionService struct {
	db        *gorm.DB
	inboxRepo *repository.InboxRepository
	draftRepo *repository.DraftRepository
	groupRepo *repository.GroupRepository
	groups    *GroupService
	stats     *StatsService
	now       func() time.Time
}

func NewPromotionService(db *gorm.DB, inboxRepo *repository.InboxRepository, draftRepo *repository.DraftRepository, groupRepo *repository.GroupRepository, groups *GroupService, stats *StatsService) *PromotionService {
	return &PromotionService{
		db:        db,
		inboxRepo: inboxRepo,
		draftRepo: draftRepo,
		groupRepo: groupRepo,
		groups:    groups,
		stats:     stats,
		now:       time.Now,
	}
}

// CreateInboxItem persists a quick capture.
func (s *PromotionService) CreateInboxItem(ctx context.Context, userID string, input InboxInput) (*model.InboxItem, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > model.InboxTitleMaxLen {
		return nil, fmt.Errorf("inbox title must be 1-%d characters: %w", model.InboxTitleMaxLen, apperr.ErrValidation)
	}
	if len(input.Notes) > model.InboxNotesMaxLen {
		return nil, fmt.Errorf("inbox notes too long: %w", apperr.ErrValidation)
	}

	item := model.InboxItem{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Notes:  input.Notes,
	}
	if err := s.inboxRepo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateInboxItem edits an unpromoted, undeleted capture.
func (s *PromotionService) UpdateInboxItem(ctx context.Context, userID, itemID string, input InboxInput) (*model.InboxItem, error) {
	item, err := s.inboxRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrNotFound)
	}
	if item.IsPromoted {
		return nil, fmt.Errorf("inbox item %s is immutable: %w", itemID, apperr.ErrAlreadyPromoted)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > model.InboxTitleMaxLen {
		return nil, fmt.Errorf("inbox title must be 1-%d characters: %w", model.InboxTitleMaxLen, apperr.ErrValidation)
	}
	if len(input.Notes) > model.InboxNotesMaxLen {
		return nil, fmt.Errorf("inbox notes too long: %w", apperr.ErrValidation)
	}

	item.Title = title
	item.Notes = input.Notes
	if err := s.inboxRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PromotionService) ListInbox(ctx context.Context, userID string, includeDeleted bool) ([]model.InboxItem, error) {
	return s.inboxRepo.ListByUser(ctx, userID, includeDeleted)
}

// SoftDeleteInbox flags an item deleted. The flag write retries on transient
// store failures with a short backoff before surfacing a structured failure.
func (s *PromotionService) SoftDeleteInbox(ctx context.Context, userID, itemID string) (*model.InboxItem, error) {
	item, err := s.inboxRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return item, nil
	}

	now := s.now()
	item.IsDeleted = true
	item.DeletedAt = &now

	var saveErr error
	backoff := softDeleteBackoff
	for attempt := 1; attempt <= softDeleteAttempts; attempt++ {
		saveErr = s.inboxRepo.Save(ctx, item)
		if saveErr == nil {
			return item, nil
		}
		log.Printf("soft delete inbox item %s attempt %d: %v", itemID, attempt, saveErr)
		if attempt < softDeleteAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("soft delete inbox item %s: %v: %w", itemID, saveErr, apperr.ErrTransientStore)
}

// HardDeleteInbox permanently removes the row. Only for explicit requests.
func (s *PromotionService) HardDeleteInbox(ctx context.Context, userID, itemID string) error {
	rows, err := s.inboxRepo.HardDelete(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrNotFound)
	}
	return nil
}

// CreateDraft persists a promotable task stub.
func (s *PromotionService) CreateDraft(ctx context.Context, userID string, input DraftInput) (*model.Draft, error) {
	if err := validateDraftInput(input); err != nil {
		return nil, err
	}
	source := input.Source
	if source == "" {
		source = model.DraftSourceQuick
	}
	if !model.ValidDraftSource(source) {
		return nil, fmt.Errorf("invalid draft source %q: %w", source, apperr.ErrValidation)
	}

	draft := model.Draft{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  strings.TrimSpace(input.Title),
		Notes:  input.Notes,
		Source: source,
	}
	if err := s.draftRepo.Create(ctx, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// UpdateDraft edits an unpromoted draft. Promoted drafts are frozen.
func (s *PromotionService) UpdateDraft(ctx context.Context, userID, draftID string, input DraftInput) (*model.Draft, error) {
	draft, err := s.draftRepo.FindByID(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.IsPromoted {
		return nil, fmt.Errorf("draft %s is immutable: %w", draftID, apperr.ErrAlreadyPromoted)
	}
	if err := validateDraftInput(input); err != nil {
		return nil, err
	}

	draft.Title = strings.TrimSpace(input.Title)
	draft.Notes = input.Notes
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *PromotionService) ListDrafts(ctx context.Context, userID string) ([]model.Draft, error) {
	return s.draftRepo.ListByUser(ctx, userID)
}

// DeleteDrafts removes the listed drafts, skipping promoted ones unless
// includePromoted is set. Returns the number deleted.
func (s *PromotionService) DeleteDrafts(ctx context.Context, userID string, draftIDs []string, includePromoted bool) (int64, error) {
	if len(draftIDs) == 0 {
		return 0, nil
	}
	return s.draftRepo.DeleteMany(ctx, userID, draftIDs, includePromoted)
}

// PromoteInboxToDraft creates a draft from a capture and marks the capture
// promoted, atomically.
func (s *PromotionService) PromoteInboxToDraft(ctx context.Context, userID, itemID string) (*PromotionResult, error) {
	item, err := s.inboxRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrNotFound)
	}
	if item.IsPromoted {
		return nil, fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrAlreadyPromoted)
	}

	now := s.now()
	draft := model.Draft{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    item.Title,
		Notes:    item.Notes,
		Source:   model.DraftSourceInbox,
		InboxRef: &item.ID,
	}
	item.IsPromoted = true
	item.PromotedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&draft).Error; err != nil {
			return fmt.Errorf("create draft: %w", err)
		}
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("mark inbox item promoted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PromotionResult{Draft: &draft, InboxItem: item}, nil
}

// PromoteDraftToTask creates a pending task from a draft, merging in the
// caller's extras, and marks the draft promoted. Both writes commit together
// or not at all.
func (s *PromotionService) PromoteDraftToTask(ctx context.Context, userID, draftID string, extra TaskExtra) (*PromotionResult, error) {
	draft, err := s.draftRepo.FindByID(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.IsPromoted {
		return nil, fmt.Errorf("draft %s: %w", draftID, apperr.ErrAlreadyPromoted)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("draft %s has no title: %w", draftID, apperr.ErrCannotPromote)
	}

	task, err := s.buildTask(ctx, userID, draft.Title, draft.Notes, extra)
	if err != nil {
		return nil, err
	}
	task.DraftRef = &draft.ID
	task.InboxRef = draft.InboxRef

	now := s.now()
	draft.IsPromoted = true
	draft.PromotedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := tx.Save(draft).Error; err != nil {
			return fmt.Errorf("mark draft promoted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTaskCreated(userID, task.GroupID)
	return &PromotionResult{Task: task, Draft: draft}, nil
}

// PromoteInboxToTask promotes a capture straight to a task, optionally
// passing through an intermediate draft. Either way the capture is marked
// promoted exactly once, in the same transaction as the created entities.
func (s *PromotionService) PromoteInboxToTask(ctx context.Context, userID, itemID string, viaDraft bool, extra TaskExtra) (*PromotionResult, error) {
	item, err := s.inboxRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrNotFound)
	}
	if item.IsPromoted {
		return nil, fmt.Errorf("inbox item %s: %w", itemID, apperr.ErrAlreadyPromoted)
	}
	if strings.TrimSpace(item.Title) == "" {
		return nil, fmt.Errorf("inbox item %s has no title: %w", itemID, apperr.ErrCannotPromote)
	}

	task, err := s.buildTask(ctx, userID, item.Title, item.Notes, extra)
	if err != nil {
		return nil, err
	}
	task.InboxRef = &item.ID

	now := s.now()
	result := &PromotionResult{Task: task, InboxItem: item}

	var draft *model.Draft
	if viaDraft {
		draft = &model.Draft{
			ID:         uuid.NewString(),
			UserID:     userID,
			Title:      item.Title,
			Notes:      item.Notes,
			Source:     model.DraftSourceInbox,
			InboxRef:   &item.ID,
			IsPromoted: true,
			PromotedAt: &now,
		}
		task.DraftRef = &draft.ID
		result.Draft = draft
	}

	item.IsPromoted = true
	item.PromotedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if draft != nil {
			if err := tx.Create(draft).Error; err != nil {
				return fmt.Errorf("create draft: %w", err)
			}
		}
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("mark inbox item promoted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTaskCreated(userID, task.GroupID)
	return result, nil
}

// buildTask assembles the promoted task from source text plus extras. The
// task is always born pending, never in the deprecated draft status.
func (s *PromotionService) buildTask(ctx context.Context, userID, title, notes string, extra TaskExtra) (*model.Task, error) {
	if extra.GroupID == "" {
		return nil, fmt.Errorf("group is required: %w", apperr.ErrValidation)
	}
	if _, err := s.groupRepo.FindByID(ctx, userID, extra.GroupID); err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	priority := extra.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q: %w", priority, apperr.ErrValidation)
	}

	title = strings.TrimSpace(title)
	if len(title) > model.TitleMaxLen {
		title = title[:model.TitleMaxLen]
	}
	if len(notes) > model.DescriptionMaxLen {
		notes = notes[:model.DescriptionMaxLen]
	}

	now := s.now()
	startAt := now
	if extra.StartAt != nil {
		startAt = *extra.StartAt
	}

	return &model.Task{
		ID:                 uuid.NewString(),
		UserID:             userID,
		GroupID:            extra.GroupID,
		Title:              title,
		Description:        notes,
		Status:             model.StatusPending,
		Priority:           priority,
		Tags:               model.StringList(extra.Tags),
		IsImportant:        extra.IsImportant,
		StartAt:            startAt,
		DueAt:              extra.DueAt,
		Reminders:          sortedReminders(extra.Reminders),
		RecurrencePattern:  model.RecurNone,
		RecurrenceInterval: 1,
	}, nil
}

func (s *PromotionService) afterTaskCreated(userID, groupID string) {
	if err := s.groups.UpdateTaskCount(context.Background(), groupID); err != nil {
		log.Printf("group count fixup %s: %v", groupID, err)
	}
	s.stats.RecomputeAsync(userID)
}

func validateDraftInput(input DraftInput) error {
	title := strings.TrimSpace(input.Title)
	if len(title) > model.DraftTitleMaxLen {
		return fmt.Errorf("draft title too long: %w", apperr.ErrValidation)
	}
	if len(input.Notes) > model.DraftNotesMaxLen {
		return fmt.Errorf("draft notes too long: %w", apperr.ErrValidation)
	}
	return nil
}
