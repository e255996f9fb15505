package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// testEnv bundles the repositories and services under test, backed by an
// in-memory database.
type testEnv struct {
	db *gorm.DB

	taskRepo  *repository.TaskRepository
	groupRepo *repository.GroupRepository
	inboxRepo *repository.InboxRepository
	draftRepo *repository.DraftRepository
	statsRepo *repository.StatsRepository
	userRepo  *repository.UserRepository

	tasks      *TaskService
	groups     *GroupService
	stats      *StatsService
	promotions *PromotionService
	users      *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	env := &testEnv{
		db:        db,
		taskRepo:  repository.NewTaskRepository(db),
		groupRepo: repository.NewGroupRepository(db),
		inboxRepo: repository.NewInboxRepository(db),
		draftRepo: repository.NewDraftRepository(db),
		statsRepo: repository.NewStatsRepository(db),
		userRepo:  repository.NewUserRepository(db),
	}
	env.stats = NewStatsService(env.statsRepo, env.taskRepo, env.groupRepo)
	env.groups = NewGroupService(env.groupRepo, env.taskRepo, env.stats)
	env.tasks = NewTaskService(env.taskRepo, env.groupRepo, env.groups, env.stats)
	env.promotions = NewPromotionService(db, env.inboxRepo, env.draftRepo, env.groupRepo, env.groups, env.stats)
	env.users = NewUserService(env.userRepo, env.groups, env.stats)
	return env
}

// freezeNow pins every service clock to a fixed instant.
func (e *testEnv) freezeNow(now time.Time) {
	e.tasks.now = func() time.Time { return now }
	e.groups.now = func() time.Time { return now }
	e.stats.now = func() time.Time { return now }
	e.promotions.now = func() time.Time { return now }
}

func (e *testEnv) seedGroup(t *testing.T, userID, name string) *model.Group {
	t.Helper()
	group := &model.Group{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
	}
	require.NoError(t, e.groupRepo.Create(context.Background(), group))
	return group
}

func (e *testEnv) seedTask(t *testing.T, task *model.Task) *model.Task {
	t.Helper()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.RecurrencePattern == "" {
		task.RecurrencePattern = model.RecurNone
	}
	require.NoError(t, e.taskRepo.Create(context.Background(), task))
	return task
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }
