package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/notify"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	statsSvc := service.NewStatsService(statsRepo, taskRepo, groupRepo)
	groupSvc := service.NewGroupService(groupRepo, taskRepo, statsSvc)
	taskSvc := service.NewTaskService(taskRepo, groupRepo, groupSvc, statsSvc)

	scheduler := service.NewSchedulerService(time.Local)

	if cfg.TelegramToken != "" {
		notifier, err := notify.NewTelegram(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("notifier: %v", err)
		}
		reminderSvc := service.NewReminderService(taskRepo, userRepo, notifier, cfg.ReminderWindow)
		if _, err := scheduler.ScheduleInterval(cfg.ReminderScanInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := reminderSvc.ScanDue(jobCtx); err != nil {
				log.Printf("reminder scan: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule reminder scan: %v", err)
		}
	}

	if cfg.CleanupDays > 0 {
		if _, err := scheduler.ScheduleDaily(cfg.CleanupTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			users, err := userRepo.ListAll(jobCtx)
			if err != nil {
				log.Printf("cleanup: list users: %v", err)
				return
			}
			for _, user := range users {
				deleted, err := taskSvc.CleanupCompleted(jobCtx, user.ID, cfg.CleanupDays)
				if err != nil {
					log.Printf("cleanup for user %s: %v", user.ID, err)
					continue
				}
				if deleted > 0 {
					log.Printf("cleanup for user %s: removed %d tasks", user.ID, deleted)
				}
			}
		}); err != nil {
			log.Fatalf("schedule cleanup: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("taskhub engine started.")
	<-ctx.Done()
	log.Println("Shutdown complete.")
}
