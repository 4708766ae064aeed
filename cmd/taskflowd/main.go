// Command taskflowd runs the calendar and task API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yadava5/taskflow/internal/config"
	"github.com/yadava5/taskflow/internal/db"
	"github.com/yadava5/taskflow/internal/handlers"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/middleware"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/scheduler"
	"github.com/yadava5/taskflow/internal/server"
	"github.com/yadava5/taskflow/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("open database", "error", err)
	}

	// Repos
	userRepo := repos.NewUserRepo(gdb, log)
	tokenRepo := repos.NewTokenRepo(gdb, log)
	calendarRepo := repos.NewCalendarRepo(gdb, log)
	eventRepo := repos.NewEventRepo(gdb, log)
	taskRepo := repos.NewTaskRepo(gdb, log)

	// Services
	authService := services.NewAuthService(gdb, log, userRepo, tokenRepo, calendarRepo, cfg.Auth)
	calendarService := services.NewCalendarService(gdb, log, calendarRepo, eventRepo)
	eventService := services.NewEventService(gdb, log, eventRepo, calendarRepo)
	taskService := services.NewTaskService(gdb, log, taskRepo, userRepo)
	icsService := services.NewICSService(gdb, log, eventRepo, calendarRepo)

	// HTTP
	router := server.NewRouter(server.RouterConfig{
		Log:             log,
		Mode:            cfg.Mode,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.NewAuthMiddleware(log, authService),
		AuthHandler:     handlers.NewAuthHandler(authService),
		CalendarHandler: handlers.NewCalendarHandler(calendarService, icsService),
		EventHandler:    handlers.NewEventHandler(eventService, calendarService),
		TaskHandler:     handlers.NewTaskHandler(taskService),
	})
	srv := server.New(cfg.Listen, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	janitor := scheduler.NewJanitor(log, tokenRepo, eventRepo, calendarRepo, taskRepo)
	if cfg.JanitorCron != "" {
		go func() {
			if err := janitor.Start(ctx, cfg.JanitorCron); err != nil {
				log.Error("janitor failed", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	cancel()
	if cfg.JanitorCron != "" {
		janitor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
