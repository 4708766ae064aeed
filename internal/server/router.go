// Package server assembles the gin engine and runs the HTTP listener.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/yadava5/taskflow/internal/handlers"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/middleware"
)

type RouterConfig struct {
	Log         *logger.Logger
	Mode        string
	CORSOrigins []string

	AuthMiddleware *middleware.AuthMiddleware

	AuthHandler     *handlers.AuthHandler
	CalendarHandler *handlers.CalendarHandler
	EventHandler    *handlers.EventHandler
	TaskHandler     *handlers.TaskHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/healthz", handlers.Health)

	api := r.Group("/api")
	{
		// Auth (public)
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
		api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	}

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Auth (protected)
		protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		protected.GET("/me", cfg.AuthHandler.Me)

		// Calendars
		protected.POST("/calendars", cfg.CalendarHandler.Create)
		protected.GET("/calendars", cfg.CalendarHandler.List)
		protected.GET("/calendars/:id", cfg.CalendarHandler.Get)
		protected.PATCH("/calendars/:id", cfg.CalendarHandler.Patch)
		protected.DELETE("/calendars/:id", cfg.CalendarHandler.Delete)
		protected.POST("/calendars/:id/default", cfg.CalendarHandler.SetDefault)
		protected.GET("/calendars/:id/events", cfg.EventHandler.ListByCalendar)
		protected.GET("/calendars/:id/export.ics", cfg.CalendarHandler.Export)
		protected.POST("/calendars/:id/import", cfg.CalendarHandler.Import)

		// Events; the collection GET is the expanded agenda
		protected.GET("/events", cfg.EventHandler.Agenda)
		protected.POST("/events", cfg.EventHandler.Create)
		protected.GET("/events/:id", cfg.EventHandler.Get)
		protected.PATCH("/events/:id", cfg.EventHandler.Patch)
		protected.DELETE("/events/:id", cfg.EventHandler.Delete)
		protected.GET("/events/:id/occurrences", cfg.EventHandler.Occurrences)

		// Tasks
		protected.POST("/tasks", cfg.TaskHandler.Create)
		protected.GET("/tasks", cfg.TaskHandler.List)
		protected.POST("/tasks/quickadd", cfg.TaskHandler.QuickAdd)
		protected.POST("/tasks/reorder", cfg.TaskHandler.Reorder)
		protected.GET("/tasks/:id", cfg.TaskHandler.Get)
		protected.PATCH("/tasks/:id", cfg.TaskHandler.Patch)
		protected.DELETE("/tasks/:id", cfg.TaskHandler.Delete)
		protected.POST("/tasks/:id/toggle", cfg.TaskHandler.Toggle)
	}

	return r
}
