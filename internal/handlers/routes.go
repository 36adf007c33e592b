package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/web"
)

// RouterConfig holds everything the HTTP surface depends on
type RouterConfig struct {
	SessionStore sessions.Store
	AuthService  *services.AuthService
	TaskService  *services.TaskService
	TokenService *services.TokenService
	Logger       *slog.Logger
	// Health reports backing service status for /health; nil means always healthy
	Health func() error
}

// NewRouter builds the gin engine serving the browser UI and the JSON API
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	tmpl, err := web.Templates(cfg.TaskService.Location())
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(cfg.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, cfg.SessionStore))
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	authHandler := NewAuthHandler(cfg.AuthService, cfg.TokenService)
	taskHandler := NewTaskHandler(cfg.TaskService)
	webHandler := NewWebHandler(cfg.AuthService, cfg.TaskService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "TaskMaster is running",
		})
	})

	// Browser routes
	r.GET("/", webHandler.Index)
	r.GET("/about", webHandler.About)
	r.GET("/docs", webHandler.Docs)
	r.GET("/register", webHandler.RegisterPage)
	r.POST("/register", webHandler.Register)
	r.GET("/login", webHandler.LoginPage)
	r.POST("/login", webHandler.Login)
	r.GET("/logout", webHandler.Logout)

	pages := r.Group("")
	pages.Use(middleware.RequireLogin())
	{
		pages.GET("/dashboard", webHandler.Dashboard)
		pages.GET("/task/new", webHandler.NewTaskPage)
		pages.POST("/task/new", webHandler.CreateTask)
		pages.GET("/task/:id", webHandler.ViewTask)
		pages.GET("/task/:id/edit", webHandler.EditTaskPage)
		pages.POST("/task/:id/edit", webHandler.UpdateTask)
		pages.POST("/task/:id/delete", webHandler.DeleteTask)
		pages.POST("/task/:id/toggle_complete", webHandler.ToggleComplete)
	}

	// API routes
	var tokens middleware.TokenValidator
	if cfg.TokenService != nil {
		tokens = cfg.TokenService
	}
	requireAuth := middleware.RequireAuth(tokens)
	requireTask := middleware.RequireTaskAccess(cfg.TaskService)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/token", authHandler.IssueToken)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		api.GET("/dashboard", requireAuth, taskHandler.Dashboard)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", requireTask, taskHandler.GetTask)
			tasks.PUT("/:id", requireTask, taskHandler.UpdateTask)
			tasks.PATCH("/:id", requireTask, taskHandler.UpdateTask)
			tasks.DELETE("/:id", requireTask, taskHandler.DeleteTask)
			tasks.POST("/:id/toggle", requireTask, taskHandler.ToggleTask)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			apierrors.NotFound(c, "")
			return
		}
		webHandler.NotFound(c)
	})

	return r, nil
}
