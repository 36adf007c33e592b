package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/cache"
	"github.com/yukikurage/taskmaster/internal/config"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/database"
	"github.com/yukikurage/taskmaster/internal/handlers"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/services"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the TaskMaster HTTP server.

The server connects to the database, runs migrations, then serves the
browser UI and the JSON API until it receives SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringP("port", "p", "", "port to listen on (overrides PORT)")

	return cmd
}

func runServe(cfg *config.Config) error {
	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		return err
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		database.Close()
		return err
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		database.Close()
		return err
	}

	taskConfig := services.TaskServiceConfig{
		PerPage:  cfg.PerPage,
		Location: cfg.Location(),
	}

	// Category cache is optional; the dashboard falls back to the database
	var categoryCache *cache.Cache
	if cfg.CacheEnabled {
		categoryCache, err = cache.Connect(context.Background(), cfg.RedisAddr(), "taskmaster", cfg.CacheTTL)
		if err != nil {
			log.Printf("Category cache disabled: %v", err)
		} else {
			taskConfig.Categories = categoryCache
		}
	}

	// Initialize AI service
	if cfg.OpenAIAPIKey != "" {
		taskConfig.AI = services.NewAIService(cfg.OpenAIAPIKey)
	}

	db := database.GetDB()
	authService := services.NewAuthService(repository.NewUserRepository(db))
	taskService := services.NewTaskService(repository.NewTaskRepository(db), taskConfig)
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)

	router, err := handlers.NewRouter(handlers.RouterConfig{
		SessionStore: store,
		AuthService:  authService,
		TaskService:  taskService,
		TokenService: tokenService,
		Logger:       slog.New(slog.NewTextHandler(os.Stdout, nil)),
		Health: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to build router: %w", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// One operation so connections close only after in-flight requests drain
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return shutdown(ctx, srv, categoryCache)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

// shutdown stops the HTTP server, then the cache, then the database
func shutdown(ctx context.Context, srv *http.Server, categoryCache *cache.Cache) error {
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if categoryCache != nil {
		if err := categoryCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		rs, err := redisStore.NewStore(
			10,              // Redis pool size
			"tcp",           // network type
			cfg.RedisAddr(), // Redis address from config
			"",              // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = rs
	default:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	// Configure session options based on environment
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
