package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "siraqemir/docs"
	"siraqemir/internal/config"
	"siraqemir/internal/handlers"
	"siraqemir/internal/pdf"
	"siraqemir/internal/realtime"
	"siraqemir/internal/repositories"
	"siraqemir/internal/routes"
	"siraqemir/internal/services"
)

// Server bundles the HTTP router with the change hub it publishes to.
type Server struct {
	Router *gin.Engine
	Hub    *realtime.ChangeHub
}

// NewServer wires repositories, services and handlers on top of db.
func NewServer(cfg *config.Config, db *sql.DB) *Server {
	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	taskRepo := repositories.NewTaskRepository(db)

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	var emailService services.EmailService
	if cfg.Email.Enabled() {
		emailService = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
	}
	hub := realtime.NewChangeHub(cfg.Realtime.SendBuffer)
	userService := services.NewUserService(userRepo, emailService, authService)
	taskService := services.NewTaskService(taskRepo, hub)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, userService, pdf.NewTaskListGenerator(cfg.PDF.FontPath))
	realtimeHandler := handlers.NewRealtimeHandler(hub)

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, cfg.Auth.PublicAPIKey, authService, authHandler, taskHandler, realtimeHandler)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Server{Router: router, Hub: hub}
}

func Run() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("config: ", err)
	}

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("db open: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("db close: %v", err)
		}
	}()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.Fatal("db ping: ", err)
	}

	srv := NewServer(cfg, db)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{Addr: listenAddr, Handler: srv.Router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[server] listening on %s", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server: ", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[server] shutting down")
	// hijacked websocket connections are not tracked by http.Server
	srv.Hub.Shutdown()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}
