package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siraqemir/internal/handlers"
	"siraqemir/internal/middleware"
	"siraqemir/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	apiKey string,
	authService services.AuthService,
	authHandler *handlers.AuthHandler,
	taskHandler *handlers.TaskHandler,
	realtimeHandler *handlers.RealtimeHandler,
) *gin.Engine {
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- public (api key only)
	api := r.Group("/", middleware.APIKeyMiddleware(apiKey))
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.RefreshToken)

	// ---- protected
	protected := api.Group("/", middleware.AuthMiddleware(authService))

	auth := protected.Group("/auth")
	{
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/user", authHandler.Me)
	}

	// TASKS
	tasks := protected.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/export.pdf", taskHandler.ExportPDF)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	protected.GET("/realtime/tasks", realtimeHandler.Tasks)

	return r
}
