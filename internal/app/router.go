package app

import (
	"placeprep_backend/docs"
	"placeprep_backend/internal/config"
	"placeprep_backend/internal/middleware"
	"placeprep_backend/internal/model"
	"placeprep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public routes
	a.registerPublicRoutes(router, c)

	// 2. signed-in users
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerUserRoutes(authGroup, c)

		// 3. moderators and admins
		a.registerModeratorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		auth.POST("/signup", c.auth.Signup)
		auth.POST("/login", c.auth.Login)
		auth.POST("/logout", c.auth.Logout)
		auth.POST("/verify-email", c.auth.VerifyEmail)
		auth.POST("/resend-verification", c.auth.ResendVerification)
		auth.POST("/forgot-password", c.auth.ForgotPassword)
		auth.POST("/reset-password", c.auth.ResetPassword)
		auth.POST("/google-auth", c.auth.GoogleAuth)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)
	rg.POST("/auth/create-moderator", middleware.RoleMiddleware(model.RoleAdmin), c.auth.CreateModerator)

	questions := rg.Group("/questions")
	{
		questions.GET("/categories", c.question.Categories)
		questions.GET("/practice", c.question.Practice)
		questions.GET("/bookmarks", c.question.ListBookmarks)
		questions.GET("/:id", c.question.Get)
		questions.POST("/:id/bookmark", c.question.AddBookmark)
		questions.DELETE("/:id/bookmark", c.question.RemoveBookmark)
	}

	practice := rg.Group("/free-practice")
	{
		practice.POST("", c.practice.Create)
		practice.GET("", c.practice.List)
		practice.GET("/stats", c.practice.Stats)
		practice.POST("/:id/submit", c.practice.Submit)
		practice.GET("/:id/result", c.practice.Result)
	}

	testSeries := rg.Group("/testseries")
	{
		testSeries.GET("", c.testSeries.List)
		testSeries.POST("/violation", c.testSeries.RecordViolation)
		testSeries.GET("/:id", c.testSeries.Get)
		testSeries.POST("/:id/join", c.testSeries.Join)
		testSeries.POST("/:id/answer", c.testSeries.SaveAnswer)
		testSeries.POST("/:id/submit", c.testSeries.Submit)
		testSeries.GET("/:id/my-result", c.testSeries.MyResult)
		testSeries.GET("/:id/leaderboard", c.testSeries.Leaderboard)
	}

	results := rg.Group("/results")
	{
		results.GET("", c.result.List)
		results.GET("/:id", c.result.Detail)
	}

	notifications := rg.Group("/notifications")
	{
		notifications.GET("", c.notification.List)
		notifications.GET("/ws", c.notification.Connect)
		notifications.PUT("/read-all", c.notification.MarkAllRead)
		notifications.PUT("/:id/read", c.notification.MarkRead)
		notifications.DELETE("/:id", c.notification.Delete)
	}
}

func (a *App) registerModeratorRoutes(rg *gin.RouterGroup, c *controllers) {
	moderator := middleware.RoleMiddleware(model.RoleModerator, model.RoleAdmin)

	questions := rg.Group("/questions")
	questions.Use(moderator)
	{
		questions.GET("", c.question.List)
		questions.POST("", c.question.Create)
		questions.POST("/import", c.question.Import)
		questions.PUT("/:id", c.question.Update)
		questions.DELETE("/:id", c.question.Delete)
	}

	testSeries := rg.Group("/testseries")
	testSeries.Use(moderator)
	{
		testSeries.POST("", c.testSeries.Create)
		testSeries.PUT("/:id", c.testSeries.Update)
		testSeries.DELETE("/:id", c.testSeries.Delete)
		testSeries.GET("/:id/stats", c.testSeries.Stats)
		testSeries.GET("/:id/export", c.testSeries.Export)
		testSeries.POST("/:id/export/archive", c.testSeries.Archive)
	}
}
