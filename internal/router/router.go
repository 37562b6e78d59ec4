package router

import (
	"strings"

	"invoicemanager/internal/config"
	"invoicemanager/internal/handler"
	"invoicemanager/internal/middleware"
	"invoicemanager/internal/repository"
	"invoicemanager/internal/service"

	"github.com/gin-gonic/gin"
)

func Setup(processService *service.ProcessService) *gin.Engine {
	r := gin.Default()

	cfg := config.Get()

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	if len(allowedOrigins) == 0 || allowedOrigins[0] == "" {
		allowedOrigins = []string{"*"}
	}

	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			o = strings.TrimSpace(o)
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		} else if allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitAuthRPS, 10)

	userHandler := handler.NewUserHandler()
	partnerHandler := handler.NewPartnerHandler()
	nonbillableHandler := handler.NewNonbillableHandler()
	runHandler := handler.NewRunHandler(processService)
	ledgerHandler := handler.NewLedgerHandler(repository.NewPILedgerRepository(cfg.LedgerPath))
	systemHandler := handler.NewSystemHandler()

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(authLimiter.RateLimitByIP())
		{
			auth.POST("/login", userHandler.Login)
		}

		me := api.Group("/me")
		me.Use(middleware.JWTAuthMiddleware())
		{
			me.PUT("/password", userHandler.ChangePassword)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.JWTAuthMiddleware())
		admin.Use(middleware.AdminMiddleware())
		{
			partners := admin.Group("/partners")
			{
				partners.GET("", partnerHandler.List)
				partners.POST("", partnerHandler.Create)
				partners.PUT("/:id", partnerHandler.Update)
				partners.DELETE("/:id", partnerHandler.Delete)
			}

			nonbillable := admin.Group("/nonbillable")
			{
				nonbillable.GET("/pis", nonbillableHandler.ListPIs)
				nonbillable.POST("/pis", nonbillableHandler.AddPI)
				nonbillable.DELETE("/pis/:pi", nonbillableHandler.RemovePI)
				nonbillable.GET("/projects", nonbillableHandler.ListProjects)
				nonbillable.POST("/projects", nonbillableHandler.AddProject)
				nonbillable.DELETE("/projects/:project", nonbillableHandler.RemoveProject)
				nonbillable.GET("/timed-projects", nonbillableHandler.ListTimedProjects)
				nonbillable.POST("/timed-projects", nonbillableHandler.AddTimedProject)
				nonbillable.DELETE("/timed-projects/:id", nonbillableHandler.RemoveTimedProject)
			}

			runs := admin.Group("/runs")
			{
				runs.GET("", runHandler.List)
				runs.POST("", runHandler.Process)
				runs.GET("/:id", runHandler.Get)
				runs.GET("/:id/reports/:name", runHandler.DownloadReport)
			}

			ledger := admin.Group("/ledger")
			{
				ledger.GET("", ledgerHandler.List)
				ledger.GET("/:pi", ledgerHandler.Get)
			}

			system := admin.Group("/system")
			{
				system.GET("/s3-credentials", systemHandler.GetS3Credentials)
				system.PUT("/s3-credentials", systemHandler.UpdateS3Credentials)
				system.POST("/database/upload", systemHandler.UploadDatabase)
				system.GET("/database/download", systemHandler.DownloadDatabase)
				system.GET("/database/backups", systemHandler.ListBackups)
				system.POST("/database/restore", systemHandler.RestoreBackup)
				system.DELETE("/database/backups/:filename", systemHandler.DeleteBackup)
			}
		}
	}

	return r
}
