package main

import (
	"log"
	"time"
	"trip-counter-service/config"
	"trip-counter-service/database"
	"trip-counter-service/handlers"
	"trip-counter-service/middleware"
	"trip-counter-service/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Initialize database
	if err := database.InitDB(config.AppConfig.DBPath); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Assemble the live counter services
	store := services.NewCounterStore(database.GetDB(), services.CounterPolicy{
		MinValue:     config.AppConfig.CounterMinValue,
		ClampAtBound: config.AppConfig.CounterClampAtBound,
	})
	cache := services.NewSnapshotCache(store)
	registry := services.NewRegistry()
	gate := services.NewGate(cache, config.AppConfig.Timezone, config.AppConfig.CacheWarmDays)
	live := services.NewLive(store, cache, registry, gate, config.AppConfig.Timezone)
	handlers.Setup(live, store, cache, gate)

	// Provision counter rows for the forward window, then daily
	provisioner := services.NewProvisioner(store, config.AppConfig.Timezone,
		config.AppConfig.ProvisionDays, config.AppConfig.RetentionDays)
	if err := provisioner.Start(config.AppConfig.ProvisionCron); err != nil {
		log.Fatal("Failed to start provisioner:", err)
	}
	defer provisioner.Stop()

	// Open the gate and warm today's cache; a warm failure is not fatal,
	// the affected dates stay unserved until refreshed
	if err := gate.Enable(); err != nil {
		log.Printf("Initial cache warm incomplete: %v", err)
	}

	// Start rate limit cleanup goroutine
	go middleware.CleanupRateLimitStore()

	// Setup Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Live counter websocket
	router.GET("/ws", handlers.ServeWS)

	// Public routes
	public := router.Group("/api")
	{
		// Auth
		public.POST("/auth/register", handlers.Register)
		public.POST("/auth/login", handlers.Login)
		public.POST("/auth/refresh", handlers.RefreshToken)

		// Day listing and availability polling
		public.GET("/counters", handlers.GetDayCounters)
		public.GET("/availability", handlers.GetAvailability)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/auth/logout", handlers.Logout)

		// Audit records
		protected.GET("/records", handlers.GetRecords)
		protected.POST("/records",
			middleware.RateLimitMiddleware(30, 1*time.Minute, 5*time.Minute),
			handlers.CreateRecord)
	}

	// Admin routes
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleGuard("admin"))
	{
		// Region management
		admin.GET("/regions", handlers.GetAllRegions)
		admin.POST("/regions", handlers.AddRegion)
		admin.PUT("/regions/:id", handlers.UpdateRegion)
		admin.DELETE("/regions/:id", handlers.DeleteRegion)

		// Time period management
		admin.GET("/time-periods", handlers.GetTimePeriods)
		admin.POST("/time-periods", handlers.AddTimePeriod)
		admin.DELETE("/time-periods/:id", handlers.DeleteTimePeriod)

		// Counter management
		admin.GET("/counter-search", handlers.SearchCounters)
		admin.POST("/counters", handlers.AddCounter)
		admin.PUT("/counters/:id", handlers.UpdateCounter)
		admin.DELETE("/counters/:id", handlers.DeleteCounter)
		admin.POST("/counters/state", handlers.SetCountersState)

		// Audit record deletion
		admin.DELETE("/records/:id", handlers.DeleteRecord)

		// Maintenance gate
		admin.POST("/availability",
			middleware.RateLimitMiddleware(10, 1*time.Minute, 5*time.Minute),
			handlers.UpdateAvailability)
	}

	// Start server
	log.Printf("Server starting on port %s", config.AppConfig.Port)
	if err := router.Run(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
