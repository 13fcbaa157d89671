package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"voteticker/internal/auth"
	"voteticker/internal/config"
	"voteticker/internal/database"
	"voteticker/internal/handlers"
	"voteticker/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	userService := services.NewUserService(db)
	clubService := services.NewClubService(db)
	watchlistService := services.NewWatchlistService(db)
	agentService := services.NewAgentService(db)
	proposalService := services.NewProposalService(db)
	discussionService := services.NewDiscussionService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	clubHandler := handlers.NewClubHandler(clubService)
	watchlistHandler := handlers.NewWatchlistHandler(clubHandler, watchlistService)
	proposalHandler := handlers.NewProposalHandler(clubHandler, clubService, agentService, proposalService)
	discussionHandler := handlers.NewDiscussionHandler(clubHandler, discussionService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(auth.RateLimitMiddleware(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	router.GET("/api/clubs", clubHandler.ListClubs)
	router.GET("/api/clubs/:slug", clubHandler.GetClub)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	api.Use(authHandler.ResolveUser())
	{
		api.GET("/me", authHandler.GetMe)
		api.PATCH("/me", authHandler.UpdateMe)

		// Clubs and membership
		api.POST("/clubs", clubHandler.CreateClub)
		api.GET("/clubs/:slug/member", clubHandler.GetMembership)
		api.POST("/clubs/:slug/join", clubHandler.JoinClub)
		api.GET("/clubs/:slug/members", clubHandler.ListMembers)
		api.GET("/clubs/:slug/pending", clubHandler.ListPending)
		api.POST("/clubs/:slug/approve/:memberId", clubHandler.ApproveMember)
		api.POST("/clubs/:slug/reject/:memberId", clubHandler.RejectMember)

		// Watchlist
		api.GET("/clubs/:slug/watchlist", watchlistHandler.List)
		api.POST("/clubs/:slug/watchlist", watchlistHandler.Add)
		api.DELETE("/clubs/:slug/watchlist/:ticker", watchlistHandler.Remove)

		// Proposals and the receipt ledger
		api.POST("/clubs/:slug/proposals/generate", proposalHandler.Generate)
		api.GET("/clubs/:slug/proposals", proposalHandler.List)
		api.GET("/proposals/:id", proposalHandler.Get)
		api.POST("/proposals/:id/vote", proposalHandler.Vote)
		api.POST("/proposals/:id/publish", proposalHandler.Publish)
		api.GET("/proposals/:id/receipt", proposalHandler.GetReceipt)
		api.GET("/receipts/verify", proposalHandler.VerifyChain)

		// Discussion
		api.GET("/clubs/:slug/discussion", discussionHandler.List)
		api.POST("/clubs/:slug/discussion", discussionHandler.Post)
		api.POST("/clubs/:slug/discussion/:messageId/pin", discussionHandler.Pin)
		api.POST("/clubs/:slug/discussion/:messageId/unpin", discussionHandler.Unpin)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
