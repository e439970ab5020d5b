package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/config"
	"github.com/champquest/champquest-api/internal/constants"
	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/events"
	"github.com/champquest/champquest-api/internal/handlers"
	"github.com/champquest/champquest-api/internal/jobs"
	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/middleware"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	appLogger, err := logger.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Index creation inspects pg_indexes, so skip it on other drivers.
	if cfg.DBDriver == "postgres" {
		if err := database.AddIndexes(db); err != nil {
			log.Fatalf("Failed to add indexes: %v", err)
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	depRepo := repository.NewDependencyRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	sprintRepo := repository.NewSprintRepository(db)

	// Services
	dispatcher := events.NewWebhookDispatcher(db, cfg.WebhookTimeout, appLogger)
	activityService := services.NewActivityService(activityRepo, appLogger)
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, activityService)
	taskService := services.NewTaskService(taskRepo, teamRepo, userRepo, activityService, dispatcher)
	depService := services.NewDependencyService(depRepo, taskRepo, teamRepo)
	commentService := services.NewCommentService(commentRepo, taskRepo, teamRepo, activityService)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	challengeService := services.NewChallengeService(challengeRepo, teamRepo)
	sprintService := services.NewSprintService(sprintRepo, taskRepo, teamRepo)
	analyticsService := services.NewAnalyticsService(teamRepo, snapshotRepo, userRepo)

	// Weekly analytics snapshots
	scheduler := jobs.NewSnapshotScheduler(teamRepo, snapshotRepo, 0, appLogger)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService, depService, commentService, aiService, teamService, appLogger)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	sprintHandler := handlers.NewSprintHandler(sprintService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Champ Quest API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Reward tables (public, read-only)
		api.GET("/config", handlers.GetRewardConfig)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(middleware.RequireAuth())
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListMyTeams)
			teams.POST("/join", teamHandler.JoinTeam)

			team := teams.Group("/:id")
			team.Use(middleware.RequireTeamAccess())
			{
				team.GET("", teamHandler.GetTeam)
				team.GET("/members", teamHandler.ListMembers)
				team.PATCH("/members/:userID/role", middleware.RequireTeamAdmin(), teamHandler.ChangeMemberRole)
				team.DELETE("/members/:userID", middleware.RequireTeamAdmin(), teamHandler.RemoveMember)
				team.PUT("/settings", middleware.RequireTeamAdmin(), teamHandler.UpdateSettings)
				team.GET("/stats", teamHandler.Stats)
				team.GET("/activity", teamHandler.Activity)

				// Task routes, scoped to the team
				tasks := team.Group("/tasks")
				{
					tasks.GET("", taskHandler.ListTasks)
					tasks.POST("", taskHandler.CreateTask)
					tasks.GET("/overdue", taskHandler.ListOverdueTasks)
					tasks.POST("/extract", taskHandler.ExtractTasks)

					task := tasks.Group("/:taskID")
					task.Use(middleware.RequireTaskAccess())
					{
						task.GET("", taskHandler.GetTask)
						task.PATCH("", taskHandler.UpdateTask)
						task.DELETE("", taskHandler.DeleteTask)
						task.PATCH("/status", taskHandler.SetStatus)
						task.POST("/complete", taskHandler.CompleteTask)
						task.POST("/uncomplete", taskHandler.UncompleteTask)
						task.POST("/assign", taskHandler.AssignTask)
						task.GET("/dependencies", taskHandler.GetDependencies)
						task.POST("/dependencies", taskHandler.AddDependency)
						task.DELETE("/dependencies/:depID", taskHandler.RemoveDependency)
						task.GET("/comments", taskHandler.ListComments)
						task.POST("/comments", taskHandler.AddComment)
					}
				}

				// Daily challenges, scoped to the team
				challenges := team.Group("/challenges")
				{
					challenges.GET("", challengeHandler.ListDaily)
					challenges.GET("/all", middleware.RequireTeamAdmin(), challengeHandler.ListAll)
					challenges.POST("", middleware.RequireTeamAdmin(), challengeHandler.CreateChallenge)
					challenges.PATCH("/:challengeID", middleware.RequireTeamAdmin(), challengeHandler.UpdateChallenge)
					challenges.DELETE("/:challengeID", middleware.RequireTeamAdmin(), challengeHandler.DeleteChallenge)
					challenges.POST("/:challengeID/complete", challengeHandler.CompleteChallenge)
				}

				// Sprints, scoped to the team
				sprints := team.Group("/sprints")
				{
					sprints.GET("", sprintHandler.ListSprints)
					sprints.POST("", middleware.RequireTeamAdmin(), sprintHandler.CreateSprint)
					sprints.GET("/:sprintID", sprintHandler.GetSprint)
					sprints.PATCH("/:sprintID", middleware.RequireTeamAdmin(), sprintHandler.UpdateSprint)
					sprints.POST("/:sprintID/tasks", sprintHandler.AddTask)
					sprints.DELETE("/:sprintID/tasks/:taskID", sprintHandler.RemoveTask)
				}

				// Analytics, scoped to the team
				analytics := team.Group("/analytics")
				{
					analytics.GET("/weekly", analyticsHandler.Weekly)
					analytics.GET("/monthly", analyticsHandler.Monthly)
					analytics.GET("/history", analyticsHandler.History)
					analytics.POST("/snapshot", middleware.RequireTeamAdmin(), analyticsHandler.Snapshot)
				}
			}
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
