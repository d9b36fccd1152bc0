package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"boulder-scoring-system/handlers"
	"boulder-scoring-system/middleware"
	"boulder-scoring-system/models"
	"boulder-scoring-system/services"
	"boulder-scoring-system/utils"
	"boulder-scoring-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // result batches are tiny
	})

	// The liveness probe answers before any auth: orchestrators carry no
	// gateway credentials.
	handlers.SetupHealthRoutes(app)

	// Everything else must come through the session gateway.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Participant-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.AgeGroup{},
		&models.Participant{},
		&models.Boulder{},
		&models.Result{},
		&models.CompetitionSettings{},
		&models.SubmissionWindow{},
		&models.BroadcastMessage{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	grace := time.Duration(0)
	if graceStr := os.Getenv("SUBMISSION_GRACE_SECONDS"); graceStr != "" {
		parsed, err := time.ParseDuration(graceStr + "s")
		if err != nil {
			log.Fatal("invalid SUBMISSION_GRACE_SECONDS:", err)
		}
		grace = parsed
	}

	settingsService := services.NewSettingsService(db)
	windowService := services.NewWindowService(db, grace)
	scoreboardService := services.NewScoreboardService(db, settingsService)
	resultService := services.NewResultService(db, windowService, scoreboardService)
	broadcastService := services.NewBroadcastService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backupWorker := workers.NewBackupWorker(db)
	go backupWorker.Run(ctx, 15*time.Minute)

	scoreboardService.StartWarmupScheduler(10 * time.Second)

	handlers.SetupResultRoutes(app, resultService, windowService, broadcastService)
	handlers.SetupScoreboardRoutes(app, scoreboardService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Println("Backup worker running (every 15m)")
	log.Println("Scoreboard warmup running (every 10s)")
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
