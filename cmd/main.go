package main

import (
	"fmt"
	"os"

	"github.com/lumenlearn/lumenlearn-backend/internal/db"
	"github.com/lumenlearn/lumenlearn-backend/internal/handlers"
	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/middleware"
	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
	"github.com/lumenlearn/lumenlearn-backend/internal/server"
	"github.com/lumenlearn/lumenlearn-backend/internal/services"
	"github.com/lumenlearn/lumenlearn-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	lessonProgressRepo := repos.NewLessonProgressRepo(thePG, log)
	eventRepo := repos.NewEventRepo(thePG, log)
	certificateRepo := repos.NewCertificateRepo(thePG, log)
	certificateLookupRepo := repos.NewCertificateLookupRepo(thePG, log)
	exceptionRepo := repos.NewCertificateExceptionRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	profiles := services.NewEntityProfiles(courseRepo, lessonProgressRepo, eventRepo)
	eligibilityService := services.NewEligibilityService(thePG, log, exceptionRepo, certificateRepo, profiles)
	certificateService := services.NewCertificateService(thePG, log, certificateRepo, certificateLookupRepo, userRepo, eligibilityService, profiles)
	progressService := services.NewProgressService(thePG, log, lessonProgressRepo, lessonRepo, courseRepo)
	eventService := services.NewEventService(thePG, log, eventRepo, eligibilityService)
	issueGuard := services.NewIssueGuard(log)
	autoIssueTrigger := services.NewAutoIssueTrigger(log, certificateService, issueGuard)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:     authMiddleware,
		HealthHandler:      handlers.NewHealthHandler(),
		CourseHandler:      handlers.NewCourseHandler(log, courseRepo),
		ProgressHandler:    handlers.NewProgressHandler(log, progressService, autoIssueTrigger),
		CertificateHandler: handlers.NewCertificateHandler(log, certificateService, eligibilityService),
		EventHandler:       handlers.NewEventHandler(log, eventService, autoIssueTrigger),
	})

	log.Info("Starting server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
