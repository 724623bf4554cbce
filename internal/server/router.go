package server

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/lumenlearn-backend/internal/handlers"
	"github.com/lumenlearn/lumenlearn-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware

	HealthHandler      *handlers.HealthHandler
	CourseHandler      *handlers.CourseHandler
	ProgressHandler    *handlers.ProgressHandler
	CertificateHandler *handlers.CertificateHandler
	EventHandler       *handlers.EventHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Public verification surface: anonymous by design, lookup records only.
	if cfg.CertificateHandler != nil {
		r.GET("/verify/:number", cfg.CertificateHandler.Verify)
	}

	api := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.CourseHandler != nil {
			api.GET("/courses/:id/catalog", cfg.CourseHandler.GetCatalog)
		}

		if cfg.ProgressHandler != nil {
			api.GET("/courses/:id/progress", cfg.ProgressHandler.GetCourseProgress)
			api.POST("/lessons/:id/progress/video", cfg.ProgressHandler.RecordVideoProgress)
			api.POST("/lessons/:id/progress/reading", cfg.ProgressHandler.RecordReadingProgress)
			api.POST("/lessons/:id/quiz", cfg.ProgressHandler.SubmitQuiz)
			api.POST("/lessons/:id/complete", cfg.ProgressHandler.MarkLessonComplete)
		}

		if cfg.CertificateHandler != nil {
			api.GET("/courses/:id/eligibility", cfg.CertificateHandler.CheckCourseEligibility)
			api.POST("/courses/:id/certificate", cfg.CertificateHandler.RequestCourseCertificate)
			api.GET("/events/:id/eligibility", cfg.CertificateHandler.CheckEventEligibility)
			api.POST("/events/:id/certificate", cfg.CertificateHandler.RequestEventCertificate)
			api.GET("/me/certificates", cfg.CertificateHandler.ListMyCertificates)
		}

		if cfg.EventHandler != nil {
			api.POST("/sessions/:id/attendance", cfg.EventHandler.RecordAttendance)
		}
	}

	return r
}
