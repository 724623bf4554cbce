package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/requestdata"
	"github.com/lumenlearn/lumenlearn-backend/internal/services"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

const certUnavailableMsg = "certificate system temporarily unavailable, try again"

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
	trigger  services.AutoIssueTrigger
}

func NewProgressHandler(baseLog *logger.Logger, progress services.ProgressService, trigger services.AutoIssueTrigger) *ProgressHandler {
	return &ProgressHandler{
		log:      baseLog.With("handler", "ProgressHandler"),
		progress: progress,
		trigger:  trigger,
	}
}

type videoProgressRequest struct {
	PositionSeconds int  `json:"position_seconds"`
	WatchedSeconds  int  `json:"watched_seconds"`
	Ended           bool `json:"ended"`
}

// POST /api/lessons/:id/progress/video
func (h *ProgressHandler) RecordVideoProgress(c *gin.Context) {
	userID, lessonID, ok := h.ids(c)
	if !ok {
		return
	}
	var req videoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	row, transition, err := h.progress.RecordVideoProgress(c.Request.Context(), userID, lessonID, req.PositionSeconds, req.WatchedSeconds, req.Ended)
	h.respond(c, row, transition, err)
}

type readingProgressRequest struct {
	ReadSeconds int  `json:"read_seconds"`
	Finished    bool `json:"finished"`
}

// POST /api/lessons/:id/progress/reading
func (h *ProgressHandler) RecordReadingProgress(c *gin.Context) {
	userID, lessonID, ok := h.ids(c)
	if !ok {
		return
	}
	var req readingProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	row, transition, err := h.progress.RecordReadingProgress(c.Request.Context(), userID, lessonID, req.ReadSeconds, req.Finished)
	h.respond(c, row, transition, err)
}

type quizSubmitRequest struct {
	Score int `json:"score"`
}

// POST /api/lessons/:id/quiz
func (h *ProgressHandler) SubmitQuiz(c *gin.Context) {
	userID, lessonID, ok := h.ids(c)
	if !ok {
		return
	}
	var req quizSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	row, transition, err := h.progress.SubmitQuiz(c.Request.Context(), userID, lessonID, req.Score)
	h.respond(c, row, transition, err)
}

// POST /api/lessons/:id/complete
func (h *ProgressHandler) MarkLessonComplete(c *gin.Context) {
	userID, lessonID, ok := h.ids(c)
	if !ok {
		return
	}
	row, transition, err := h.progress.MarkLessonComplete(c.Request.Context(), userID, lessonID)
	h.respond(c, row, transition, err)
}

// GET /api/courses/:id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	progress, err := h.progress.GetCourseProgress(c.Request.Context(), rd.UserID, courseID)
	if err != nil {
		if errors.Is(err, services.ErrCatalogUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "course has no content"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func (h *ProgressHandler) ids(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return uuid.Nil, uuid.Nil, false
	}
	return rd.UserID, lessonID, true
}

// respond writes the merged progress row and, when this write completed the
// course, pipes the transition through the auto-issue trigger. A trigger
// failure is reported alongside the successful progress write; the progress
// itself is already committed.
func (h *ProgressHandler) respond(c *gin.Context, row *types.LessonProgress, transition *services.CompletionTransition, err error) {
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidProgress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid progress payload"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record progress"})
		}
		return
	}

	body := gin.H{"progress": row, "transition": transition}
	if transition != nil && transition.CourseCompleted {
		rd := requestdata.GetRequestData(c.Request.Context())
		cert, issueErr := h.trigger.HandleTransition(c.Request.Context(), rd.UserID, types.CourseRef(transition.CourseID))
		if issueErr != nil {
			body["certificate_error"] = certUnavailableMsg
		} else if cert != nil {
			body["certificate"] = cert
		}
	}
	c.JSON(http.StatusOK, body)
}
