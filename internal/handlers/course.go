package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/repos"
)

type CourseHandler struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
}

func NewCourseHandler(baseLog *logger.Logger, courseRepo repos.CourseRepo) *CourseHandler {
	return &CourseHandler{
		log:        baseLog.With("handler", "CourseHandler"),
		courseRepo: courseRepo,
	}
}

// GET /api/courses/:id/catalog
func (h *CourseHandler) GetCatalog(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	catalog, err := h.courseRepo.GetCatalog(c.Request.Context(), nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": catalog})
}
