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
)

type EventHandler struct {
	log     *logger.Logger
	events  services.EventService
	trigger services.AutoIssueTrigger
}

func NewEventHandler(baseLog *logger.Logger, events services.EventService, trigger services.AutoIssueTrigger) *EventHandler {
	return &EventHandler{
		log:     baseLog.With("handler", "EventHandler"),
		events:  events,
		trigger: trigger,
	}
}

// POST /api/sessions/:id/attendance
func (h *EventHandler) RecordAttendance(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	ref, result, err := h.events.RecordAttendance(c.Request.Context(), rd.UserID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if errors.Is(err, services.ErrCatalogUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "event has no sessions"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record attendance"})
		return
	}

	body := gin.H{"eligibility": result}
	if result.IsEligible && result.ExistingCertificate == nil {
		cert, issueErr := h.trigger.HandleTransition(c.Request.Context(), rd.UserID, ref)
		if issueErr != nil {
			body["certificate_error"] = certUnavailableMsg
		} else if cert != nil {
			body["certificate"] = cert
		}
	}
	c.JSON(http.StatusOK, body)
}
