package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/requestdata"
	"github.com/lumenlearn/lumenlearn-backend/internal/services"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type CertificateHandler struct {
	log         *logger.Logger
	certs       services.CertificateService
	eligibility services.EligibilityService
}

func NewCertificateHandler(baseLog *logger.Logger, certs services.CertificateService, eligibility services.EligibilityService) *CertificateHandler {
	return &CertificateHandler{
		log:         baseLog.With("handler", "CertificateHandler"),
		certs:       certs,
		eligibility: eligibility,
	}
}

// GET /api/courses/:id/eligibility
func (h *CertificateHandler) CheckCourseEligibility(c *gin.Context) {
	h.checkEligibility(c, types.EntityKindCourse)
}

// GET /api/events/:id/eligibility
func (h *CertificateHandler) CheckEventEligibility(c *gin.Context) {
	h.checkEligibility(c, types.EntityKindEvent)
}

func (h *CertificateHandler) checkEligibility(c *gin.Context, kind string) {
	userID, entityID, ok := h.ids(c)
	if !ok {
		return
	}
	result, err := h.eligibility.Evaluate(c.Request.Context(), nil, userID, types.EntityRef{Kind: kind, ID: entityID})
	if err != nil {
		if errors.Is(err, services.ErrCatalogUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "no completable content configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate eligibility"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligibility": result})
}

// POST /api/courses/:id/certificate
func (h *CertificateHandler) RequestCourseCertificate(c *gin.Context) {
	h.requestCertificate(c, types.EntityKindCourse)
}

// POST /api/events/:id/certificate
func (h *CertificateHandler) RequestEventCertificate(c *gin.Context) {
	h.requestCertificate(c, types.EntityKindEvent)
}

func (h *CertificateHandler) requestCertificate(c *gin.Context, kind string) {
	userID, entityID, ok := h.ids(c)
	if !ok {
		return
	}
	cert, err := h.certs.Request(c.Request.Context(), userID, types.EntityRef{Kind: kind, ID: entityID})
	if err != nil {
		var notEligible *services.NotEligibleError
		if errors.As(err, &notEligible) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":                "not eligible",
				"percentage":           notEligible.Percentage,
				"missing_requirements": notEligible.Missing,
			})
			return
		}
		if errors.Is(err, services.ErrCatalogUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "no completable content configured"})
			return
		}
		var partial *services.PartialWriteError
		if errors.As(err, &partial) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": certUnavailableMsg})
			return
		}
		h.log.Error("certificate request failed", "user_id", userID, "entity_id", entityID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": certUnavailableMsg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificate": cert})
}

// GET /api/me/certificates
func (h *CertificateHandler) ListMyCertificates(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	certs, err := h.certs.ListForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load certificates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

// GET /verify/:number is public and unauthenticated. Serves only the lookup
// record shape; the primary record never leaves the authenticated surface.
func (h *CertificateHandler) Verify(c *gin.Context) {
	number := c.Param("number")
	lookup, err := h.certs.GetPublicByNumber(c.Request.Context(), number)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification unavailable"})
		return
	}
	if lookup == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificate": lookup})
}

func (h *CertificateHandler) ids(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, uuid.Nil, false
	}
	return rd.UserID, entityID, true
}
