package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voiceletter/internal/generation"
	"voiceletter/internal/profile"
	"voiceletter/internal/utils"
)

// Handlers holds the injected core components. Backends and dispatcher are
// chosen once in main; nothing here branches on storage or demo mode.
type Handlers struct {
	profiles *profile.Repository
	orch     *generation.Orchestrator
}

func NewHandlers(profiles *profile.Repository, orch *generation.Orchestrator) *Handlers {
	return &Handlers{profiles: profiles, orch: orch}
}

func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", healthCheck)

	// The workflow callback is authenticated by knowledge of the generation
	// id, not by a user identity.
	r.POST("/api/v1/callbacks/generation", h.generationCallback)

	v1 := r.Group("/api/v1")
	v1.Use(requireUser())
	{
		v1.POST("/profiles", h.createProfile)
		v1.GET("/profiles", h.listProfiles)
		v1.GET("/profiles/ready", h.listReadyProfiles)
		v1.GET("/profiles/:id", h.getProfile)
		v1.PUT("/profiles/:id", h.updateProfile)
		v1.DELETE("/profiles/:id", h.deleteProfile)
		v1.PUT("/profiles/:id/status", h.updateProfileStatus)
		v1.POST("/profiles/:id/analyze", h.analyzeProfile)

		v1.POST("/generations", h.startGeneration)
		v1.GET("/generations", h.listGenerations)
		v1.GET("/generations/:id", h.getGeneration)
		v1.GET("/generations/:id/status", h.getGenerationStatus)
		v1.GET("/generations/:id/wait", h.waitForGeneration)
		v1.DELETE("/generations/:id", h.deleteGeneration)
	}
}

func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "voiceletter-backend",
	})
}

const userIDKey = "userID"

// requireUser resolves the caller identity from the X-User-ID header. The
// authentication provider in front of this service is expected to set it.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			utils.Error(c, http.StatusUnauthorized, "X-User-ID header is required")
			c.Abort()
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "invalid X-User-ID format")
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDKey).(uuid.UUID)
}

// pathID parses the :id path parameter; writes the error response itself.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid id format")
		return uuid.Nil, false
	}
	return id, true
}
