package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"voiceletter/internal/model"
	"voiceletter/internal/store"
	"voiceletter/internal/utils"
)

func (h *Handlers) createProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid profile payload: "+err.Error())
		return
	}

	p, err := h.profiles.Create(c.Request.Context(), currentUser(c), req.toInput())
	if err != nil {
		log.Printf("[API] Error creating profile: %v", err)
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("[API] Profile created: %s (%s)", p.ID, p.Name)
	utils.Created(c, gin.H{"profile": p})
}

func (h *Handlers) listProfiles(c *gin.Context) {
	profiles, err := h.profiles.ListByOwner(c.Request.Context(), currentUser(c))
	if err != nil {
		log.Printf("[API] Error listing profiles: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	utils.Success(c, gin.H{"profiles": profiles, "count": len(profiles)})
}

func (h *Handlers) listReadyProfiles(c *gin.Context) {
	profiles, err := h.profiles.ListReadyForGeneration(c.Request.Context(), currentUser(c))
	if err != nil {
		log.Printf("[API] Error listing ready profiles: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	utils.Success(c, gin.H{"profiles": profiles, "count": len(profiles)})
}

func (h *Handlers) getProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "profile not found")
			return
		}
		log.Printf("[API] Error getting profile %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to get profile")
		return
	}
	utils.Success(c, gin.H{"profile": p})
}

func (h *Handlers) updateProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid profile payload: "+err.Error())
		return
	}

	upd := store.ProfileUpdate{
		Name:             req.Name,
		Tones:            req.Tones,
		Formality:        req.Formality,
		DetailLevel:      req.DetailLevel,
		SentenceStyle:    req.SentenceStyle,
		VocabularyLevel:  req.VocabularyLevel,
		ParagraphPattern: req.ParagraphPattern,
		CommonPhrases:    req.CommonPhrases,
		AvoidPhrases:     req.AvoidPhrases,
		UsesEmojis:       req.UsesEmojis,
		UsesQuestions:    req.UsesQuestions,
		UsesAnecdotes:    req.UsesAnecdotes,
		UsesStatistics:   req.UsesStatistics,
		UsesHumor:        req.UsesHumor,
		AvgRating:        req.AvgRating,
	}
	if req.WritingSamples != nil {
		samples := make([]model.WritingSample, 0, len(*req.WritingSamples))
		for _, s := range *req.WritingSamples {
			samples = append(samples, model.WritingSample{Text: s.Text, SourceKind: s.SourceKind, URL: s.URL})
		}
		upd.WritingSamples = &samples
	}

	p, err := h.profiles.Update(c.Request.Context(), id, currentUser(c), upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "profile not found")
			return
		}
		log.Printf("[API] Error updating profile %s: %v", id, err)
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.Success(c, gin.H{"profile": p})
}

func (h *Handlers) deleteProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.profiles.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "profile not found")
			return
		}
		log.Printf("[API] Error deleting profile %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	log.Printf("[API] Profile deleted: %s", id)
	utils.Success(c, gin.H{"id": id.String(), "status": "deleted"})
}

func (h *Handlers) updateProfileStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateProfileStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "status must be one of draft, analyzing, ready, approved")
		return
	}

	p, err := h.profiles.UpdateStatus(c.Request.Context(), id, currentUser(c), req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "profile not found")
			return
		}
		log.Printf("[API] Error updating profile status %s: %v", id, err)
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.Success(c, gin.H{"profile": p})
}

func (h *Handlers) analyzeProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.profiles.Analyze(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "profile not found")
			return
		}
		log.Printf("[API] Error analyzing profile %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to analyze profile")
		return
	}
	log.Printf("[API] Profile analyzed: %s, status %s", p.ID, p.Status)
	utils.Success(c, gin.H{"profile": p})
}
