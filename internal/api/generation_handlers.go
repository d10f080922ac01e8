package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"voiceletter/internal/dispatch"
	"voiceletter/internal/generation"
	"voiceletter/internal/model"
	"voiceletter/internal/store"
	"voiceletter/internal/utils"
)

func (h *Handlers) startGeneration(c *gin.Context) {
	var req StartGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid generation payload: "+err.Error())
		return
	}

	gen, err := h.orch.StartGeneration(c.Request.Context(), currentUser(c), dispatch.GenerationRequest{
		ProfileID:      req.ProfileID,
		NewsletterName: req.NewsletterName,
		SourceKind:     req.SourceKind,
		Handle:         req.Handle,
		VideoURL:       req.VideoURL,
		ArticleText:    req.ArticleText,
	})
	if err != nil {
		log.Printf("[API] Error starting generation: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to start generation")
		return
	}

	// Validation and dispatch failures still produce a record; the caller
	// reads the outcome off it.
	utils.Created(c, gin.H{"generation": gen})
}

func (h *Handlers) listGenerations(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", model.GenerationStatusPending, model.GenerationStatusProcessing,
		model.GenerationStatusCompleted, model.GenerationStatusFailed:
	default:
		utils.Error(c, http.StatusBadRequest, "unknown status filter")
		return
	}

	generations, err := h.orch.List(c.Request.Context(), currentUser(c), status)
	if err != nil {
		log.Printf("[API] Error listing generations: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to list generations")
		return
	}
	utils.Success(c, gin.H{"generations": generations, "count": len(generations)})
}

func (h *Handlers) getGeneration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	gen, err := h.orch.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "generation not found")
			return
		}
		log.Printf("[API] Error getting generation %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to get generation")
		return
	}
	utils.Success(c, gin.H{"generation": gen})
}

// getGenerationStatus is the lightweight endpoint the UI polls.
func (h *Handlers) getGenerationStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	gen, err := h.orch.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "generation not found")
			return
		}
		log.Printf("[API] Error getting generation status %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to get generation")
		return
	}

	resp := gin.H{"id": gen.ID.String(), "status": gen.Status}
	if gen.ErrorMessage != nil {
		resp["error_message"] = *gen.ErrorMessage
	}
	if gen.CompletedAt != nil {
		resp["completed_at"] = gen.CompletedAt
	}
	utils.Success(c, resp)
}

// waitForGeneration blocks until the generation reaches a terminal state or
// the attempt budget runs out. Closing the connection cancels the poll.
func (h *Handlers) waitForGeneration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	// Ownership check up front; the poll itself reads by id.
	if _, err := h.orch.Get(c.Request.Context(), id, currentUser(c)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "generation not found")
			return
		}
		log.Printf("[API] Error getting generation %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to get generation")
		return
	}

	interval := 2 * time.Second
	if v, err := strconv.Atoi(c.DefaultQuery("interval_ms", "2000")); err == nil && v >= 100 && v <= 30000 {
		interval = time.Duration(v) * time.Millisecond
	}
	maxAttempts := 30
	if v, err := strconv.Atoi(c.DefaultQuery("max_attempts", "30")); err == nil && v >= 1 && v <= 150 {
		maxAttempts = v
	}

	gen, err := h.orch.PollUntilTerminal(c.Request.Context(), id, nil, interval, maxAttempts)
	if err != nil {
		if errors.Is(err, generation.ErrPollTimeout) {
			// Not a generation failure: it is still running, we stopped watching.
			utils.Success(c, gin.H{
				"id":       id.String(),
				"status":   "watching_timed_out",
				"terminal": false,
			})
			return
		}
		log.Printf("[API] Error polling generation %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to poll generation")
		return
	}
	utils.Success(c, gin.H{"generation": gen, "terminal": true})
}

func (h *Handlers) deleteGeneration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orch.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "generation not found")
			return
		}
		log.Printf("[API] Error deleting generation %s: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to delete generation")
		return
	}
	log.Printf("[API] Generation deleted: %s", id)
	utils.Success(c, gin.H{"id": id.String(), "status": "deleted"})
}

// generationCallback receives the workflow's asynchronous completion
// notification. The acknowledgment distinguishes applied, already-applied,
// conflict-ignored, unknown generation and malformed payloads.
func (h *Handlers) generationCallback(c *gin.Context) {
	var payload dispatch.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.Error(c, http.StatusBadRequest, "malformed callback payload: "+err.Error())
		return
	}
	if payload.GenerationID == "" {
		utils.Error(c, http.StatusBadRequest, "generation_id is required")
		return
	}

	result, err := h.orch.HandleCompletionCallback(c.Request.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrUnknownGeneration):
			utils.NotFound(c, "unknown generation id")
		case errors.Is(err, generation.ErrMalformedCallback):
			utils.Error(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[API] Error applying callback for %s: %v", payload.GenerationID, err)
			utils.Error(c, http.StatusInternalServerError, "failed to apply callback")
		}
		return
	}

	utils.Success(c, gin.H{
		"generation_id": payload.GenerationID,
		"result":        string(result),
	})
}
