package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"matchday-backend/internal/model"
	"matchday-backend/internal/roster"
)

type createOccurrenceRequest struct {
	GroupID       string `json:"group_id" binding:"required"`
	Date          string `json:"date" binding:"required"`
	Capacity      int    `json:"capacity" binding:"required,min=1"`
	VotingEnabled bool   `json:"voting_enabled"`
}

// CreateOccurrence schedules a single meetup outside the weekly rule.
func (h *Handler) CreateOccurrence(c *gin.Context) {
	var req createOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !validDate(req.Date) {
		badRequest(c, errors.New("date must be YYYY-MM-DD"))
		return
	}

	key := model.OccurrenceKey{GroupID: req.GroupID, Date: req.Date}
	occ, err := h.matches.Create(c.Request.Context(), key, req.Capacity, req.VotingEnabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, occ)
}

// GetOccurrence returns the current ledger record.
func (h *Handler) GetOccurrence(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	occ, err := h.matches.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}

type confirmRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Capacity      int    `json:"capacity" binding:"min=0"`
}

// Confirm claims a slot. Rejections are reported in the outcome, not as errors.
func (h *Handler) Confirm(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	defaults := roster.Defaults{Capacity: req.Capacity}
	if group, err := h.store.GetGroup(c.Request.Context(), key.GroupID); err == nil {
		if defaults.Capacity == 0 {
			defaults.Capacity = group.Capacity
		}
		defaults.VotingEnabled = group.VotingEnabled
	}

	outcome, err := h.matches.Confirm(c.Request.Context(), key, req.ParticipantID, defaults)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// Withdraw releases a participant's slot.
func (h *Handler) Withdraw(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	if err := h.matches.Withdraw(c.Request.Context(), key, c.Param("participant")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Start puts a scheduled match live.
func (h *Handler) Start(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	occ, err := h.matches.Start(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}

// Close ends a live match. Closing again is a no-op.
func (h *Handler) Close(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	occ, err := h.matches.Close(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateRankings(key)
	c.JSON(http.StatusOK, occ)
}

type recordEventRequest struct {
	ParticipantID string          `json:"participant_id"`
	Kind          model.EventKind `json:"kind"`
}

// RecordEvent appends a goal or assist to a live match.
func (h *Handler) RecordEvent(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.matches.RecordEvent(c.Request.Context(), key, req.ParticipantID, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
