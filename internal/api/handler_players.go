package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matchday-backend/internal/model"
)

type putPlayerRequest struct {
	Name  string `json:"name" binding:"required"`
	Guest bool   `json:"guest"`
}

// PutPlayer creates or renames a player. Award counters are not writable.
func (h *Handler) PutPlayer(c *gin.Context) {
	var req putPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if id == model.EmptySlotID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "reserved player id"})
		return
	}

	player := model.Player{ID: id, Name: req.Name, Guest: req.Guest}
	if err := h.store.UpsertPlayer(c.Request.Context(), &player); err != nil {
		respondError(c, err)
		return
	}

	saved, err := h.store.GetPlayer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GetPlayer returns a player with its lifetime awards.
func (h *Handler) GetPlayer(c *gin.Context) {
	player, err := h.store.GetPlayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}
