package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matchday-backend/internal/model"
)

// OpenVoting opens the ballot of a closed match.
func (h *Handler) OpenVoting(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	occ, err := h.matches.OpenVoting(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}

// CloseVoting settles the ballot and publishes the round ranking.
func (h *Handler) CloseVoting(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	occ, err := h.matches.CloseVoting(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateRankings(key)
	c.JSON(http.StatusOK, gin.H{"voting_result": occ.VotingResult.Data()})
}

type ballotRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
	Best    string `json:"best"`
	Worst   string `json:"worst"`
}

// SubmitBallot records one voter's best and worst picks.
func (h *Handler) SubmitBallot(c *gin.Context) {
	key, ok := occurrenceKey(c)
	if !ok {
		return
	}
	var req ballotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ballot := model.Ballot{Best: req.Best, Worst: req.Worst}
	if err := h.matches.SubmitBallot(c.Request.Context(), key, req.VoterID, ballot); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
