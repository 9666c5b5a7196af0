package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"matchday-backend/internal/model"
)

type createGroupRequest struct {
	Name          string        `json:"name" binding:"required"`
	Weekday       *time.Weekday `json:"weekday" binding:"required,min=0,max=6"`
	Capacity      int           `json:"capacity" binding:"required,min=1"`
	VotingEnabled bool          `json:"voting_enabled"`
}

// CreateGroup registers a recurring meetup. Its id is the slug of the name.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := slug.Make(req.Name)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "name has no usable characters"})
		return
	}

	group := model.Group{
		ID:            id,
		Name:          req.Name,
		Weekday:       *req.Weekday,
		Capacity:      req.Capacity,
		VotingEnabled: req.VotingEnabled,
		Active:        true,
	}
	if err := h.store.CreateGroup(c.Request.Context(), &group); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// ListGroups returns the active groups.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.store.ActiveGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns one group.
func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.store.GetGroup(c.Request.Context(), c.Param("group"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// ListGroupOccurrences returns the latest occurrences of a group.
func (h *Handler) ListGroupOccurrences(c *gin.Context) {
	if !h.listOccurrences {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_supported", "detail": "occurrence listing needs the sql ledger"})
		return
	}
	occurrences, err := h.store.ListOccurrences(c.Request.Context(), c.Param("group"), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}
