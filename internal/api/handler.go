package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"matchday-backend/internal/ledger"
	"matchday-backend/internal/match"
	"matchday-backend/internal/model"
	"matchday-backend/internal/mw"
	"matchday-backend/internal/ranking"
	"matchday-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	matches   *match.Service
	publisher *ranking.Publisher
	webpush   *webpush.Options
	rankings  *cache.Cache

	// listOccurrences is false when occurrences live outside the SQL store.
	listOccurrences bool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, matches *match.Service, publisher *ranking.Publisher, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:           s,
		matches:         matches,
		publisher:       publisher,
		webpush:         webpushOptions,
		listOccurrences: true,
	}
}

// DisableOccurrenceListing turns off the SQL-backed occurrence listing.
func (h *Handler) DisableOccurrenceListing() {
	h.listOccurrences = false
}

// invalidateRankings forgets cached boards that a publish for key may change.
func (h *Handler) invalidateRankings(key model.OccurrenceKey) {
	paths := []string{"/api/rankings/rounds/" + key.Date}
	if year := key.Year(); year > 0 {
		paths = append(paths, fmt.Sprintf("/api/rankings/annual/%d", year))
	}
	mw.Invalidate(h.rankings, paths...)
}

// occurrenceKey reads and validates the :group and :date path parameters.
func occurrenceKey(c *gin.Context) (model.OccurrenceKey, bool) {
	key := model.OccurrenceKey{GroupID: c.Param("group"), Date: c.Param("date")}
	if key.GroupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "group is required"})
		return key, false
	}
	if !validDate(key.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "date must be YYYY-MM-DD"})
		return key, false
	}
	return key, true
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
}

// respondError maps a domain error to its HTTP status and error code.
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": code, "detail": err.Error()})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrExists):
		return http.StatusConflict, "exists"
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, ledger.ErrVotingClosed):
		return http.StatusConflict, "voting_closed"
	case errors.Is(err, ledger.ErrAlreadyVoted):
		return http.StatusConflict, "already_voted"
	case errors.Is(err, ledger.ErrAlreadyApplied):
		return http.StatusConflict, "already_applied"
	case errors.Is(err, ledger.ErrInvalidEvent):
		return http.StatusUnprocessableEntity, "invalid_event"
	case errors.Is(err, ledger.ErrInvalidVote):
		return http.StatusUnprocessableEntity, "invalid_vote"
	case errors.Is(err, ledger.ErrNotEligible):
		return http.StatusUnprocessableEntity, "not_eligible"
	case errors.Is(err, ledger.ErrTransactionFailed):
		return http.StatusServiceUnavailable, "transaction_failed"
	}
	return http.StatusInternalServerError, "internal"
}
