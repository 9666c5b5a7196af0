package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"matchday-backend/internal/model"
	"matchday-backend/internal/ranking"
)

type roundResponse struct {
	Label   string               `json:"label"`
	GroupID string               `json:"group_id"`
	Entries []model.RankingEntry `json:"entries"`
}

func metricParam(c *gin.Context) (ranking.Metric, bool) {
	metric, ok := ranking.ParseMetric(c.Query("metric"))
	if !ok {
		badRequest(c, fmt.Errorf("unknown metric %q", c.Query("metric")))
	}
	return metric, ok
}

// GetRoundRankings returns every round published for a date.
func (h *Handler) GetRoundRankings(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		badRequest(c, fmt.Errorf("date must be YYYY-MM-DD"))
		return
	}
	metric, ok := metricParam(c)
	if !ok {
		return
	}

	rounds, err := h.publisher.Rounds(c.Request.Context(), date, metric)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]roundResponse, len(rounds))
	for i, round := range rounds {
		resp[i] = roundResponse{Label: round.Label(), GroupID: round.GroupID, Entries: round.Entries}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "metric": metric, "rounds": resp})
}

// GetAnnualRanking returns the cumulative ranking of a year.
func (h *Handler) GetAnnualRanking(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		badRequest(c, fmt.Errorf("invalid year %q", c.Param("year")))
		return
	}
	metric, ok := metricParam(c)
	if !ok {
		return
	}

	annual, err := h.publisher.Annual(c.Request.Context(), year, metric)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": annual.Year, "metric": metric, "entries": annual.Entries})
}
