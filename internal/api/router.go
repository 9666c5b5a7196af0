package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"matchday-backend/internal/mw"
)

// RouterConfig carries the HTTP tuning knobs from the config file.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	RequestTimeout  time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}

	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Rankings change only when a round is published, which flushes them.
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)
	h.rankings = cacheStore

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Timeout(cfg.RequestTimeout))
	{
		api.GET("/groups", h.ListGroups)
		api.POST("/groups", h.CreateGroup)
		api.GET("/groups/:group", h.GetGroup)
		api.GET("/groups/:group/occurrences", h.ListGroupOccurrences)

		api.PUT("/players/:id", h.PutPlayer)
		api.GET("/players/:id", h.GetPlayer)

		api.POST("/occurrences", h.CreateOccurrence)
		occ := api.Group("/occurrences/:group/:date")
		occ.GET("", h.GetOccurrence)
		occ.POST("/confirmations", h.Confirm)
		occ.DELETE("/confirmations/:participant", h.Withdraw)
		occ.POST("/start", h.Start)
		occ.POST("/close", h.Close)
		occ.POST("/events", h.RecordEvent)
		occ.POST("/voting/open", h.OpenVoting)
		occ.POST("/voting/close", h.CloseVoting)
		occ.POST("/ballots", h.SubmitBallot)

		api.GET("/rankings/rounds/:date", caching, h.GetRoundRankings)
		api.GET("/rankings/annual/:year", caching, h.GetAnnualRanking)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	logger.Infof("API routes registered (rate %.1f/s burst %d, cache %s)", cfg.RateLimitPerSec, cfg.RateLimitBurst, cfg.CacheTTL)
	return r
}
