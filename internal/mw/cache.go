package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheStatusHeader reports whether a response was served from the cache.
const CacheStatusHeader = "X-Cache"

// snapshot is a rendered leaderboard response.
type snapshot struct {
	status int
	header http.Header
	body   []byte
}

func (s snapshot) replay(c *gin.Context) {
	dst := c.Writer.Header()
	for k, v := range s.header {
		dst[k] = v
	}
	dst.Set(CacheStatusHeader, "HIT")
	c.Writer.WriteHeader(s.status)
	_, _ = c.Writer.Write(s.body)
}

// recorder tees the handler output so it can be kept after the request.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

func (r *recorder) snapshot() snapshot {
	header := r.Header().Clone()
	header.Del(CacheStatusHeader)
	return snapshot{status: r.Status(), header: header, body: r.buf.Bytes()}
}

func bypassCache(c *gin.Context) bool {
	return c.GetHeader("Cache-Control") == "no-cache"
}

func successful(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// Cache keeps successful GET responses in memory for ttl, keyed by the
// request URI. "Cache-Control: no-cache" on the request skips the lookup
// but still refreshes the entry.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		uri := c.Request.RequestURI
		if !bypassCache(c) {
			if hit, ok := store.Get(uri); ok {
				hit.(snapshot).replay(c)
				c.Abort()
				return
			}
		}

		c.Header(CacheStatusHeader, "MISS")
		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if successful(rec.Status()) {
			store.Set(uri, rec.snapshot(), ttl)
		}
	}
}

// Invalidate drops every cached response for the given paths, whatever
// their query string.
func Invalidate(store *cache.Cache, paths ...string) int {
	if store == nil {
		return 0
	}
	dropped := 0
	for uri := range store.Items() {
		path, _, _ := strings.Cut(uri, "?")
		for _, p := range paths {
			if path == p {
				store.Delete(uri)
				dropped++
				break
			}
		}
	}
	return dropped
}
