package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports whether a response was replayed from memory.
const CacheHeader = "X-Cache"

// perRequestHeaders are never replayed from a stored response.
var perRequestHeaders = []string{RequestIDHeader, CacheHeader}

type storedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps rendered GET responses for routes whose output depends
// only on the request URI, such as the status code table and QR images.
type ResponseCache struct {
	entries *cache.Cache
	ttl     time.Duration
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{entries: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Len reports the number of stored responses, expired ones included.
func (rc *ResponseCache) Len() int { return rc.entries.ItemCount() }

// Handler serves stored responses and records fresh 2xx ones.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if v, ok := rc.entries.Get(key); ok {
			rc.replay(c, v.(storedResponse))
			return
		}

		c.Header(CacheHeader, "MISS")
		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < 200 || status >= 300 {
			return
		}
		headers := w.Header().Clone()
		for _, h := range perRequestHeaders {
			headers.Del(h)
		}
		rc.entries.Set(key, storedResponse{
			status:  status,
			headers: headers,
			body:    bytes.Clone(w.body.Bytes()),
		}, rc.ttl)
	}
}

func (rc *ResponseCache) replay(c *gin.Context, resp storedResponse) {
	h := c.Writer.Header()
	for k, v := range resp.headers {
		h[k] = v
	}
	h.Set(CacheHeader, "HIT")
	c.Writer.WriteHeader(resp.status)
	c.Writer.Write(resp.body)
	c.Abort()
}
