package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// responseMeta collects envelope metadata while a request is handled.
type responseMeta struct {
	start  time.Time
	values map[string]interface{}
}

// WithResponseMeta starts the processing clock for the request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFor(c); meta != nil {
		meta.values["cache_hit"] = hit
	}
}

// ExtractMeta snapshots the metadata for an envelope, stamping the elapsed
// processing time and the request ID.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFor(c)
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta.values)+2)
	for k, v := range meta.values {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(meta.start).Milliseconds()
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	return out
}

// metaFor lazily attaches metadata for handlers mounted without WithResponseMeta.
func metaFor(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(responseMetaKey); ok {
		if meta, ok := v.(*responseMeta); ok {
			return meta
		}
	}
	meta := &responseMeta{start: time.Now(), values: map[string]interface{}{}}
	c.Set(responseMetaKey, meta)
	return meta
}
