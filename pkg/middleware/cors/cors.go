package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	exposeHeaders = "Content-Disposition, X-Request-ID"
	maxAge        = "600"
)

// policy decides which origins may call the API. An empty allow list accepts
// any origin but never sends credentials with a wildcard.
type policy struct {
	origins map[string]struct{}
}

func newPolicy(allowed []string) policy {
	p := policy{origins: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = normalize(origin)
		if origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

func (p policy) open() bool { return len(p.origins) == 0 }

func (p policy) allows(origin string) bool {
	if p.open() {
		return true
	}
	_, ok := p.origins[normalize(origin)]
	return ok
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// New returns the CORS middleware. Content-Disposition is exposed so browsers
// can read the letter file name.
func New(allowedOrigins []string) gin.HandlerFunc {
	p := newPolicy(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && p.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && p.open():
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Expose-Headers", exposeHeaders)

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
