package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/responses/:id/pdf", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/responses/resp-1/pdf", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowedOrigin(t *testing.T) {
	rec := serve([]string{"https://oficios.example.org/"}, http.MethodGet, "https://oficios.example.org")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://oficios.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := serve([]string{"https://oficios.example.org"}, http.MethodGet, "https://evil.example.com")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	rec := serve(nil, http.MethodOptions, "https://any.example.org")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://any.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAdvertisesMethods(t *testing.T) {
	rec := serve([]string{"https://OFICIOS.example.org"}, http.MethodOptions, "https://oficios.example.org")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSWildcardWithoutOrigin(t *testing.T) {
	rec := serve(nil, http.MethodGet, "")

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
