package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/oficios-api/internal/middleware"
	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
	"github.com/noah-isme/oficios-api/pkg/response"
)

// actorID returns the acting user or writes 401 and returns false.
func actorID(c *gin.Context) (string, bool) {
	claims := middleware.Claims(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

// bindJSON decodes the body or writes 400 and returns false.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// pathID returns the :id path parameter in canonical UUID form. A value that
// is not a UUID names no record, so it is answered with 404 before reaching
// the store.
func pathID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
		return "", false
	}
	return id.String(), true
}

// pageParams reads page and limit; unparsable or out of range values fall back
// to the first page of DefaultPageSize rows.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("limit"))
	return models.NormalizePage(page, size)
}

// listParam splits a comma separated query value, dropping blanks.
func listParam(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
