package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// Envelope is the body shape shared by every JSON endpoint.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON writes data in the envelope. Case payloads are never cached by clients.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error converts err to an *appErrors.Error and writes it with its status.
// The error is also attached to the gin context so the access log can report it.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if err != nil {
		_ = c.Error(err)
	}
	noStore(c)
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// PDF streams a rendered document for inline display.
func PDF(c *gin.Context, filename string, data []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", sanitizeFilename(filename)))
	c.Data(http.StatusOK, "application/pdf", data)
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if name == "" {
		return "document.pdf"
	}
	return name
}
