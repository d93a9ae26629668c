package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "benepick/server/errors"
)

// respondError maps service errors onto their HTTP status. Unknown errors are
// logged and returned as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode() >= http.StatusInternalServerError {
			log.Printf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		c.JSON(appErr.StatusCode(), gin.H{"error": appErr.UserMessage()})
		return
	}

	log.Printf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if err := s.container.DB.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":        status,
		"service":       "benepick",
		"uptimeSeconds": int(time.Since(s.startTime).Seconds()),
		"time":          time.Now().Format(time.RFC3339),
	})
}
