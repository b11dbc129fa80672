package web

import (
	"errors"
	"net/http"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// handleError maps domain errors onto status codes. Anything unrecognised is a
// 500 and gets logged.
func (s *Server) handleError(c *gin.Context, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", verr.Error())
	case errors.Is(err, repo.ErrAlertNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "alert not found")
	case errors.Is(err, repo.ErrAlertInactive):
		respondError(c, http.StatusConflict, "ALERT_INACTIVE", "alert is not active")
	case errors.Is(err, monitor.ErrInvalidInterval):
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, monitor.ErrSchedulerStopping):
		respondError(c, http.StatusConflict, "STOPPING", err.Error())
	default:
		_ = c.Error(err)
		s.logger.Error("request error",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
