package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/gin-gonic/gin"
)

func (s *Server) startMonitoring(c *gin.Context) {
	var req StartMonitoringReq
	// an empty body starts with the default interval
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	interval := s.defaultInterval
	if req.IntervalMinutes != nil {
		// checked before converting, a huge float does not fit a Duration
		minutes := *req.IntervalMinutes
		if minutes <= 0 || minutes > monitor.MaxInterval.Minutes() {
			s.handleError(c, monitor.ErrInvalidInterval)
			return
		}
		interval = time.Duration(minutes * float64(time.Minute))
	}

	started, err := s.scheduler.Start(interval)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"started": started,
		"status":  toStatusVO(s.scheduler.Status()),
	})
}

func (s *Server) stopMonitoring(c *gin.Context) {
	s.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{
		"stopped": true,
		"status":  toStatusVO(s.scheduler.Status()),
	})
}

func (s *Server) monitoringStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toStatusVO(s.scheduler.Status()))
}
