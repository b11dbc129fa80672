package web

import (
	"net/http"
	"strconv"

	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/gin-gonic/gin"
)

func alertId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid alert id")
		return 0, false
	}
	return id, true
}

func (s *Server) createAlert(c *gin.Context) {
	var req CreateAlertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	alert, err := req.toEntity()
	if err != nil {
		s.handleError(c, err)
		return
	}
	id, err := s.alerts.Create(c.Request.Context(), alert)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) listAlerts(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))
	alerts, err := s.alerts.List(c.Request.Context(), repo.ListFilter{
		Recipient:  c.Query("recipient"),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": toAlertVOs(alerts),
		"count":  len(alerts),
	})
}

func (s *Server) updateAlert(c *gin.Context) {
	id, ok := alertId(c)
	if !ok {
		return
	}
	var req UpdateAlertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.handleError(c, err)
		return
	}
	if err = s.alerts.Update(c.Request.Context(), id, patch); err != nil {
		s.handleError(c, err)
		return
	}
	alert, err := s.alerts.Get(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertVO(alert))
}

func (s *Server) deleteAlert(c *gin.Context) {
	id, ok := alertId(c)
	if !ok {
		return
	}
	if err := s.alerts.Delete(c.Request.Context(), id); err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) checkAlert(c *gin.Context) {
	id, ok := alertId(c)
	if !ok {
		return
	}
	triggered, err := s.scheduler.CheckNow(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggered": triggered})
}

func (s *Server) alertStats(c *gin.Context) {
	stats, err := s.alerts.Statistics(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
