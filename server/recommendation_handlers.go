package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "benepick/server/errors"
	"benepick/server/services"
	"benepick/server/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleSimulate(c *gin.Context) {
	var request types.SimulateRecommendationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}

	response, err := s.container.RecommendationService.Simulate(request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleGetRun(c *gin.Context) {
	response, err := s.container.RecommendationService.GetRun(c.Param("runId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleRecentRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		respondError(c, apperrors.NewValidationError("limit must be an integer", err))
		return
	}

	runs, err := s.container.RecommendationService.GetRecentRuns(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRedirect(c *gin.Context) {
	var request types.RecommendationRedirectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}

	response, err := s.container.RecommendationService.Redirect(
		c.Param("runId"),
		request,
		c.GetHeader("User-Agent"),
		c.ClientIP(),
		c.GetHeader("Referer"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleRunAnalytics(c *gin.Context) {
	response, err := s.container.AnalyticsService.GetRunAnalytics(c.Param("runId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleQualityLatest(c *gin.Context) {
	report, err := s.container.QualityService.GetLatestReport()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleQualityRecompute(c *gin.Context) {
	report, err := s.container.Scheduler.TriggerQualityRecompute(services.TriggerManualAPI)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleQualityExport(c *gin.Context) {
	payload, filename, err := s.container.QualityService.ExportLatestReport()
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, payload)
}
