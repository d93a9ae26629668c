package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "benepick/server/errors"
	"benepick/server/services"
	"benepick/server/types"
)

func (s *Server) handleSyncFinlife(c *gin.Context) {
	result, err := s.container.Scheduler.TriggerFinlifeSync(c.Request.Context(), services.TriggerManualAPI)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSyncCards(c *gin.Context) {
	result, err := s.container.Scheduler.TriggerCardSync(c.Request.Context(), services.TriggerManualAPI)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	status, err := s.container.StatusService.Status()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleCatalogSummary(c *gin.Context) {
	accounts, err := s.container.DB.CountAccounts()
	if err != nil {
		respondError(c, apperrors.WrapError(err, "failed to count accounts"))
		return
	}
	cards, err := s.container.DB.CountCards()
	if err != nil {
		respondError(c, apperrors.WrapError(err, "failed to count cards"))
		return
	}
	finlifeAccounts, err := s.container.DB.CountAccountsWithKeyPrefix(services.FinlifeKeyPrefix)
	if err != nil {
		respondError(c, apperrors.WrapError(err, "failed to count Finlife accounts"))
		return
	}
	externalCards, err := s.container.DB.CountCardsWithKeyPrefix(services.CardKeyPrefix)
	if err != nil {
		respondError(c, apperrors.WrapError(err, "failed to count external cards"))
		return
	}

	c.JSON(http.StatusOK, types.CatalogSummaryResponse{
		TotalAccounts:   accounts.Active,
		FinlifeAccounts: finlifeAccounts,
		TotalCards:      cards.Active,
		ExternalCards:   externalCards,
	})
}

func (s *Server) handleCatalogSearch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.NewValidationError("limit must be an integer", err))
			return
		}
		limit = parsed
	}

	response, err := s.container.SearchService.Search(c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
