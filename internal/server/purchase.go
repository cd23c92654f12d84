package server

import (
	"net/http"
	"strconv"
	"strings"

	commissiondomain "github.com/crowdlink/refpay/internal/commission/domain"
	"github.com/gin-gonic/gin"
)

type makePurchaseRequest struct {
	BuyerID string  `json:"buyer_id"`
	Amount  float64 `json:"amount"`
}

func (s *Server) MakePurchase(c *gin.Context) {
	var req makePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	buyerID, err := parseIDField(req.BuyerID, "buyer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.Amount < 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be non-negative"))
		return
	}

	resp, err := s.commissionSvc.Distribute(c.Request.Context(), commissiondomain.DistributeRequest{
		BuyerID: buyerID,
		Amount:  req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUserEarnings(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.Earnings(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	resp, err := s.commissionSvc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
