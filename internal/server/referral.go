package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	referraldomain "github.com/crowdlink/refpay/internal/referral/domain"
	"github.com/gin-gonic/gin"
)

type referUserRequest struct {
	ReferrerID string `json:"referrer_id"`
	UserID     string `json:"user_id"`
}

func (s *Server) ReferUser(c *gin.Context) {
	var req referUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	referrerID, err := parseIDField(req.ReferrerID, "referrer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := parseIDField(req.UserID, "user_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.referralSvc.Refer(c.Request.Context(), referraldomain.ReferRequest{
		ReferrerID: referrerID,
		UserID:     userID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createReferredUserRequest struct {
	ReferrerID string `json:"referrer_id"`
	Name       string `json:"name"`
}

func (s *Server) CreateReferredUser(c *gin.Context) {
	var req createReferredUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	referrerID, err := parseIDField(req.ReferrerID, "referrer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.referralSvc.CreateReferred(c.Request.Context(), referraldomain.CreateReferredRequest{
		ReferrerID: referrerID,
		Name:       strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserReferrals(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.referralSvc.ListReferrals(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseIDField(raw, field string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return id, nil
}
