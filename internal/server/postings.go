package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type postingsResponse struct {
	Postings      []ledgerdomain.Posting `json:"postings"`
	NextPageToken string                 `json:"next_page_token,omitempty"`
}

func (s *Server) ListSubscriberPostings(c *gin.Context) {
	phone := c.Param("phone")

	account, err := s.directory.LookupAccountByPhone(c.Request.Context(), phone)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if account == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			AbortWithError(c, newValidationError("page_size", "invalid", "page_size must be a positive integer"))
			return
		}
		pageSize = n
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	postings, nextToken, err := s.postings.ListByAccount(
		c.Request.Context(), account.AccountID, c.Query("page_token"), pageSize)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, postingsResponse{
		Postings:      postings,
		NextPageToken: nextToken,
	})
}
