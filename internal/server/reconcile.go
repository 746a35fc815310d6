package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reconciledomain "github.com/smallbiznis/vpnbill/internal/reconcile/domain"
)

func (s *Server) PreviewBatch(c *gin.Context) {
	var req reconciledomain.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_json", err.Error()))
		return
	}

	result, err := s.reconcileSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type confirmResponse struct {
	Period  string                           `json:"period"`
	Results []reconciledomain.PostingResult  `json:"results"`
}

func (s *Server) ConfirmBatch(c *gin.Context) {
	var req reconciledomain.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_json", err.Error()))
		return
	}

	// Link the archived carrier statement into notifications when one
	// exists for this period and the caller did not supply a URL.
	if req.BillURL == "" {
		if rc, err := s.bills.Open(c.Request.Context(), req.Period); err == nil {
			rc.Close()
			req.BillURL = s.bills.URL(req.Period)
		}
	}

	results, err := s.reconcileSvc.Confirm(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, confirmResponse{
		Period:  req.Period,
		Results: results,
	})
}
