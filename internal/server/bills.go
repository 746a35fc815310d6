package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) UploadBill(c *gin.Context) {
	period := c.PostForm("period")
	if period == "" {
		AbortWithError(c, newValidationError("period", "required", "period is required"))
		return
	}

	fileHeader, err := c.FormFile("bill")
	if err != nil {
		AbortWithError(c, newValidationError("bill", "required", "bill file is required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer f.Close()

	saved, err := s.bills.Save(c.Request.Context(), period, f)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (s *Server) DownloadBill(c *gin.Context) {
	rc, err := s.bills.Open(c.Request.Context(), c.Param("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", data)
}
