package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbnow/tbnow-back/services"
)

// XrayController handles the POST /xray/analyze endpoint.
type XrayController struct {
	analyzer services.XrayAnalyzer
}

// NewXrayController creates a new XrayController.
func NewXrayController(analyzer services.XrayAnalyzer) *XrayController {
	return &XrayController{analyzer: analyzer}
}

// AnalyzeXray accepts a chest X-ray upload and returns the structured
// classification result. The result can then be saved into a patient record
// and flows into record-scoped queries.
func (c *XrayController) AnalyzeXray(ctx *gin.Context) {
	file, _, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing X-ray image file"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read X-ray image"})
		return
	}

	result, err := c.analyzer.Analyze(ctx.Request.Context(), image)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze X-ray"})
		return
	}
	ctx.JSON(http.StatusOK, result)
}
