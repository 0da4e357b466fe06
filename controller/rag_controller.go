package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbnow/tbnow-back/models"
	"github.com/tbnow/tbnow-back/services"
)

// RAGController handles the HTTP requests for guideline queries and corpus
// ingestion. It depends on the service layer for the actual business logic.
type RAGController struct {
	ragService services.RAGService
	indexer    *services.IndexingService
}

// NewRAGController is a constructor function that creates a new RAGController.
// This is called from main.go to inject the service dependencies.
func NewRAGController(ragService services.RAGService, indexer *services.IndexingService) *RAGController {
	return &RAGController{
		ragService: ragService,
		indexer:    indexer,
	}
}

// QueryRAG is the Gin handler for the POST /rag/query endpoint. It parses the
// request, calls the service layer, and returns the structured answer.
func (c *RAGController) QueryRAG(ctx *gin.Context) {
	var req models.QueryRequest

	// Use Gin's binding to parse and validate the incoming JSON.
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// Delegate the RAG pipeline to the service layer. Generation failures
	// come back as well-formed fallback responses, not errors; only
	// operator-facing problems (embedding down, corrupt index) end up here.
	response, err := c.ragService.AnswerGeneric(ctx.Request.Context(), req.Question, req.QueryType)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI response"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// IngestGuidelines is the Gin handler for the POST /rag/ingest endpoint. It
// rebuilds the whole knowledge base from the guidelines directory.
func (c *RAGController) IngestGuidelines(ctx *gin.Context) {
	if err := c.indexer.BuildIndex(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Guidelines ingested successfully"})
}
