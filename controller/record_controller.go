package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbnow/tbnow-back/models"
	"github.com/tbnow/tbnow-back/services"
)

// RecordController handles the HTTP requests for patient records, including
// record-scoped RAG queries.
type RecordController struct {
	store      services.RecordStore
	ragService services.RAGService
}

// NewRecordController creates a new RecordController.
func NewRecordController(store services.RecordStore, ragService services.RAGService) *RecordController {
	return &RecordController{
		store:      store,
		ragService: ragService,
	}
}

// CreateRecord is the Gin handler for POST /records.
func (c *RecordController) CreateRecord(ctx *gin.Context) {
	var req models.CreateRecordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	rec, err := c.store.Create(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save record"})
		return
	}

	ctx.JSON(http.StatusCreated, models.CreateRecordResponse{
		Message: "Record saved successfully",
		Record:  rec,
	})
}

// ListRecords is the Gin handler for GET /records.
func (c *RecordController) ListRecords(ctx *gin.Context) {
	records, err := c.store.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}
	ctx.JSON(http.StatusOK, models.ListRecordsResponse{
		Count:   len(records),
		Records: records,
	})
}

// GetRecord is the Gin handler for GET /records/:id.
func (c *RecordController) GetRecord(ctx *gin.Context) {
	rec, err := c.store.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve record"})
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

// DeleteRecord is the Gin handler for DELETE /records/:id.
func (c *RecordController) DeleteRecord(ctx *gin.Context) {
	if err := c.store.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Record deleted"})
}

// QueryRecord is the Gin handler for POST /records/:id/chat. It answers a
// question scoped to one patient's record and appends the exchange to the
// record's chat history.
func (c *RecordController) QueryRecord(ctx *gin.Context) {
	var req models.RecordQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	id := ctx.Param("id")
	rec, err := c.store.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve record"})
		return
	}

	response, err := c.ragService.AnswerForRecord(ctx.Request.Context(), req.Question, *rec, req.QueryType)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI response"})
		return
	}

	// Chat history is best effort: the answer is still returned even if the
	// append fails.
	turn := models.ChatTurn{Question: req.Question, Response: response.Answer}
	if err := c.store.AppendChat(ctx.Request.Context(), id, turn); err != nil {
		ctx.Error(err)
	}

	ctx.JSON(http.StatusOK, response)
}
