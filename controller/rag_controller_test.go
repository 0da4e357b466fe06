package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbnow/tbnow-back/models"
)

// fakeRAGService returns canned responses and records what it was asked.
type fakeRAGService struct {
	lastQuestion  string
	lastQueryType string
	lastRecordID  string
	response      *models.QueryResponse
	err           error
}

func (f *fakeRAGService) AnswerGeneric(_ context.Context, question, queryType string) (*models.QueryResponse, error) {
	f.lastQuestion = question
	f.lastQueryType = queryType
	return f.response, f.err
}

func (f *fakeRAGService) AnswerForRecord(_ context.Context, question string, rec models.PatientRecord, queryType string) (*models.QueryResponse, error) {
	f.lastQuestion = question
	f.lastQueryType = queryType
	f.lastRecordID = rec.ID
	return f.response, f.err
}

func newQueryRouter(svc *fakeRAGService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ctrl := NewRAGController(svc, nil)
	router.POST("/rag/query", ctrl.QueryRAG)
	return router
}

func TestQueryRAGReturnsAnswer(t *testing.T) {
	svc := &fakeRAGService{response: &models.QueryResponse{
		Answer:     "Gejala utama TB adalah batuk berdahak ≥ 2 minggu.",
		Sources:    []string{"Pedoman TB WHO / SOP Kemenkes"},
		Disclaimer: "Bukan diagnosis medis",
	}}
	router := newQueryRouter(svc)

	body := `{"question": "Apa gejala TB?", "query_type": "diagnosis"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Apa gejala TB?", svc.lastQuestion)
	assert.Equal(t, models.QueryTypeDiagnosis, svc.lastQueryType)

	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Pedoman TB WHO / SOP Kemenkes"}, resp.Sources)
	assert.Equal(t, "Bukan diagnosis medis", resp.Disclaimer)
}

func TestQueryRAGRejectsMissingQuestion(t *testing.T) {
	svc := &fakeRAGService{response: &models.QueryResponse{Answer: "never reached"}}
	router := newQueryRouter(svc)

	for _, body := range []string{`{}`, `{"query_type": "quick"}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Empty(t, svc.lastQuestion)
}

func TestQueryRAGServiceFailure(t *testing.T) {
	svc := &fakeRAGService{err: errors.New("embedding service down")}
	router := newQueryRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "Apa gejala TB?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
