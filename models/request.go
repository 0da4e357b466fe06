package models

// Query types supported by the RAG endpoint. The front end sends one of these
// with every question; an empty value is treated as QueryTypeQuick.
const (
	QueryTypeQuick     = "quick"
	QueryTypeDiagnosis = "diagnosis"
)

type QueryRequest struct {
	Question  string `json:"question" binding:"required"`
	QueryType string `json:"query_type,omitempty"`
}

// RecordQueryRequest is the body for record-scoped questions
// (POST /records/:id/chat).
type RecordQueryRequest struct {
	Question  string `json:"question" binding:"required"`
	QueryType string `json:"query_type,omitempty"`
}

// CreateRecordRequest is the body for saving a new patient record after a
// diagnosis or an X-ray analysis.
type CreateRecordRequest struct {
	PatientInfo PatientInfo `json:"patientInfo"`
	Assessment  string      `json:"assessment"`
	XrayResult  *XrayResult `json:"xrayResult,omitempty"`
}
