package models

// QueryResponse is the result of a RAG query. Every response carries a
// non-empty Disclaimer, including fallbacks produced when the generation
// service is unavailable.
type QueryResponse struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Disclaimer string   `json:"disclaimer"`
}

type CreateRecordResponse struct {
	Message string         `json:"message"`
	Record  *PatientRecord `json:"record,omitempty"`
}

type ListRecordsResponse struct {
	Count   int             `json:"count"`
	Records []PatientRecord `json:"records"`
}
