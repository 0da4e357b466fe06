package models

// PatientInfo holds the demographic and clinical fields entered by the
// clinician. All fields are free text; absent fields are empty strings and are
// omitted when the record is serialized into a query context.
type PatientInfo struct {
	Name           string `json:"name,omitempty"`
	Age            string `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Symptoms       string `json:"symptoms,omitempty"`
	Duration       string `json:"duration,omitempty"`
	ContactHistory string `json:"contactHistory,omitempty"`
	Comorbidities  string `json:"comorbidities,omitempty"`
	VitalSigns     string `json:"vitalSigns,omitempty"`
	PhysicalExam   string `json:"physicalExam,omitempty"`
}

// ChatTurn is one question/response pair in a record's chat history.
type ChatTurn struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// PatientRecord is a stored screening record. Result holds the assessment
// text produced when the record was created; ChatHistory accumulates
// record-scoped follow-up questions.
type PatientRecord struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patientId"`
	Date        string      `json:"date"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Result      string      `json:"result"`
	PatientInfo PatientInfo `json:"patientInfo"`
	XrayResult  *XrayResult `json:"xrayResult,omitempty"`
	ChatHistory []ChatTurn  `json:"chatHistory"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
}
