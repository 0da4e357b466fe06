package models

// Risk levels reported by the X-ray classification model.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
	RiskError  = "Error"
)

// XrayResult is the structured output of the image-classification model.
// Confidence is in [0,1] and is rendered as a percentage when the result is
// embedded into a record-scoped query context.
type XrayResult struct {
	RiskLevel         string   `json:"risk_level"`
	Confidence        float64  `json:"confidence"`
	Observations      string   `json:"observations,omitempty"`
	Recommendations   string   `json:"recommendations,omitempty"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
	Note              string   `json:"note,omitempty"`
}
