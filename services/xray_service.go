package services

import (
	"context"

	"github.com/tbnow/tbnow-back/models"
)

// XrayAnalyzer is the boundary to the image-classification collaborator. The
// RAG core only consumes its structured result when it appears in a patient
// record.
type XrayAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*models.XrayResult, error)
}

// stubXrayAnalyzer stands in for the real classification model service.
type stubXrayAnalyzer struct{}

// NewStubXrayAnalyzer returns an analyzer that produces a fixed
// medium-risk result, mirroring the placeholder the API shipped with before
// the model service went live.
func NewStubXrayAnalyzer() XrayAnalyzer {
	return &stubXrayAnalyzer{}
}

func (a *stubXrayAnalyzer) Analyze(ctx context.Context, image []byte) (*models.XrayResult, error) {
	return &models.XrayResult{
		RiskLevel:  models.RiskMedium,
		Confidence: 0.75,
		Note:       "Not a diagnosis",
	}, nil
}
