package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/tbnow/tbnow-back/models"
)

// Fixed attribution and disclaimer strings. Every response, success or
// fallback, carries a non-empty disclaimer.
const (
	guidelineSource  = "Pedoman TB WHO / SOP Kemenkes"
	recordSource     = "Rekam medis pasien"
	answerDisclaimer = "Bukan diagnosis medis"
)

const notIngestedAnswer = "Data pedoman belum diindeks. Silakan jalankan proses ingesti setelah menambahkan berkas pedoman (PDF) ke direktori pedoman."

// Fallback templates per failure category, shown when the generation service
// cannot produce an answer. The markers match what the front end looks for.
const (
	fallbackUnavailable = `⚠️ **Layanan AI sementara tidak tersedia**

Layanan AI sedang kelebihan beban atau tidak dapat dihubungi. Silakan coba lagi dalam beberapa menit.

Langkah manual sementara:
- Lakukan skrining gejala sesuai pedoman WHO (batuk ≥ 2 minggu, demam, keringat malam, penurunan berat badan)
- Rujuk pasien dengan gejala kuat untuk pemeriksaan dahak / GeneXpert
- Konsultasikan kasus meragukan dengan dokter penanggung jawab`

	fallbackRateLimited = `⚠️ **Batas permintaan tercapai**

Kuota permintaan ke layanan AI telah tercapai. Silakan tunggu beberapa saat sebelum mencoba lagi.

Langkah manual sementara:
- Gunakan pedoman skrining TB nasional untuk penilaian awal
- Catat temuan klinis untuk dianalisis setelah layanan pulih`

	fallbackSystemError = `⚠️ **Kesalahan sistem**

Terjadi kesalahan pada sistem saat memproses pertanyaan Anda. Silakan hubungi administrator bila masalah berlanjut.

Langkah manual sementara:
- Lanjutkan penilaian klinis sesuai SOP Kemenkes
- Rujuk pasien berisiko tinggi tanpa menunggu sistem`

	fallbackRecordNote = "\n\nData rekam medis pasien tetap tersedia dan dapat ditinjau secara manual."
)

// RAGService answers TB-screening questions against the guideline knowledge
// base, optionally scoped to one patient's record.
type RAGService interface {
	AnswerGeneric(ctx context.Context, question, queryType string) (*models.QueryResponse, error)
	AnswerForRecord(ctx context.Context, question string, rec models.PatientRecord, queryType string) (*models.QueryResponse, error)
}

// ragServiceImpl holds the dependencies it needs to do its job.
type ragServiceImpl struct {
	embedder  Embedder
	kb        *KnowledgeBase
	generator Generator
	retry     RetryConfig
}

// NewRAGService creates a new RAG service instance.
func NewRAGService(embedder Embedder, kb *KnowledgeBase, generator Generator, retry RetryConfig) RAGService {
	return &ragServiceImpl{
		embedder:  embedder,
		kb:        kb,
		generator: generator,
		retry:     retry,
	}
}

// AnswerGeneric implements RAGService for guideline questions without patient
// context. An empty queryType is treated as a quick question.
func (r *ragServiceImpl) AnswerGeneric(ctx context.Context, question, queryType string) (*models.QueryResponse, error) {
	if queryType == "" {
		queryType = models.QueryTypeQuick
	}
	log.Printf("SERVICE: Answering %s query: '%s'", queryType, question)

	reformatted := ReformatQuestion(question, queryType)
	return r.answer(ctx, reformatted, topKGeneric, "", reformatted, false)
}

// AnswerForRecord implements RAGService for questions about one specific
// patient. The serialized record is embedded with the question to bias
// retrieval, and is injected into the prompt alongside the retrieved chunks.
func (r *ragServiceImpl) AnswerForRecord(ctx context.Context, question string, rec models.PatientRecord, queryType string) (*models.QueryResponse, error) {
	if queryType == "" {
		queryType = models.QueryTypeQuick
	}
	log.Printf("SERVICE: Answering %s query for record %s", queryType, rec.ID)

	reformatted := ReformatQuestion(question, queryType)
	queryText := RecordQueryText(question, queryType, rec)
	recordBlock := SerializeRecord(rec)
	return r.answer(ctx, queryText, topKRecord, recordBlock, reformatted, true)
}

// answer runs the retrieve → assemble → generate pipeline and maps the
// outcome to the final response: success, a fixed not-ingested message, or a
// classified fallback. Only operator-facing problems (embedding failure,
// corrupt index) surface as errors.
func (r *ragServiceImpl) answer(ctx context.Context, queryText string, k int, recordBlock, question string, recordScoped bool) (*models.QueryResponse, error) {
	queryVec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("could not embed query: %w", err)
	}

	chunks, err := r.kb.Search(queryVec, k)
	if err != nil {
		if errors.Is(err, ErrNotIngested) {
			return notIngestedResponse(), nil
		}
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	contextBlock := BuildContext(recordBlock, chunks)
	prompt := BuildPrompt(contextBlock, question, recordScoped)

	answer, err := GenerateWithRetry(ctx, r.generator, prompt, r.retry)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		genErr := asGenerationError(err)
		log.Printf("SERVICE: Generation failed (%s), returning fallback: %v", genErr.Kind, genErr.Err)
		return fallbackResponse(genErr.Kind, recordScoped), nil
	}

	return &models.QueryResponse{
		Answer:     answer,
		Sources:    answerSources(recordScoped),
		Disclaimer: answerDisclaimer,
	}, nil
}

func answerSources(recordScoped bool) []string {
	if recordScoped {
		return []string{guidelineSource, recordSource}
	}
	return []string{guidelineSource}
}

func notIngestedResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Answer:     notIngestedAnswer,
		Sources:    []string{},
		Disclaimer: answerDisclaimer,
	}
}

// fallbackResponse selects the fixed template for a classified failure.
func fallbackResponse(kind FailureKind, recordScoped bool) *models.QueryResponse {
	var answer, disclaimer string
	switch kind {
	case FailureRateLimited:
		answer = fallbackRateLimited
		disclaimer = answerDisclaimer + " - batas permintaan layanan AI tercapai"
	case FailureFatal:
		answer = fallbackSystemError
		disclaimer = answerDisclaimer + " - terjadi kesalahan sistem"
	default:
		answer = fallbackUnavailable
		disclaimer = answerDisclaimer + " - layanan AI sedang tidak tersedia"
	}
	if recordScoped {
		answer += fallbackRecordNote
	}
	return &models.QueryResponse{
		Answer:     answer,
		Sources:    []string{},
		Disclaimer: disclaimer,
	}
}
