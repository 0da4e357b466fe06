package services

import (
	"fmt"
	"strings"

	"github.com/tbnow/tbnow-back/models"
)

// Top-k retrieval depths. Record-scoped queries already carry a dense block
// of structured patient data, so they need fewer supplementary chunks.
const (
	topKGeneric = 5
	topKRecord  = 3
)

// Number of chat-history turns included in a record-scoped context.
const chatHistoryWindow = 5

// ReformatQuestion rewrites the raw question according to the query type. The
// reformatted text, not the raw question, is what gets embedded and retrieved
// against: it matches guideline phrasing better and improves recall.
func ReformatQuestion(question, queryType string) string {
	switch queryType {
	case models.QueryTypeDiagnosis:
		return question + "\n\nBerikan penilaian risiko TB, rekomendasi pemeriksaan diagnostik yang sesuai, dan pertimbangan klinis yang relevan."
	default:
		return "Pertanyaan singkat seputar skrining TB: " + question
	}
}

// SerializeRecord renders a patient record as the structured text block that
// is embedded with the question and injected into the prompt. Only fields
// that are actually present are rendered.
func SerializeRecord(rec models.PatientRecord) string {
	var sb strings.Builder

	sb.WriteString("INFORMASI PASIEN:\n")
	writeField(&sb, "Nama", rec.PatientInfo.Name)
	writeField(&sb, "Usia", rec.PatientInfo.Age)
	writeField(&sb, "Jenis Kelamin", rec.PatientInfo.Gender)
	writeField(&sb, "Gejala", rec.PatientInfo.Symptoms)
	writeField(&sb, "Lama gejala", rec.PatientInfo.Duration)
	writeField(&sb, "Riwayat kontak", rec.PatientInfo.ContactHistory)
	writeField(&sb, "Komorbiditas", rec.PatientInfo.Comorbidities)
	writeField(&sb, "Tanda vital", rec.PatientInfo.VitalSigns)
	writeField(&sb, "Pemeriksaan fisik", rec.PatientInfo.PhysicalExam)

	if x := rec.XrayResult; x != nil {
		sb.WriteString("\nHASIL ANALISIS X-RAY:\n")
		writeField(&sb, "Risiko TB", x.RiskLevel)
		writeField(&sb, "Tingkat Kepercayaan", fmt.Sprintf("%.1f%%", x.Confidence*100))
		writeField(&sb, "Observasi", x.Observations)
		writeField(&sb, "Rekomendasi", x.Recommendations)
		for _, q := range x.FollowUpQuestions {
			writeField(&sb, "Pertanyaan lanjutan", q)
		}
	}

	if rec.Result != "" {
		sb.WriteString("\nPENILAIAN SEBELUMNYA:\n")
		sb.WriteString(rec.Result)
		sb.WriteString("\n")
	}

	if len(rec.ChatHistory) > 0 {
		sb.WriteString("\nRIWAYAT KONSULTASI TERAKHIR:\n")
		history := rec.ChatHistory
		if len(history) > chatHistoryWindow {
			history = history[len(history)-chatHistoryWindow:]
		}
		for _, turn := range history {
			sb.WriteString("T: " + turn.Question + "\n")
			sb.WriteString("J: " + turn.Response + "\n")
		}
	}

	writeField(&sb, "Status", rec.Status)
	writeField(&sb, "Tanggal", rec.Date)

	return strings.TrimRight(sb.String(), "\n")
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	sb.WriteString("- " + label + ": " + value + "\n")
}

// RecordQueryText is the text embedded for a record-scoped query: the
// reformatted question plus the serialized record, so retrieval is biased
// toward guideline chunks relevant to this patient.
func RecordQueryText(question, queryType string, rec models.PatientRecord) string {
	return ReformatQuestion(question, queryType) + "\n\n" + SerializeRecord(rec)
}

// BuildContext assembles the single context block passed to generation. The
// record block (if any) and the retrieved guideline chunks live under
// separate labels so the model can distinguish patient-specific facts from
// reference guidance.
func BuildContext(recordBlock string, chunks []string) string {
	guidance := strings.Join(chunks, "\n\n")
	if recordBlock == "" {
		return guidance
	}
	return "DATA PASIEN:\n" + recordBlock + "\n\nREFERENSI PEDOMAN:\n" + guidance
}
