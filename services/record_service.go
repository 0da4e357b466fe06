package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tbnow/tbnow-back/models"
)

// ErrRecordNotFound signals that no patient record exists for the given id.
var ErrRecordNotFound = errors.New("patient record not found")

// RecordStore persists patient screening records. The RAG core only ever
// reads snapshots from it; record-scoped answers never mutate clinical data
// beyond appending chat turns.
type RecordStore interface {
	Create(ctx context.Context, req models.CreateRecordRequest) (*models.PatientRecord, error)
	List(ctx context.Context) ([]models.PatientRecord, error)
	Get(ctx context.Context, id string) (*models.PatientRecord, error)
	Delete(ctx context.Context, id string) error
	AppendChat(ctx context.Context, id string, turn models.ChatTurn) error
}

// sqliteRecordStore stores records in a local SQLite database.
type sqliteRecordStore struct {
	db *sql.DB
}

// NewSQLiteRecordStore opens (or creates) the records database at path.
func NewSQLiteRecordStore(path string) (RecordStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS patient_records (
		id TEXT PRIMARY KEY,
		patient_id TEXT UNIQUE,
		date TEXT,
		type TEXT,
		status TEXT,
		result TEXT,
		patient_info TEXT,
		xray_result TEXT,
		chat_history TEXT,
		created_at TEXT,
		updated_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_patient_id ON patient_records(patient_id);
	CREATE INDEX IF NOT EXISTS idx_status ON patient_records(status);
	CREATE INDEX IF NOT EXISTS idx_date ON patient_records(date);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize records schema: %w", err)
	}
	return &sqliteRecordStore{db: db}, nil
}

func (s *sqliteRecordStore) Create(ctx context.Context, req models.CreateRecordRequest) (*models.PatientRecord, error) {
	now := time.Now().UTC()
	id := uuid.New().String()

	recordType := "AI Diagnosis"
	if req.XrayResult != nil {
		recordType = "X-ray Analysis"
	}

	rec := &models.PatientRecord{
		ID:          id,
		PatientID:   "TB-" + id[:8],
		Date:        now.Format("2006-01-02"),
		Type:        recordType,
		Status:      "completed",
		Result:      req.Assessment,
		PatientInfo: req.PatientInfo,
		XrayResult:  req.XrayResult,
		ChatHistory: []models.ChatTurn{},
		CreatedAt:   now.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	}

	patientInfo, err := json.Marshal(rec.PatientInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patient info: %w", err)
	}
	var xrayResult any
	if rec.XrayResult != nil {
		encoded, err := json.Marshal(rec.XrayResult)
		if err != nil {
			return nil, fmt.Errorf("failed to encode xray result: %w", err)
		}
		xrayResult = string(encoded)
	}
	chatHistory, err := json.Marshal(rec.ChatHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patient_records
		(id, patient_id, date, type, status, result, patient_info, xray_result, chat_history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PatientID, rec.Date, rec.Type, rec.Status, rec.Result,
		string(patientInfo), xrayResult, string(chatHistory), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

func (s *sqliteRecordStore) List(ctx context.Context) ([]models.PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, date, type, status, result, patient_info, xray_result, chat_history, created_at, updated_at
		FROM patient_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []models.PatientRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *sqliteRecordStore) Get(ctx context.Context, id string) (*models.PatientRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, date, type, status, result, patient_info, xray_result, chat_history, created_at, updated_at
		FROM patient_records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (s *sqliteRecordStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM patient_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *sqliteRecordStore) AppendChat(ctx context.Context, id string, turn models.ChatTurn) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	history := append(rec.ChatHistory, turn)
	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE patient_records SET chat_history = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update chat history: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.PatientRecord, error) {
	var rec models.PatientRecord
	var patientInfo, chatHistory string
	var xrayResult sql.NullString

	err := row.Scan(&rec.ID, &rec.PatientID, &rec.Date, &rec.Type, &rec.Status, &rec.Result,
		&patientInfo, &xrayResult, &chatHistory, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(patientInfo), &rec.PatientInfo); err != nil {
		return nil, fmt.Errorf("corrupt patient info for record %s: %w", rec.ID, err)
	}
	if xrayResult.Valid && xrayResult.String != "" {
		rec.XrayResult = &models.XrayResult{}
		if err := json.Unmarshal([]byte(xrayResult.String), rec.XrayResult); err != nil {
			return nil, fmt.Errorf("corrupt xray result for record %s: %w", rec.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(chatHistory), &rec.ChatHistory); err != nil {
		return nil, fmt.Errorf("corrupt chat history for record %s: %w", rec.ID, err)
	}
	return &rec, nil
}
