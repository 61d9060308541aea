package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pose-analyzer/server/models"
)

// ReportRecord is one stored session report. Payload holds the full
// SessionReport JSON; the scalar fields mirror its listing metadata.
type ReportRecord struct {
	ID               string          `json:"id"`
	SessionID        string          `json:"session_id"`
	ClientID         string          `json:"client_id"`
	SelectedDuration int             `json:"selected_duration"`
	ActualDuration   float64         `json:"actual_duration"`
	FrameCount       int             `json:"frame_count"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ReportRepository provides persistence operations for session reports.
type ReportRepository struct {
	db *sql.DB
}

// Reports returns the report repository for this store.
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{db: s.db}
}

// Save persists a completed session report and returns its record ID.
func (r *ReportRepository) Save(report *models.SessionReport, clientID string) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.Exec(
		`INSERT INTO reports (id, session_id, client_id, selected_duration, actual_duration, frame_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		report.SessionID,
		clientID,
		report.Duration.SelectedDuration,
		report.Duration.ActualDuration,
		len(report.PoseHistory),
		string(payload),
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	return id, nil
}

// GetByID retrieves a stored report, payload included.
func (r *ReportRepository) GetByID(id string) (*ReportRecord, error) {
	rec := &ReportRecord{}
	var payload string

	err := r.db.QueryRow(
		`SELECT id, session_id, client_id, selected_duration, actual_duration, frame_count, payload, created_at
		 FROM reports WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.SessionID, &rec.ClientID, &rec.SelectedDuration,
		&rec.ActualDuration, &rec.FrameCount, &payload, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Payload = json.RawMessage(payload)
	return rec, nil
}

// List returns report metadata (no payloads), most recent first.
func (r *ReportRepository) List(limit int) ([]*ReportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, client_id, selected_duration, actual_duration, frame_count, created_at
		 FROM reports ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ReportRecord
	for rows.Next() {
		rec := &ReportRecord{}
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ClientID, &rec.SelectedDuration,
			&rec.ActualDuration, &rec.FrameCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a stored report.
func (r *ReportRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
