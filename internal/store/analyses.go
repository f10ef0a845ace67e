package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

// HistoryEntry summarizes a saved analysis.
type HistoryEntry struct {
	ID        string
	Topic     string
	Window    model.Window
	ScannedAt time.Time
	Findings  int
	Degraded  bool
}

// SaveAnalysis stores result in userID's history and prunes the oldest
// entries beyond the history limit.
func (s *Store) SaveAnalysis(ctx context.Context, userID string, result model.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses (id, user_id, topic, scan_window, scanned_at, findings, degraded, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, userID, result.Topic, string(result.Window), result.ScannedAt.UnixNano(),
		len(result.Findings), boolToInt(len(result.Degraded) > 0), string(payload))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM analyses
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM analyses WHERE user_id = ?
			ORDER BY scanned_at DESC, rowid DESC
			LIMIT ?
		)
	`, userID, userID, s.historyLimit)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	return tx.Commit()
}

// GetAnalysis loads a saved analysis by id, whichever history holds it.
func (s *Store) GetAnalysis(ctx context.Context, id string) (model.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT payload FROM analyses WHERE id = ? LIMIT 1", id)
	return scanAnalysis(row, id)
}

// UserAnalysis loads analysis id only if it is in userID's history.
func (s *Store) UserAnalysis(ctx context.Context, userID, id string) (model.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT payload FROM analyses WHERE user_id = ? AND id = ?", userID, id)
	return scanAnalysis(row, id)
}

func scanAnalysis(row *sql.Row, id string) (model.AnalysisResult, error) {
	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisResult{}, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.AnalysisResult{}, err
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	return result, nil
}

// History lists userID's saved analyses, newest first.
func (s *Store) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, scan_window, scanned_at, findings, degraded
		FROM analyses
		WHERE user_id = ?
		ORDER BY scanned_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e           HistoryEntry
			window      string
			scanned     int64
			degradedInt int
		)
		if err := rows.Scan(&e.ID, &e.Topic, &window, &scanned, &e.Findings, &degradedInt); err != nil {
			return nil, err
		}
		e.Window = model.Window(window)
		e.ScannedAt = time.Unix(0, scanned).UTC()
		e.Degraded = degradedInt != 0
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
