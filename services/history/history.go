// Package history persists computed scores and provider incidents to a
// local SQLite database so past reviews and source reliability can be
// queried after the fact.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trendlotto_backend/models"
)

// ErrDisabled is returned by query methods when the service runs without
// a history store, e.g. after a failed InitStore.
var ErrDisabled = errors.New("history persistence disabled")

// Store handles score-history and incident persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Global history store
var GlobalStore *Store

// ScoreRecord is one persisted review outcome.
type ScoreRecord struct {
	Symbol    string    `json:"symbol"`
	Window    string    `json:"window"`
	Score     int       `json:"score"`
	Phase     string    `json:"phase"`
	Source    string    `json:"source"`
	Withheld  bool      `json:"withheld"`
	CreatedAt time.Time `json:"created_at"`
}

// IncidentRecord is one persisted provider failure.
type IncidentRecord struct {
	Provider  string    `json:"provider"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// InitStore opens (creating if needed) the SQLite database at path and
// sets the global store.
func InitStore(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}

	GlobalStore = store
	log.Printf("History store initialized at %s", path)
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS score_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			window TEXT NOT NULL,
			score INTEGER NOT NULL,
			phase TEXT NOT NULL,
			source TEXT NOT NULL,
			withheld INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_history_symbol
			ON score_history(symbol, window, created_at)`,
		`CREATE TABLE IF NOT EXISTS provider_incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_provider_incidents_provider
			ON provider_incidents(provider, created_at)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// RecordScore appends one review outcome. Failures are logged, not
// propagated, so persistence can never fail a review request.
func (s *Store) RecordScore(result *models.ScoreResult, window models.Window) {
	if s == nil || result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	withheld := 0
	if result.Withheld {
		withheld = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO score_history (symbol, window, score, phase, source, withheld, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.Symbol, window.String(), result.CompositeScore, result.Phase,
		string(result.SourceProvider), withheld, result.GeneratedAt.UTC(),
	)
	if err != nil {
		log.Printf("Warning: failed to record score for %s: %v", result.Symbol, err)
	}
}

// RecordIncident implements providers.IncidentSink.
func (s *Store) RecordIncident(provider, kind, detail string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO provider_incidents (provider, kind, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		provider, kind, detail, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("Warning: failed to record incident for %s: %v", provider, err)
	}
}

// RecentScores returns up to limit score records for a symbol, newest first.
func (s *Store) RecentScores(symbol string, limit int) ([]ScoreRecord, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT symbol, window, score, phase, source, withheld, created_at
		 FROM score_history WHERE symbol = ?
		 ORDER BY created_at DESC LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var records []ScoreRecord
	for rows.Next() {
		var r ScoreRecord
		var withheld int
		if err := rows.Scan(&r.Symbol, &r.Window, &r.Score, &r.Phase, &r.Source, &withheld, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score record: %w", err)
		}
		r.Withheld = withheld != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentIncidents returns up to limit incidents since the cutoff, newest
// first. Provider filters the result when non-empty.
func (s *Store) RecentIncidents(provider string, since time.Time, limit int) ([]IncidentRecord, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT provider, kind, detail, created_at
		 FROM provider_incidents WHERE created_at >= ?`
	args := []interface{}{since.UTC()}
	if provider != "" {
		query += ` AND provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var records []IncidentRecord
	for rows.Next() {
		var r IncidentRecord
		var detail sql.NullString
		if err := rows.Scan(&r.Provider, &r.Kind, &detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident record: %w", err)
		}
		r.Detail = detail.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// IncidentCounts aggregates incidents per provider and kind since cutoff.
func (s *Store) IncidentCounts(since time.Time) (map[string]map[string]int, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT provider, kind, COUNT(*) FROM provider_incidents
		 WHERE created_at >= ? GROUP BY provider, kind`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate incidents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var provider, kind string
		var n int
		if err := rows.Scan(&provider, &kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan incident count: %w", err)
		}
		if counts[provider] == nil {
			counts[provider] = make(map[string]int)
		}
		counts[provider][kind] = n
	}
	return counts, rows.Err()
}
