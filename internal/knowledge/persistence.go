package knowledge

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sitescout/internal/types"
)

// persister owns the durable side of the store: one SQLite row per url plus
// a convenience snapshot of the whole in-memory map. The row is the recovery
// source of truth; the snapshot may lag.
type persister struct {
	db        *sql.DB
	cachePath string
}

func newPersister(dbPath, cachePath string) (*persister, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	p := &persister{db: db, cachePath: cachePath}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *persister) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS investigations (
		url TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		blob TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_investigations_domain ON investigations(domain);
	`
	_, err := p.db.Exec(schema)
	return err
}

// saveRow upserts the serialized result keyed by url.
func (p *persister) saveRow(result *types.InvestigationResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
		INSERT INTO investigations (url, domain, blob, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			domain = excluded.domain,
			blob = excluded.blob,
			created_at = excluded.created_at
	`
	if _, err := p.db.Exec(query, result.URL, result.Domain, string(blob), time.Now()); err != nil {
		return fmt.Errorf("failed to save investigation row: %w", err)
	}
	return nil
}

// loadAll restores every persisted investigation.
func (p *persister) loadAll() ([]*types.InvestigationResult, error) {
	rows, err := p.db.Query("SELECT blob FROM investigations")
	if err != nil {
		return nil, fmt.Errorf("failed to query investigations: %w", err)
	}
	defer rows.Close()

	var results []*types.InvestigationResult
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan investigation row: %w", err)
		}
		var result types.InvestigationResult
		if err := json.Unmarshal([]byte(blob), &result); err != nil {
			// A single corrupt row should not block restart.
			continue
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// cacheSnapshot is the on-disk convenience mirror of the in-memory map.
type cacheSnapshot struct {
	UpdatedAt time.Time                             `json:"updated_at"`
	Results   map[string]*types.InvestigationResult `json:"results"`
}

// writeSnapshot rewrites the snapshot file from the full in-memory map.
func (p *persister) writeSnapshot(results map[string]*types.InvestigationResult) error {
	if p.cachePath == "" {
		return nil
	}

	data, err := json.Marshal(cacheSnapshot{
		UpdatedAt: time.Now(),
		Results:   results,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := p.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.cachePath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (p *persister) ping() error {
	return p.db.Ping()
}

func (p *persister) close() error {
	return p.db.Close()
}
