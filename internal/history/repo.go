package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Entry is the persisted record for one document fingerprint. An empty
// Summary means "not yet generated".
type Entry struct {
	Fingerprint  string               `json:"fingerprint"`
	DisplayName  string               `json:"display_name"`
	Summary      string               `json:"summary"`
	Transcript   []models.ChatMessage `json:"transcript"`
	LastAccessed time.Time            `json:"last_accessed"`
}

// SearchResult represents one transcript search hit.
type SearchResult struct {
	Fingerprint string `json:"fingerprint"`
	DisplayName string `json:"display_name"`
	Snippet     string `json:"snippet"`
}

// Load returns the entry for fp, or a zero-value entry if none is stored.
func (db *DB) Load(fp string) (*Entry, error) {
	e := &Entry{Fingerprint: fp, Transcript: []models.ChatMessage{}}

	err := db.conn.QueryRow(`
		SELECT display_name, summary, last_accessed
		FROM documents WHERE fingerprint = ?
	`, fp).Scan(&e.DisplayName, &e.Summary, &e.LastAccessed)
	if err == sql.ErrNoRows {
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: load %s: %w", fp, err)
	}

	rows, err := db.conn.Query(`
		SELECT id, sender, body, created_at
		FROM messages WHERE fingerprint = ?
		ORDER BY rowid
	`, fp)
	if err != nil {
		return nil, fmt.Errorf("history: load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ChatMessage
		var sender string
		if err := rows.Scan(&m.ID, &sender, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = models.Sender(sender)
		e.Transcript = append(e.Transcript, m)
	}
	return e, rows.Err()
}

// Save upserts the document row and appends any messages not yet stored.
// It is idempotent: saving the same logical state twice produces the same
// persisted rows, and the entry keeps a single position in the recent index.
func (db *DB) Save(fp, displayName string, transcript []models.ChatMessage, summary string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// last_accessed carries sub-second precision so the recent index stays
	// stable across saves landing within the same wall-clock second.
	_, err = tx.Exec(`
		INSERT INTO documents (fingerprint, display_name, summary, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			display_name  = excluded.display_name,
			summary       = CASE WHEN excluded.summary = ''
			                THEN documents.summary ELSE excluded.summary END,
			last_accessed = excluded.last_accessed
	`, fp, displayName, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("history: upsert document: %w", err)
	}

	// Transcripts are append-only, so INSERT OR IGNORE keyed on message ID
	// makes re-saving the full transcript idempotent.
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO messages (id, fingerprint, sender, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("history: prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range transcript {
		res, err := stmt.Exec(m.ID, fp, string(m.Sender), m.Text, m.Timestamp)
		if err != nil {
			return fmt.Errorf("history: insert message: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			if err := ftsInsert(tx, m.ID, fp, m.Text); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// SetDisplayName updates the stored display name for fp. The name may change
// when the same content is reopened under a different file name.
func (db *DB) SetDisplayName(fp, name string) error {
	_, err := db.conn.Exec(`
		UPDATE documents SET display_name = ? WHERE fingerprint = ?
	`, name, fp)
	if err != nil {
		return fmt.Errorf("history: set display name: %w", err)
	}
	return nil
}

// SetSummary memoizes the generated summary for fp. The row is created if
// the summary lands before the first Save.
func (db *DB) SetSummary(fp, summary string) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (fingerprint, summary)
		VALUES (?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET summary = excluded.summary
	`, fp, summary)
	if err != nil {
		return fmt.Errorf("history: set summary: %w", err)
	}
	return nil
}

// Touch refreshes the last-accessed time, moving fp to the front of the
// recent-documents index.
func (db *DB) Touch(fp string) error {
	_, err := db.conn.Exec(`
		UPDATE documents SET last_accessed = ? WHERE fingerprint = ?
	`, time.Now().UTC(), fp)
	if err != nil {
		return fmt.Errorf("history: touch: %w", err)
	}
	return nil
}

// Recent returns all known documents, most recently accessed first.
func (db *DB) Recent() ([]models.DocumentRef, error) {
	rows, err := db.conn.Query(`
		SELECT fingerprint, display_name, last_accessed
		FROM documents
		ORDER BY last_accessed DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentRef
	for rows.Next() {
		var r models.DocumentRef
		if err := rows.Scan(&r.Fingerprint, &r.DisplayName, &r.LastAccessed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Fingerprints returns every fingerprint with a history entry.
func (db *DB) Fingerprints() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT fingerprint FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("history: fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out[fp] = struct{}{}
	}
	return out, rows.Err()
}
