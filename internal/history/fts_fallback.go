//go:build !sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the live tables.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _, _ string) error {
	// Message bodies are already stored in the messages table.
	return nil
}

// Search performs a LIKE-based search over transcripts and summaries
// (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT m.fingerprint, COALESCE(d.display_name, ''), substr(m.body, 1, 200)
		FROM messages m
		LEFT JOIN documents d ON d.fingerprint = m.fingerprint
		WHERE m.body LIKE ?
		UNION
		SELECT d.fingerprint, d.display_name, substr(d.summary, 1, 200)
		FROM documents d
		WHERE d.summary LIKE ? OR d.display_name LIKE ?
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Fingerprint, &r.DisplayName, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
