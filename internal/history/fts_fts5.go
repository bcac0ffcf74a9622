//go:build sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			id UNINDEXED,
			fingerprint UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, id, fp, body string) error {
	_, err := tx.Exec(`INSERT INTO messages_fts (id, fingerprint, body) VALUES (?, ?, ?)`,
		id, fp, body)
	if err != nil {
		return fmt.Errorf("history: insert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 search over transcript messages and returns hits
// with snippets, joined to their document's display name.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT m.fingerprint,
		       COALESCE(d.display_name, ''),
		       snippet(messages_fts, 2, '<b>', '</b>', '...', 64)
		FROM messages_fts m
		LEFT JOIN documents d ON d.fingerprint = m.fingerprint
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
