package history

import "github.com/starford/ansuz/internal/models"

// Store defines the interface for history operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Store interface {
	Load(fp string) (*Entry, error)
	Save(fp, displayName string, transcript []models.ChatMessage, summary string) error
	SetDisplayName(fp, name string) error
	SetSummary(fp, summary string) error
	Touch(fp string) error
	Recent() ([]models.DocumentRef, error)
	Search(query string, limit int) ([]SearchResult, error)
	Fingerprints() (map[string]struct{}, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
