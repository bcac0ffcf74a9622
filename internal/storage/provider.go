// Package storage defines the document vault abstraction.
//
// The vault holds the raw bytes of every PDF the application has seen,
// keyed by content fingerprint, so a document from the recent list can be
// reopened without re-uploading it.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for vault document operations.
type Provider interface {
	// List returns metadata for every document in the vault.
	List() ([]models.StoredDocument, error)
	// Read returns the raw bytes of the document with the given fingerprint.
	Read(fp string) ([]byte, error)
	// Write atomically stores content under the given fingerprint.
	Write(fp string, content []byte) error
	// Exists reports whether a document with the given fingerprint is stored.
	Exists(fp string) bool
	// Delete removes the document with the given fingerprint.
	Delete(fp string) error
}
