// Package models defines the domain types for Ansuz.
package models

import "time"

// StoredDocument is a lightweight representation of a PDF held in the vault.
type StoredDocument struct {
	Fingerprint string    `json:"fingerprint"`
	Size        int64     `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

// DocumentRef identifies a document in the recent-documents index.
type DocumentRef struct {
	Fingerprint  string    `json:"fingerprint"`
	DisplayName  string    `json:"display_name"`
	LastAccessed time.Time `json:"last_accessed"`
}
