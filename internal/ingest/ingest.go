// Package ingest brings documents into the vault from outside the API:
// a watched inbox directory and a startup reconciliation pass.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/fingerprint"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/pdftext"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// Publisher receives ingest events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(event sse.Event)
}

// Service copies PDFs into the content-addressed vault and keeps the
// history index in step with it.
type Service struct {
	store  history.Store
	vault  storage.Provider
	events Publisher
	logger *slog.Logger
}

// NewService creates an ingest service. events may be nil.
func NewService(store history.Store, vault storage.Provider, events Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, vault: vault, events: events, logger: logger}
}

// Ingest validates data as a PDF and stores it under its fingerprint.
// Re-ingesting known content is a no-op apart from a recency touch; the
// stored display name is not overwritten by an ingest.
func (s *Service) Ingest(data []byte, displayName string) (string, error) {
	if _, err := pdftext.Load(data); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	fp := fingerprint.Sum(data)
	if s.vault.Exists(fp) {
		if err := s.store.Touch(fp); err != nil {
			s.logger.Warn("touch on re-ingest", "fingerprint", fp, "error", err)
		}
		return fp, nil
	}

	if err := s.vault.Write(fp, data); err != nil {
		return "", err
	}

	entry, err := s.store.Load(fp)
	if err != nil {
		return "", err
	}
	name := entry.DisplayName
	if name == "" {
		name = displayName
	}
	if err := s.store.Save(fp, name, nil, entry.Summary); err != nil {
		return "", err
	}

	s.logger.Info("document ingested", "fingerprint", fp, "display_name", name, "bytes", len(data))
	if s.events != nil {
		s.events.Publish(sse.Event{Type: sse.EventDocumentIngested, Data: map[string]string{
			"fingerprint":  fp,
			"display_name": name,
		}})
	}
	return fp, nil
}

// ingestInboxFile ingests one file from the inbox and removes it on success.
// A file that fails to parse is left in place; a later write event retries
// it, which also covers files caught mid-copy.
func (s *Service) ingestInboxFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := s.Ingest(data, filepath.Base(path)); err != nil {
		return err
	}
	return os.Remove(path)
}

// Sync reconciles the vault with the history index at startup: vault blobs
// without a history row get one, and rows whose blob is gone are reported.
// Rows are never deleted here so a transcript survives a misplaced vault.
func (s *Service) Sync() error {
	docs, err := s.vault.List()
	if err != nil {
		return fmt.Errorf("ingest: list vault: %w", err)
	}
	known, err := s.store.Fingerprints()
	if err != nil {
		return err
	}

	onDisk := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		onDisk[d.Fingerprint] = struct{}{}
		if _, ok := known[d.Fingerprint]; ok {
			continue
		}
		// No original file name survives for an orphaned blob.
		name := shortName(d.Fingerprint)
		if err := s.store.Save(d.Fingerprint, name, nil, ""); err != nil {
			return err
		}
		s.logger.Info("sync: indexed orphan blob", "fingerprint", d.Fingerprint)
	}

	for fp := range known {
		if _, ok := onDisk[fp]; !ok {
			s.logger.Warn("sync: history entry without stored document", "fingerprint", fp)
		}
	}
	return nil
}

func shortName(fp string) string {
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return "document-" + fp + ".pdf"
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
