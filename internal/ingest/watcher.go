package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the inbox directory and ingests PDF
// files dropped into it until ctx is cancelled.
//
// Events are debounced into sweeps of the whole directory: a file that is
// still being copied fails validation and stays put, and the write events
// from the ongoing copy schedule the next sweep that picks it up.
func (s *Service) Watch(ctx context.Context, inboxDir string) error {
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inboxDir); err != nil {
		return err
	}

	s.logger.Info("inbox watcher: started", "dir", inboxDir)

	// sweepTimer debounces bursts of events into one directory sweep.
	var sweepTimer *time.Timer
	var sweepCh <-chan time.Time

	scheduleSweep := func() {
		if sweepTimer == nil {
			sweepTimer = time.NewTimer(200 * time.Millisecond)
			sweepCh = sweepTimer.C
		} else {
			sweepTimer.Reset(200 * time.Millisecond)
		}
	}

	// Pick up anything already waiting when the watcher starts.
	s.sweep(inboxDir)

	for {
		select {
		case <-ctx.Done():
			if sweepTimer != nil {
				sweepTimer.Stop()
			}
			s.logger.Info("inbox watcher: stopped")
			return nil

		case <-sweepCh:
			s.sweep(inboxDir)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !isPDF(ev.Name) {
				continue
			}
			scheduleSweep()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("inbox watcher: error", "error", watchErr)
		}
	}
}

// sweep ingests every parseable PDF currently in the inbox.
func (s *Service) sweep(inboxDir string) {
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		s.logger.Warn("inbox sweep: read dir", "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isPDF(e.Name()) {
			continue
		}
		path := filepath.Join(inboxDir, e.Name())
		if err := s.ingestInboxFile(path); err != nil {
			s.logger.Warn("inbox sweep: skipped", "file", e.Name(), "error", err)
		}
	}
}
