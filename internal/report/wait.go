package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForReport blocks until the report file exists and loads, or the
// context expires. An fsnotify watcher on the parent directory catches the
// rename-into-place; a poll ticker backstops filesystems without events.
func WaitForReport(ctx context.Context, path string) (*FailoverReport, error) {
	if r, err := Load(path); err == nil {
		return r, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("report: create %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("report: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("report: watch %s: %w", dir, err)
	}

	// The file may have landed between the first Load and watcher.Add.
	if r, err := Load(path); err == nil {
		return r, nil
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("report: %s did not appear: %w", path, ctx.Err())
		case event, ok := <-watcher.Events:
			if !ok {
				return nil, fmt.Errorf("report: watcher closed while waiting for %s", path)
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if r, err := Load(path); err == nil {
				return r, nil
			}
		case watchErr, ok := <-watcher.Errors:
			if ok && watchErr != nil {
				// Degrade to polling; the ticker still covers us.
				continue
			}
		case <-ticker.C:
			if r, err := Load(path); err == nil {
				return r, nil
			}
		}
	}
}
