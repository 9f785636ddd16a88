package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// settleDelay lets editors finish writing before the file is read again.
const settleDelay = 50 * time.Millisecond

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// Watch dumps the document at path, then prints what changed every time the
// file is written, until ctx is done.
func (d *Dumper) Watch(ctx context.Context, w io.Writer, path string) error {
	if path == Stdin {
		return errors.New("cannot watch standard input")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched: editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)
	name := filepath.Base(path)
	logger := d.logger()

	var prev *domain.Snapshot
	if doc, err := ReadDocument(path, nil); err != nil {
		logger.Error("Document load failed", "err", err)
		printSystemMessage(w, "Cannot read '%s', waiting for changes.", path)
	} else {
		if _, err := d.Dump(w, doc, name); err != nil {
			return err
		}
		snap := d.Snapshot(doc, name)
		prev = &snap
	}
	printSystemMessage(w, "Watching '%s'.", path)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("Change detected", "event", ev.String())
			time.Sleep(settleDelay)

			doc, err := ReadDocument(path, nil)
			if err != nil {
				logger.Warn("Document reload failed", "err", err)
				printSystemMessage(w, "Cannot read '%s': %v", path, err)
				continue
			}
			next := d.Snapshot(doc, name)
			printSystemMessage(w, "Change detected in '%s'.", path)
			WriteDiff(w, domain.Diff(prev, &next))
			prev = &next
		}
	}
}
