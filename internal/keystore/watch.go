package keystore

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch re-reads the key file when it changes on disk, so keyctl edits and
// provisioning pushes take effect without a restart. The parent directory is
// watched as well: atomic saves rename a temp file over the target, which
// drops any watch on the old inode. Event bursts are debounced. Blocks until
// ctx is canceled.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	// The file itself may not exist yet.
	_ = w.Add(s.path)

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.watchRelevant(ev) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(watchDebounce)
			fire = debounce.C
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				_ = w.Add(s.path)
			}

		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				log.Printf("keystore event=reload_failed file=%s err=%v", s.path, err)
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("keystore event=watch_error err=%v", werr)
		}
	}
}

// watchRelevant filters directory noise down to changes of the key file.
// The store's own saves surface here too; the extra reload is harmless.
func (s *Store) watchRelevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return filepath.Clean(ev.Name) == filepath.Clean(s.path)
}
