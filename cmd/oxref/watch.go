package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchWithFSNotify calls onChange with the accepted paths touched since the
// last call, once events have been quiet for debounce. Module directories
// are flat so only root itself is watched.
func watchWithFSNotify(ctx context.Context, root string, debounce time.Duration, accept func(string) bool, onChange func(changedPaths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := watcher.Add(absRoot); err != nil {
		return err
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			eventPath := filepath.Clean(event.Name)
			if !accept(eventPath) {
				continue
			}
			resetDebounce(eventPath)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			changed := make([]string, 0, len(pendingPaths))
			for path := range pendingPaths {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pendingPaths = map[string]bool{}
			onChange(changed)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// watchWithPolling compares directory snapshots every interval.
func watchWithPolling(ctx context.Context, root string, interval time.Duration, accept func(string) bool, onChange func(changedPaths []string)) error {
	previous, err := snapshot(root, accept)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current, err := snapshot(root, accept)
			if err != nil {
				return err
			}
			if changed := diffSnapshots(previous, current); len(changed) > 0 {
				onChange(changed)
			}
			previous = current
		}
	}
}

func snapshot(root string, accept func(string) bool) (map[string]fileStamp, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	out := make(map[string]fileStamp, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if !accept(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out[path] = fileStamp{size: info.Size(), modTime: info.ModTime()}
	}
	return out, nil
}

func diffSnapshots(before, after map[string]fileStamp) []string {
	var changed []string
	for path, stamp := range after {
		if old, ok := before[path]; !ok || old != stamp {
			changed = append(changed, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}
