// Package fswatch watches a single file through its parent directory.
//
// Editors and atomic writers replace files via rename, which drops a watch on
// the file itself; watching the directory and matching the basename survives
// that. The watcher restarts itself with jittered backoff when fsnotify breaks.
package fswatch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "focusflow/pkg/logx"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	defaultMaxWait     = time.Second
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

type Options struct {
	// Debounce coalesces bursts of events; default 250ms.
	Debounce time.Duration
	// MaxWait bounds how long a steady stream of events can postpone fn;
	// default 1s, never less than Debounce.
	MaxWait time.Duration
	Log     logx.Logger
}

// Watch calls fn (debounced) whenever path is written, created, renamed or
// removed. It blocks until ctx is done and then returns nil.
func Watch(ctx context.Context, path string, opts Options, fn func()) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("path", path))
	delay := opts.Debounce
	if delay <= 0 {
		delay = defaultDebounce
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	maxWait = max(maxWait, delay)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
		// pendingSince is when the first event of the unflushed burst arrived.
		pendingSince time.Time
	)
	fire := func() {
		timerMu.Lock()
		pendingSince = time.Time{}
		timerMu.Unlock()
		if ctx.Err() == nil {
			fn()
		}
	}
	trigger := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		now := time.Now()
		if pendingSince.IsZero() {
			pendingSince = now
		}
		elapsed := now.Sub(pendingSince)
		if elapsed >= maxWait && timer != nil {
			// The pending timer is due; let it flush the burst.
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(min(delay, maxWait-elapsed), fire)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := restartBackoffBase
	sleep := func(reason string) bool {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		log.Warn(reason, logx.Duration("backoff", wait))
		backoff = min(backoff*2, restartBackoffMax)
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("watch init failed", logx.Err(err))
			if !sleep("watch init retry") {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			log.Warn("watch add failed", logx.Err(err), logx.String("dir", dir))
			if !sleep("watch add retry") {
				return nil
			}
			continue
		}
		backoff = restartBackoffBase
		log.Debug("watcher started")

		if done := loop(ctx, w, file, log, trigger); done {
			_ = w.Close()
			return nil
		}
		_ = w.Close()
		// Events may have been missed while the watcher was broken.
		trigger()
		if !sleep("watcher stopped; restarting") {
			return nil
		}
	}
	return nil
}

// loop pumps events until ctx is done (true) or the watcher breaks (false).
func loop(ctx context.Context, w *fsnotify.Watcher, file string, log logx.Logger, trigger func()) bool {
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return true
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) && ev.Op&ops != 0 {
				trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return false
			}
			if err == nil {
				continue
			}
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "overflow") {
				log.Warn("watch overflow; forcing reload", logx.Err(err))
				trigger()
				continue
			}
			log.Warn("watch error", logx.Err(err))
			if strings.Contains(msg, "closed") {
				return false
			}
		}
	}
}
