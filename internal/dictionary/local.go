package dictionary

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

//go:embed words.txt
var defaultWords string

const reloadDebounce = 500 * time.Millisecond

// Local is an in-memory word list. Lookups never fail.
type Local struct {
	mu    sync.RWMutex
	words map[string]struct{}
	path  string
}

// NewLocal returns a Local over the built-in word list.
func NewLocal() *Local {
	l := &Local{}
	l.words, _ = parseWords(strings.NewReader(defaultWords))
	return l
}

// LoadLocal reads one word per line from path. Blank lines and lines
// starting with # are ignored.
func LoadLocal(path string) (*Local, error) {
	l := &Local{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Local) Lookup(_ context.Context, word string) (bool, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	l.mu.RLock()
	_, ok := l.words[w]
	l.mu.RUnlock()
	return ok, nil
}

func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.words)
}

// Reload re-reads the backing file. The previous list stays in place on error.
func (l *Local) Reload() error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	words, err := parseWords(f)
	if err != nil {
		return fmt.Errorf("read word list %s: %w", l.path, err)
	}
	l.mu.Lock()
	l.words = words
	l.mu.Unlock()
	return nil
}

// Watch reloads the list whenever its file changes until ctx is done. The
// parent directory is watched so editors that replace the file are seen.
func (l *Local) Watch(ctx context.Context) error {
	if l.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return err
	}
	go l.watchLoop(ctx, w)
	return nil
}

func (l *Local) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	target := filepath.Clean(l.path)
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := l.Reload(); err != nil {
					log.Warn().Err(err).Msg("word list reload failed")
					return
				}
				log.Info().Int("words", l.Len()).Str("path", l.path).Msg("word list reloaded")
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("word list watcher error")
		}
	}
}

func parseWords(r io.Reader) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[line] = struct{}{}
	}
	return words, sc.Err()
}
