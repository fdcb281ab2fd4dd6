package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const (
	fileExt       = ".json"
	tempPrefix    = ".tmp-"
	fileDirPerm   = 0o755
	fileValuePerm = 0o644
)

// FileStore keeps one JSON file per key inside a directory. Writes go through a temp file
// and a rename so readers in other processes never see a torn value.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewFile opens (and creates when missing) a directory-backed store.
func NewFile(dir string, logger *slog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(dir, fileDirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+fileExt)
}

func (s *FileStore) keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, fileValuePerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close stops every watcher started on this store and waits for them to exit.
func (s *FileStore) Close() error {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()
	return nil
}

// Watch reports writes to the directory, including ones made by other processes.
func (s *FileStore) Watch(ctx context.Context, fn func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, watcher, fn)
	return nil
}

func (s *FileStore) run(ctx context.Context, watcher *fsnotify.Watcher, fn func(Change)) {
	defer s.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if change, ok := s.changeFor(event); ok {
				fn(change)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file store watcher error", slog.String("dir", s.dir), slog.Any("error", err))
		}
	}
}

func (s *FileStore) changeFor(event fsnotify.Event) (Change, bool) {
	key, ok := s.keyFromPath(event.Name)
	if !ok {
		return Change{}, false
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		raw, err := os.ReadFile(event.Name)
		if errors.Is(err, fs.ErrNotExist) {
			return Change{Key: key, Op: OpDelete}, true
		}
		if err != nil {
			s.logger.Warn("file store read after event failed", slog.String("key", key), slog.Any("error", err))
			return Change{Key: key, Op: OpSet}, true
		}
		return Change{Key: key, Op: OpSet, Value: raw}, true
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Change{Key: key, Op: OpDelete}, true
	default:
		return Change{}, false
	}
}
