// Package use_case holds the asset services: upload ingestion,
// listing, and deletion with gallery renumbering. All structural
// truth is recovered from filenames via the layout package; nothing
// is persisted anywhere but the filesystem tree.
package use_case

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/a-d-w-s/assethub/internal/config"
	"github.com/a-d-w-s/assethub/internal/entities"
	"github.com/a-d-w-s/assethub/internal/repository/fsrepo"
)

var (
	// ErrUpload marks a transport-level failure or an empty payload.
	ErrUpload = errors.New("upload failed")
	// ErrUnsupportedType marks a declared MIME type outside the
	// allow-list.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrInvalidName marks a client filename that slugifies to
	// nothing.
	ErrInvalidName = errors.New("invalid filename")
)

// Notifier asks the serving gateway to drop cached derivatives. Calls
// are fire-and-forget: the filesystem mutation stands even when the
// cache is unreachable, staleness heals on the gateway's next miss.
type Notifier interface {
	Invalidate(ctx context.Context, key string) error
	InvalidateFolder(ctx context.Context, key string) error
}

type Service struct {
	repo     *fsrepo.Repository
	notifier Notifier
	image    config.ImageConfig
	file     config.FileConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(repo *fsrepo.Repository, notifier Notifier, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		image:    cfg.Image,
		file:     cfg.File,
		locks:    make(map[string]*sync.Mutex),
	}
}

// folderLock returns the mutex guarding one entity folder. Index
// assignment and renumbering both read-then-write the directory
// listing, so every mutating sequence runs under this lock; distinct
// folders proceed in parallel.
func (s *Service) folderLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// validateUpload checks transport success and a non-empty payload.
// The empty-selection sentinel is handled by the callers before this.
func validateUpload(up *entities.Upload) error {
	if up.Err != nil {
		return fmt.Errorf("%w: %v", ErrUpload, up.Err)
	}
	if up.Size == 0 {
		return fmt.Errorf("%w: uploaded file is empty", ErrUpload)
	}
	return nil
}

// mapMime resolves a declared MIME type through an allow-list. The
// stored extension always comes from the map, never from the client
// filename.
func mapMime(mimeTypes map[string]string, mime string) (string, error) {
	ext, ok := mimeTypes[mime]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	return ext, nil
}
