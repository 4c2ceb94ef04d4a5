package synthesis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	filePrefix = "audiofile_"
	fileExt    = ".mp3"
)

var ErrNotFound = errors.New("audio artifact not found")

// Artifact is a synthesized reply persisted under the store directory.
type Artifact struct {
	ID   string
	Path string
	Size int64
}

// Store owns the working directory for synthesized audio. Names are random
// UUIDs, so concurrent writers never collide.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = "./tmp"
	}
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Create makes the directory if needed and opens a fresh artifact file.
func (s *Store) Create() (*os.File, Artifact, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, Artifact{}, fmt.Errorf("create audio dir: %w", err)
	}
	id := uuid.NewString()
	path := s.path(id)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, Artifact{}, fmt.Errorf("create audio file: %w", err)
	}
	return f, Artifact{ID: id, Path: path}, nil
}

// Open returns the artifact for id. Anything that is not a UUID is treated
// as missing.
func (s *Store) Open(id string) (*os.File, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.path(parsed.String()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileExt)
}
