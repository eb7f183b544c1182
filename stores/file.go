package stores

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/9seconds/whereabouts/geolib"
)

const fileStoreSuffix = ".log"

var fileStoreKeyRegexp = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type fileStore struct {
	fs    afero.Afero
	dir   string
	mutex sync.Mutex
}

func (f *fileStore) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := f.fs.ReadFile(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, geolib.ErrNoData
	case err != nil:
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	case len(data) == 0:
		return nil, geolib.ErrNoData
	}

	return data, nil
}

// Store writes into a temporary file and renames it so readers never
// see a partial snapshot. ttl is ignored.
func (f *fileStore) Store(_ context.Context, key string, data []byte, _ time.Duration) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	tmpFile, err := f.fs.TempFile(f.dir, "tmp_")
	if err != nil {
		return fmt.Errorf("cannot create a temporary file: %w", err)
	}

	defer f.fs.Remove(tmpFile.Name()) // nolint: errcheck

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()

		return fmt.Errorf("cannot write to %s: %w", tmpFile.Name(), err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", tmpFile.Name(), err)
	}

	if err := f.fs.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("cannot rename %s to %s: %w", tmpFile.Name(), path, err)
	}

	return nil
}

func (f *fileStore) path(key string) (string, error) {
	if !fileStoreKeyRegexp.MatchString(key) {
		return "", fmt.Errorf("incorrect key %q", key)
	}

	return filepath.Join(f.dir, key+fileStoreSuffix), nil
}

// NewFile returns a backing store which keeps each key in its own file
// in a given directory.
func NewFile(fs afero.Fs, dir string) (geolib.BackingStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory %s: %w", dir, err)
	}

	return &fileStore{
		fs:  afero.Afero{Fs: fs},
		dir: dir,
	}, nil
}
