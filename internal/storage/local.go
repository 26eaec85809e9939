package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalDir stores objects as files under a root directory. Each write goes
// to a temp file that is renamed into place, so readers never see a partial
// file and concurrent writers of one name serialize.
type LocalDir struct {
	root string
	mu   sync.Mutex
}

func NewLocalDir(root string) *LocalDir {
	return &LocalDir{root: root}
}

func (d *LocalDir) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	target, err := d.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return target, nil
}

func (d *LocalDir) resolve(objectName string) (string, error) {
	clean := filepath.Clean("/" + objectName)
	if clean == "/" || strings.HasSuffix(objectName, "/") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(d.root, clean), nil
}
