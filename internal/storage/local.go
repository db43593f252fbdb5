package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cmstorage "github.com/chartmuseum/storage"
)

// LocalStorage keeps objects as files under a root directory.
type LocalStorage struct {
	root    string
	backend *cmstorage.LocalFilesystemBackend
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root, backend: cmstorage.NewLocalFilesystemBackend(root)}
}

func (s *LocalStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := s.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("local list failed: %w", err)
	}
	results := make([]ObjectInfo, 0, len(objects))
	for _, object := range objects {
		key := filepath.ToSlash(filepath.Join(prefix, object.Path))
		// the backend lists paths only
		var size int64
		if info, err := os.Stat(filepath.Join(s.root, key)); err == nil {
			size = info.Size()
		}
		results = append(results, ObjectInfo{Key: key, Size: size})
	}
	return results, nil
}

func (s *LocalStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	object, err := s.backend.GetObject(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, object.Content, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	return nil
}

func (s *LocalStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	if err := s.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("local upload %s: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*LocalStorage)(nil)
