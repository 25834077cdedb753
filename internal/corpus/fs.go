package corpus

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// blobExtension marks compressed blob files on disk.
const blobExtension = ".lz4"

// blobDirPerm and blobFilePerm are the on-disk permissions for blob storage.
const (
	blobDirPerm  = 0o755
	blobFilePerm = 0o644
)

// FSBlobs is a filesystem BlobStore. Keys map to paths under Root; payloads
// are lz4-framed. Writes go through a temp file and rename so readers never
// observe a partial blob.
type FSBlobs struct {
	Root string
}

// NewFSBlobs creates a filesystem blob store rooted at dir.
func NewFSBlobs(dir string) *FSBlobs {
	return &FSBlobs{Root: dir}
}

// Get implements BlobStore.
func (b *FSBlobs) Get(_ context.Context, key string) ([]byte, error) {
	file, err := os.Open(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open blob %q: %w", key, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(lz4.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decompress blob %q: %w", key, err)
	}

	return data, nil
}

// Put implements BlobStore.
func (b *FSBlobs) Put(_ context.Context, key string, data []byte) error {
	path := b.path(key)

	mkdirErr := os.MkdirAll(filepath.Dir(path), blobDirPerm)
	if mkdirErr != nil {
		return fmt.Errorf("create blob dir for %q: %w", key, mkdirErr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp blob for %q: %w", key, err)
	}

	tmpName := tmp.Name()

	writer := lz4.NewWriter(tmp)

	_, writeErr := writer.Write(data)
	if writeErr == nil {
		writeErr = writer.Close()
	}

	if writeErr == nil {
		writeErr = tmp.Close()
	} else {
		_ = tmp.Close()
	}

	if writeErr != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("write blob %q: %w", key, writeErr)
	}

	chmodErr := os.Chmod(tmpName, blobFilePerm)
	if chmodErr != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("chmod blob %q: %w", key, chmodErr)
	}

	renameErr := os.Rename(tmpName, path)
	if renameErr != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("publish blob %q: %w", key, renameErr)
	}

	return nil
}

// Delete implements BlobStore.
func (b *FSBlobs) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}

	return nil
}

// List implements BlobStore.
func (b *FSBlobs) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string

	walkErr := filepath.WalkDir(b.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, blobExtension) {
			return nil
		}

		rel, relErr := filepath.Rel(b.Root, path)
		if relErr != nil {
			return relErr
		}

		key := strings.TrimSuffix(filepath.ToSlash(rel), blobExtension)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk blobs %q: %w", prefix, walkErr)
	}

	sort.Strings(keys)

	return keys, nil
}

func (b *FSBlobs) path(key string) string {
	return filepath.Join(b.Root, filepath.FromSlash(key)) + blobExtension
}
