// Package storage stores uploaded files on the local filesystem or an
// S3-compatible bucket (AWS S3, MinIO, R2).
//
//	disk, err := storage.New(ctx)
//	key, err := storage.StoreUpload(ctx, disk, "products", fileHeader)
//	url := disk.URL(key)
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/shopkart/config"
)

// Disk is the filesystem driver interface. Paths use forward slashes.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for path.
	URL(path string) string
}

var ErrNotImage = errors.New("storage: file is not an image")

// New builds the disk selected by STORAGE_DISK ("local" or "s3").
func New(ctx context.Context) (Disk, error) {
	switch d := config.StorageDisk(); d {
	case "local":
		return NewLocal(config.StorageLocalRoot(), config.StorageURL())
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
	default:
		return nil, fmt.Errorf("storage: unsupported STORAGE_DISK %q (supported: local, s3)", d)
	}
}

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// StoreUpload sniffs the upload, rejects anything that is not a known image
// type and writes it under dir with a random name. It returns the stored path.
func StoreUpload(ctx context.Context, disk Disk, dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: read upload %s: %w", fh.Filename, err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", ErrNotImage, fh.Filename, contentType)
	}

	key := path.Join(strings.Trim(dir, "/"), uuid.NewString()+ext)
	body := io.MultiReader(strings.NewReader(string(head)), f)
	if err := disk.Put(ctx, key, body, contentType); err != nil {
		return "", err
	}
	return key, nil
}
