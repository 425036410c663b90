// Package archive copies absorbed source files to Google Cloud Storage
// so the local archive area can be cleaned up without losing originals.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader pushes files into a GCS bucket. The zero value is not
// usable; construct with NewUploader.
type Uploader struct {
	bucket string
	prefix string
}

// NewUploader creates an Uploader targeting the given bucket. Objects
// are placed under prefix, which may be empty.
func NewUploader(bucket, prefix string) *Uploader {
	return &Uploader{bucket: bucket, prefix: prefix}
}

// Upload copies a local file to the bucket under the file's base name.
// It assumes Application Default Credentials are configured.
func (u *Uploader) Upload(ctx context.Context, filePath string) error {
	objectName := path.Base(filePath)
	if u.prefix != "" {
		objectName = path.Join(u.prefix, objectName)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("Upload: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return nil
}
