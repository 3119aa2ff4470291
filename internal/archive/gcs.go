// Package archive stores raw receipt images in Google Cloud Storage so the
// original source of a ledger entry survives beyond the chat session.
// Archival is best-effort; callers log failures and move on.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GCSArchive uploads receipt bytes to a fixed bucket. With an empty
// credentials file, Application Default Credentials are used.
type GCSArchive struct {
	bucket          string
	credentialsFile string
	log             zerolog.Logger
}

// NewGCSArchive creates an archive writing into the given bucket.
func NewGCSArchive(bucket, credentialsFile string, log zerolog.Logger) *GCSArchive {
	return &GCSArchive{bucket: bucket, credentialsFile: credentialsFile, log: log}
}

// ArchiveReceipt uploads the image and returns its gs:// URI.
func (a *GCSArchive) ArchiveReceipt(ctx context.Context, data []byte, mimeType string) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.NewString(), extensionFor(mimeType))

	var opts []option.ClientOption
	if a.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("ArchiveReceipt: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("ArchiveReceipt: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("ArchiveReceipt: finalize upload: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)
	a.log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Receipt uploaded")
	return uri, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
