// Package storage reads and writes statement files on local disk or in
// Google Cloud Storage, addressed by path or gs:// URI.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ledgerscan/statement-tools/internal/logger"
)

const gcsScheme = "gs://"

// ErrInvalidURI is returned for gs:// URIs without a bucket or object.
var ErrInvalidURI = errors.New("invalid GCS URI")

// Store is the storage surface used by the statement pipeline.
type Store interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Write(ctx context.Context, uri string, data []byte) error
}

// Service implements Store. GCS clients are created per call with
// Application Default Credentials unless a credentials file is configured.
type Service struct {
	opts []option.ClientOption
}

func NewService(credentialsFile string) *Service {
	s := &Service{}
	if credentialsFile != "" {
		s.opts = append(s.opts, option.WithCredentialsFile(credentialsFile))
	}
	return s
}

// IsGCSURI reports whether uri uses the gs:// scheme.
func IsGCSURI(uri string) bool {
	return strings.HasPrefix(uri, gcsScheme)
}

// ParseGCSURI splits "gs://bucket/path/to/file.pdf" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the last path element of a local path or GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	if IsGCSURI(uri) {
		trimmed := strings.TrimPrefix(uri, gcsScheme)
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		return path.Base(parts[1])
	}
	return filepath.Base(uri)
}

func (s *Service) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if !IsGCSURI(uri) {
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("storage.Fetch: %w", err)
		}
		return data, nil
	}

	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("storage.Fetch: reading bytes: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Fetched object from GCS")
	return data, nil
}

func (s *Service) Write(ctx context.Context, uri string, data []byte) error {
	if !IsGCSURI(uri) {
		if err := os.WriteFile(uri, data, 0o644); err != nil {
			return fmt.Errorf("storage.Write: %w", err)
		}
		return nil
	}

	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return fmt.Errorf("storage.Write: creating storage client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage.Write: copy to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage.Write: finalize upload: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Uploaded object to GCS")
	return nil
}

var _ Store = (*Service)(nil)
