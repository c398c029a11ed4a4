package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"simple", "gs://bucket/file.pdf", "bucket", "file.pdf", false},
		{"nested", "gs://bucket/2025/10/statement.pdf", "bucket", "2025/10/statement.pdf", false},
		{"no object", "gs://bucket", "", "", true},
		{"empty object", "gs://bucket/", "", "", true},
		{"empty bucket", "gs:///file.pdf", "", "", true},
		{"not gcs", "/tmp/file.pdf", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURI) {
					t.Fatalf("ParseGCSURI(%q) error = %v, want ErrInvalidURI", tt.uri, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGCSURI(%q) unexpected error: %v", tt.uri, err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.pdf", "file.pdf"},
		{"gs://bucket/file.pdf", "file.pdf"},
		{"gs://bucket", "bucket"},
		{"statements/oct.pdf", "oct.pdf"},
		{"oct.png", "oct.png"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := FilenameFromURI(tt.uri); got != tt.want {
				t.Errorf("FilenameFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestService_LocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewService("")
	path := filepath.Join(t.TempDir(), "output.json")

	if err := s.Write(ctx, path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("file mode = %v, want 0644", info.Mode().Perm())
	}

	got, err := s.Fetch(ctx, path)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("Fetch() = %q", got)
	}
}

func TestService_FetchMissingLocalFile(t *testing.T) {
	_, err := NewService("").Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Fetch() error = %v, want os.ErrNotExist", err)
	}
}

func TestService_InvalidGCSURI(t *testing.T) {
	s := NewService("")
	if _, err := s.Fetch(context.Background(), "gs://only-bucket"); !errors.Is(err, ErrInvalidURI) {
		t.Errorf("Fetch() error = %v, want ErrInvalidURI", err)
	}
	if err := s.Write(context.Background(), "gs://only-bucket/", nil); !errors.Is(err, ErrInvalidURI) {
		t.Errorf("Write() error = %v, want ErrInvalidURI", err)
	}
}

func TestNewService_CredentialsFile(t *testing.T) {
	if got := len(NewService("").opts); got != 0 {
		t.Errorf("opts without credentials = %d, want 0", got)
	}
	if got := len(NewService("/etc/creds.json").opts); got != 1 {
		t.Errorf("opts with credentials = %d, want 1", got)
	}
}
