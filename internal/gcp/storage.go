package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"
)

// ObjectReader opens Cloud Storage objects addressed by gs:// URIs.
type ObjectReader struct {
	client *storage.Client
}

// NewObjectReader creates a storage client shared by all requests.
func NewObjectReader(ctx context.Context) (*ObjectReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &ObjectReader{client: client}, nil
}

// Open returns a reader for gs://bucket/object and the object's content type.
func (r *ObjectReader) Open(ctx context.Context, uri string) (io.ReadCloser, string, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, "", err
	}
	reader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	slog.Debug("Opened GCS object.", "gcsBucket", bucket, "gcsObject", object, "size", reader.Attrs.Size)
	return reader, reader.Attrs.ContentType, nil
}

func (r *ObjectReader) Close() error {
	return r.client.Close()
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// URI must name a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}
