package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ObjectOpener reads documents addressed by gs:// URIs.
type ObjectOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, string, error)
}

// FetcherConfig holds download settings.
type FetcherConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Fetcher downloads source documents into a local work directory.
type Fetcher struct {
	httpClient *http.Client
	objects    ObjectOpener
	config     FetcherConfig
}

// NewFetcher creates a Fetcher. objects may be nil, in which case gs:// URIs are rejected.
func NewFetcher(config FetcherConfig, objects ObjectOpener) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: config.Timeout},
		objects:    objects,
		config:     config,
	}
}

// Fetch stores the document at rawURL in a new file under dir and returns its path.
// The file extension is inferred from the response content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	body, contentType, err := f.open(ctx, rawURL)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	defer body.Close()

	localFile, err := os.CreateTemp(dir, "document-*"+ExtensionForContentType(contentType))
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	defer localFile.Close()

	var src io.Reader = body
	if f.config.MaxBytes > 0 {
		src = io.LimitReader(body, f.config.MaxBytes+1)
	}
	written, err := io.Copy(localFile, src)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("failed to copy document to local file: %w", err)}
	}
	if f.config.MaxBytes > 0 && written > f.config.MaxBytes {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("document exceeds %d bytes", f.config.MaxBytes)}
	}

	slog.Info("Downloaded document.", "path", localFile.Name(), "contentType", contentType, "bytes", written)
	return localFile.Name(), nil
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid document URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.openHTTP(ctx, rawURL)
	case "gs":
		if f.objects == nil {
			return nil, "", errors.New("gs:// documents are not enabled")
		}
		return f.objects.Open(ctx, rawURL)
	default:
		return nil, "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

func (f *Fetcher) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// ExtensionForContentType maps a content type onto the local file extension.
// Anything that is not recognisably PNG or JPEG is treated as a PDF.
func ExtensionForContentType(contentType string) string {
	ctype := strings.ToLower(contentType)
	ext := ".pdf"
	if strings.Contains(ctype, "png") {
		ext = ".png"
	}
	if strings.Contains(ctype, "jpeg") || strings.Contains(ctype, "jpg") {
		ext = ".jpg"
	}
	return ext
}
