// Package datasrc reads and writes dataset files on local disk, over HTTP
// and on S3 compatible object storage, decompressing by file extension.
package datasrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when the named object does not exist.
	ErrNotFound = errors.New("datasrc: not found")
	// ErrReadOnly is returned by stores that cannot be written to.
	ErrReadOnly = errors.New("datasrc: read-only store")
)

// Store opens named objects for streaming reads and writes.
// Writes are complete only after the returned writer is closed successfully.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*HTTPStore)(nil)
	_ Store = (*S3Store)(nil)
	_ Store = (*MinioStore)(nil)
)

// LocalStore implements Store on the local file system.
type LocalStore struct {
	// Root is joined to relative names. Empty means the working directory.
	Root string
}

// NewLocalStore returns a store rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) path(name string) string {
	if s.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Root, name)
}

func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fp, err := os.Open(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fp, err
}

// Create creates or truncates the named file, creating parent directories as needed.
func (s *LocalStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// HTTPStore reads objects with HTTP GET requests.
type HTTPStore struct {
	// Client performs requests. Nil means http.DefaultClient.
	Client *http.Client
	// BaseURL is prepended to names. Empty means names are absolute URLs.
	BaseURL string
}

func (s *HTTPStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	url := name
	if s.BaseURL != "" {
		url = strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(name, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("datasrc: GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Create always fails with [ErrReadOnly].
func (s *HTTPStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return nil, ErrReadOnly
}

// pipeWriter streams writes to an upload running in another goroutine.
// Close waits for the upload to finish and returns its error.
type pipeWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func newPipeWriter(upload func(r io.Reader) error) *pipeWriter {
	pr, pw := io.Pipe()
	w := &pipeWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		err := upload(pr)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *pipeWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *pipeWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
