package datasrc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Location is a parsed dataset URI.
type Location struct {
	// Scheme is one of "file", "http", "https", "s3" or "minio".
	Scheme string
	// Endpoint is the MinIO server address.
	Endpoint string
	Bucket   string
	// Key is the object key, file path or full URL for HTTP locations.
	Key string
}

// ParseLocation parses uri. Accepted forms are plain paths, file://path,
// http(s)://host/path, s3://bucket/key and minio://endpoint/bucket/key.
func ParseLocation(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		if uri == "" {
			return Location{}, fmt.Errorf("datasrc: empty location")
		}
		return Location{Scheme: "file", Key: uri}, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		return Location{Scheme: "file", Key: rest}, nil
	case "http", "https":
		u, err := url.Parse(uri)
		if err != nil {
			return Location{}, err
		}
		return Location{Scheme: u.Scheme, Key: u.String()}, nil
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("datasrc: %q: want s3://bucket/key", uri)
		}
		return Location{Scheme: "s3", Bucket: bucket, Key: key}, nil
	case "minio":
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Location{}, fmt.Errorf("datasrc: %q: want minio://endpoint/bucket/key", uri)
		}
		return Location{Scheme: "minio", Endpoint: parts[0], Bucket: parts[1], Key: parts[2]}, nil
	}
	return Location{}, fmt.Errorf("datasrc: unsupported scheme %q", scheme)
}

// Store returns the store holding the location and the object's name within it.
// S3 stores use the default AWS configuration chain. MinIO credentials are read
// from MINIO_ACCESS_KEY and MINIO_SECRET_KEY, TLS is enabled by MINIO_SECURE=true.
func (loc Location) Store(ctx context.Context) (Store, string, error) {
	switch loc.Scheme {
	case "file":
		return &LocalStore{}, loc.Key, nil
	case "http", "https":
		return &HTTPStore{}, loc.Key, nil
	case "s3":
		s, err := NewS3StoreFromEnv(ctx, loc.Bucket, "")
		return s, loc.Key, err
	case "minio":
		s, err := NewMinioStore(MinioConfig{
			Endpoint:  loc.Endpoint,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Secure:    os.Getenv("MINIO_SECURE") == "true",
		}, loc.Bucket, "")
		return s, loc.Key, err
	}
	return nil, "", fmt.Errorf("datasrc: unsupported scheme %q", loc.Scheme)
}

// Open opens the object at uri for reading, decompressing by extension.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	store, name, err := loc.Store(ctx)
	if err != nil {
		return nil, err
	}
	return OpenFrom(ctx, store, name)
}

// Create creates the object at uri for writing, compressing by extension.
func Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	store, name, err := loc.Store(ctx)
	if err != nil {
		return nil, err
	}
	return CreateIn(ctx, store, name)
}

// OpenFrom opens name in store, decompressing by extension.
func OpenFrom(ctx context.Context, store Store, name string) (io.ReadCloser, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return CodecFor(name).NewReader(rc)
}

// CreateIn creates name in store, compressing by extension.
func CreateIn(ctx context.Context, store Store, name string) (io.WriteCloser, error) {
	wc, err := store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return CodecFor(name).NewWriter(wc)
}
