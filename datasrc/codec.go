package datasrc

import (
	"errors"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a compression format recognized by file extension.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecGzip
	CodecZstd
	CodecLZ4
)

// CodecFor returns the codec of name's extension.
func CodecFor(name string) Codec {
	switch strings.ToLower(path.Ext(name)) {
	case ".gz", ".gzip":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	}
	return CodecNone
}

// TrimCodecExt returns name without a compression extension, i.e: "data.csv.gz" -> "data.csv".
func TrimCodecExt(name string) string {
	if CodecFor(name) == CodecNone {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// NewReader wraps rc with a decompressor. Closing the result closes rc.
func (c Codec) NewReader(rc io.ReadCloser) (io.ReadCloser, error) {
	switch c {
	case CodecGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return &readCloser{Reader: zr, close: func() error { return errors.Join(zr.Close(), rc.Close()) }}, nil
	case CodecZstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return &readCloser{Reader: zr, close: func() error { zr.Close(); return rc.Close() }}, nil
	case CodecLZ4:
		return &readCloser{Reader: lz4.NewReader(rc), close: rc.Close}, nil
	}
	return rc, nil
}

// NewWriter wraps wc with a compressor. Closing the result flushes the compressor and closes wc.
func (c Codec) NewWriter(wc io.WriteCloser) (io.WriteCloser, error) {
	var zw io.WriteCloser
	switch c {
	case CodecGzip:
		zw = gzip.NewWriter(wc)
	case CodecZstd:
		enc, err := zstd.NewWriter(wc)
		if err != nil {
			wc.Close()
			return nil, err
		}
		zw = enc
	case CodecLZ4:
		zw = lz4.NewWriter(wc)
	default:
		return wc, nil
	}
	return &writeCloser{Writer: zw, close: func() error {
		err := zw.Close()
		return errors.Join(err, wc.Close())
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }

type writeCloser struct {
	io.Writer
	close func() error
}

func (w *writeCloser) Close() error { return w.close() }
