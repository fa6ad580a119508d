package s0_data

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Downloader fetches a remote snapshot body
type Downloader interface {
	Download(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// IsRemoteSource reports whether source is an http(s) URL
func IsRemoteSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// OpenSnapshot loads a snapshot from a file path or an http(s) URL.
// Remote sources need a downloader.
func OpenSnapshot(ctx context.Context, dl Downloader, source string) (*MemoryProvider, error) {
	if !IsRemoteSource(source) {
		return LoadSnapshot(source)
	}
	if dl == nil {
		return nil, fmt.Errorf("snapshot %s: no downloader for remote source", source)
	}

	data, err := dl.Download(ctx, source, 0)
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	p, err := ReadSnapshot(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return p, nil
}
