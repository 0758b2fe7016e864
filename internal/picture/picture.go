// Package picture learns the pixel size of lesson images.
package picture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"
)

// ErrLoad is returned, wrapped, for every failure to fetch or decode an image.
var ErrLoad = errors.New("image load failed")

// Size is an image's pixel dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Loader fetches images over HTTP and caches their sizes by URL.
type Loader struct {
	client  *http.Client
	timeout time.Duration

	mu    sync.Mutex
	sizes map[string]Size
}

// NewLoader returns a Loader. A zero timeout means no per-request deadline
// beyond the caller's context.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
		sizes:   make(map[string]Size),
	}
}

// Load returns the size of the image at url. Only the image header is
// decoded.
func (l *Loader) Load(ctx context.Context, url string) (Size, error) {
	l.mu.Lock()
	size, ok := l.sizes[url]
	l.mu.Unlock()
	if ok {
		return size, nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Size{}, fmt.Errorf("%w: %s returned %s", ErrLoad, url, resp.Status)
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return Size{}, fmt.Errorf("%w: decode %s: %v", ErrLoad, url, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Size{}, fmt.Errorf("%w: %s has no pixels", ErrLoad, url)
	}

	size = Size{Width: cfg.Width, Height: cfg.Height}

	l.mu.Lock()
	l.sizes[url] = size
	l.mu.Unlock()

	return size, nil
}
