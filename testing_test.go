package main

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

// newTestRouter serves every lesson picture from a local 700x400 PNG.
func newTestRouter(t *testing.T, prefix string) (*httprouter.Router, *Config) {
	t.Helper()

	return newTestRouterWith(t, func(cfg *Config) { cfg.prefix = prefix })
}

func newTestRouterWith(t *testing.T, configure func(*Config)) (*httprouter.Router, *Config) {
	t.Helper()

	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, image.NewRGBA(image.Rect(0, 0, 700, 400)))
	}))
	t.Cleanup(img.Close)

	cfg := &Config{
		port:         8080,
		imageBase:    img.URL,
		imageTimeout: 5 * time.Second,
		seed:         1,
		background:   true,
	}
	configure(cfg)

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	errs := make(chan error, 16)
	go drainErrors(cfg, errs)

	mux, err := newRouter(context.Background(), cfg, errs)
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}

	return mux, cfg
}
