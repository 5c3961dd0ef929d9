// Package browser abstracts the headless browser used for the portal login.
package browser

import (
	"context"
	"net/http"
	"time"
)

// StorageArea names a Web Storage area.
type StorageArea string

// Storage areas readable through Driver.ReadStorage.
const (
	LocalStorage   StorageArea = "localStorage"
	SessionStorage StorageArea = "sessionStorage"
)

// Driver controls one browser tab. Selectors are CSS selectors.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Fill replaces the value of an input.
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// Screenshot captures the element matching selector as PNG.
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	// HTML returns the current document's outer HTML.
	HTML(ctx context.Context) (string, error)
	// ReadStorage returns the value under key; ok is false when absent.
	ReadStorage(ctx context.Context, area StorageArea, key string) (value string, ok bool, err error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	UserAgent(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a fresh browser and returns a Driver for it.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}
